//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// MountSwagger serves the generated API docs under /swagger/. The docs
// package registers itself with swag when the binary is built with
// -tags=swagger.
func MountSwagger(r chi.Router) {
	if _, err := swag.ReadDoc(); err != nil {
		return
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}
