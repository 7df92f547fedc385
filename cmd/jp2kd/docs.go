package main

// General API documentation for swaggo. Generate with `swag init -g cmd/jp2kd/docs.go`; the
// docs package must be imported by a swagger-tagged file to be served.
//
// @title           jp2kd API
// @version         1.0
// @description     HTTP API for sandboxed JPEG 2000 decoding.
//
// @contact.name   jp2kd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
