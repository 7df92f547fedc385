package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jp2kd/internal/decoder"
	"jp2kd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
// *decoder.Coordinator implements it.
type Service interface {
	Init(ctx context.Context) error
	Precache(ctx context.Context, data []byte) error
	Size(ctx context.Context) (decoder.Size, error)
	SizeOf(ctx context.Context, data []byte) (decoder.Size, error)
	Decode(ctx context.Context, data []byte, opts decoder.DecodeOptions) (*decoder.Image, error)
	DecodeCached(ctx context.Context, opts decoder.DecodeOptions) (*decoder.Image, error)
	ResourceUsage(ctx context.Context) (decoder.ResourceUsage, error)
	Status() types.StatusResponse
	Ready() bool
}

var _ Service = (*decoder.Coordinator)(nil)

// NewMux builds the API router. base is the server lifetime: when it ends,
// handlers stop waiting on the decoder and answer 503. Work already queued on
// the decoder is not cancelled by it.
func NewMux(base context.Context, svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if c := corsMiddleware(); c != nil {
		r.Use(c)
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	h := &handlers{svc: svc, base: base}
	r.Post("/init", h.initialize)
	r.Post("/precache", h.precache)
	r.Get("/size", h.cachedSize)
	r.Post("/size", h.size)
	r.Post("/decode", h.decode)
	r.Post("/decode/cached", h.decodeCached)
	r.Get("/usage", h.usage)

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

type handlers struct {
	svc  Service
	base context.Context
}

// serve runs fn with a context joined to the server base context and writes
// its error, if any. Successful responses are written by fn.
func (h *handlers) serve(w http.ResponseWriter, r *http.Request, op string, size int, fn func(ctx context.Context) (int, error)) {
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, op, size)
	ctx, cancel := requestContext(h.base, r)
	defer cancel()
	status, err := fn(ctx)
	if err != nil {
		switch {
		case ctx.Err() != nil && errors.Is(err, context.Canceled) && shuttingDown(h.base):
			status = http.StatusServiceUnavailable
			writeJSONError(w, status, "server shutting down")
		case ctx.Err() != nil && errors.Is(err, context.Canceled):
			// Client went away; nobody reads the reply.
			return
		default:
			status = writeDecoderError(w, err)
		}
	}
	logEnd(r, lvl, op, status, start, err)
}

// initialize godoc
// @Summary      Initialize the decoder
// @Description  Creates the engine handle. Succeeds immediately when already initialized.
// @Tags         decoder
// @Produce      json
// @Success      200  {object}  types.InitResponse
// @Failure      409  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /init [post]
func (h *handlers) initialize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "init", 0, func(ctx context.Context) (int, error) {
		if err := h.svc.Init(ctx); err != nil {
			return 0, err
		}
		writeJSON(w, http.StatusOK, types.InitResponse{State: h.svc.Status().State})
		return http.StatusOK, nil
	})
}

// precache godoc
// @Summary      Cache an image inside the engine
// @Tags         decoder
// @Accept       octet-stream
// @Success      204
// @Failure      400  {object}  types.ErrorResponse
// @Failure      413  {object}  types.ErrorResponse
// @Router       /precache [post]
func (h *handlers) precache(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	h.serve(w, r, "precache", len(data), func(ctx context.Context) (int, error) {
		if err := h.svc.Precache(ctx, data); err != nil {
			return 0, err
		}
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent, nil
	})
}

// size godoc
// @Summary      Image dimensions
// @Tags         decoder
// @Accept       octet-stream
// @Produce      json
// @Success      200  {object}  types.SizeResponse
// @Failure      400  {object}  types.ErrorResponse
// @Failure      422  {object}  types.ErrorResponse
// @Router       /size [post]
func (h *handlers) size(w http.ResponseWriter, r *http.Request) {
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	h.serve(w, r, "size", len(data), func(ctx context.Context) (int, error) {
		s, err := h.svc.SizeOf(ctx, data)
		if err != nil {
			return 0, err
		}
		writeJSON(w, http.StatusOK, types.SizeResponse{Width: s.Width, Height: s.Height})
		return http.StatusOK, nil
	})
}

// cachedSize godoc
// @Summary      Dimensions of the cached image
// @Tags         decoder
// @Produce      json
// @Success      200  {object}  types.SizeResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /size [get]
func (h *handlers) cachedSize(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "size", 0, func(ctx context.Context) (int, error) {
		s, err := h.svc.Size(ctx)
		if err != nil {
			return 0, err
		}
		writeJSON(w, http.StatusOK, types.SizeResponse{Width: s.Width, Height: s.Height})
		return http.StatusOK, nil
	})
}

// decode godoc
// @Summary      Decode an image to BMP
// @Tags         decoder
// @Accept       octet-stream
// @Produce      image/bmp
// @Param        format  query  string  false  "argb8888 (default) or rgb565"
// @Param        region  query  string  false  "pixel region left,top,right,bottom"
// @Param        ratio   query  string  false  "ratio region left,top,right,bottom"
// @Success      200
// @Failure      400  {object}  types.ErrorResponse
// @Failure      413  {object}  types.ErrorResponse
// @Failure      422  {object}  types.ErrorResponse
// @Router       /decode [post]
func (h *handlers) decode(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		writeDecoderError(w, err)
		return
	}
	data, ok := readBody(w, r)
	if !ok {
		return
	}
	h.serve(w, r, "decode", len(data), func(ctx context.Context) (int, error) {
		img, err := h.svc.Decode(ctx, data, opts)
		if err != nil {
			return 0, err
		}
		return writeImage(w, img), nil
	})
}

// decodeCached godoc
// @Summary      Decode the cached image to BMP
// @Tags         decoder
// @Produce      image/bmp
// @Param        format  query  string  false  "argb8888 (default) or rgb565"
// @Param        region  query  string  false  "pixel region left,top,right,bottom"
// @Param        ratio   query  string  false  "ratio region left,top,right,bottom"
// @Success      200
// @Failure      409  {object}  types.ErrorResponse
// @Router       /decode/cached [post]
func (h *handlers) decodeCached(w http.ResponseWriter, r *http.Request) {
	opts, err := decodeOptions(r)
	if err != nil {
		writeDecoderError(w, err)
		return
	}
	h.serve(w, r, "decode", 0, func(ctx context.Context) (int, error) {
		img, err := h.svc.DecodeCached(ctx, opts)
		if err != nil {
			return 0, err
		}
		return writeImage(w, img), nil
	})
}

// usage godoc
// @Summary      Engine memory usage
// @Tags         decoder
// @Produce      json
// @Success      200  {object}  types.UsageResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /usage [get]
func (h *handlers) usage(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "usage", 0, func(ctx context.Context) (int, error) {
		u, err := h.svc.ResourceUsage(ctx)
		if err != nil {
			return 0, err
		}
		writeJSON(w, http.StatusOK, types.UsageResponse{
			WasmHeapSizeBytes: u.WasmHeapSizeBytes,
			JSHeapSizeLimit:   u.JSHeapSizeLimit,
			TotalJSHeapSize:   u.TotalJSHeapSize,
			UsedJSHeapSize:    u.UsedJSHeapSize,
		})
		return http.StatusOK, nil
	})
}

// readBody reads the raw image body, bounded by maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return data, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Debug().Err(err).Msg("encode response")
	}
}

func writeImage(w http.ResponseWriter, img *decoder.Image) int {
	hdr := w.Header()
	hdr.Set("Content-Type", "image/bmp")
	hdr.Set("Content-Length", strconv.Itoa(len(img.BMP)))
	hdr.Set("X-Image-Width", strconv.Itoa(img.Width))
	hdr.Set("X-Image-Height", strconv.Itoa(img.Height))
	hdr.Set("X-Image-Format", img.Format.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.BMP)
	return http.StatusOK
}

// decodeOptions reads format, region and ratio from the query string.
func decodeOptions(r *http.Request) (decoder.DecodeOptions, error) {
	var opts decoder.DecodeOptions
	q := r.URL.Query()
	f, err := decoder.ParseColorFormat(q.Get("format"))
	if err != nil {
		return opts, badRequest{msg: err.Error()}
	}
	opts.Format = f

	region, ratio := q.Get("region"), q.Get("ratio")
	switch {
	case region != "" && ratio != "":
		return opts, badRequest{msg: "region and ratio are mutually exclusive"}
	case region != "":
		v, err := splitInts(region)
		if err != nil {
			return opts, err
		}
		opts.Region = decoder.PixelRect(v[0], v[1], v[2], v[3])
	case ratio != "":
		v, err := splitFloats(ratio)
		if err != nil {
			return opts, err
		}
		opts.Region = decoder.RatioRect(v[0], v[1], v[2], v[3])
	}
	return opts, nil
}

func splitRect(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, badRequest{msg: fmt.Sprintf("expected left,top,right,bottom, got %q", s)}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

func splitInts(s string) ([4]int, error) {
	var out [4]int
	parts, err := splitRect(s)
	if err != nil {
		return out, err
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, badRequest{msg: fmt.Sprintf("invalid region bound %q", p)}
		}
		out[i] = n
	}
	return out, nil
}

func splitFloats(s string) ([4]float64, error) {
	var out [4]float64
	parts, err := splitRect(s)
	if err != nil {
		return out, err
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return out, badRequest{msg: fmt.Sprintf("invalid ratio bound %q", p)}
		}
		out[i] = f
	}
	return out, nil
}
