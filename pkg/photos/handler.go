// Package photos serves the cached photo resources over HTTP.
package photos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/photo-cache/pkg/cache"
	"github.com/Sternrassler/photo-cache/pkg/origin"
)

const (
	// ResourcePhotos is the cache resource name of the album listing.
	ResourcePhotos = "photos"

	// ResourcePhoto is the cache resource name of a single photo.
	ResourcePhoto = "photo"

	// HeaderCache reports HIT, MISS or BYPASS for every successful response.
	HeaderCache = "X-Cache"
)

// Origin fetches photo documents from the upstream API.
type Origin interface {
	ListPhotos(ctx context.Context, query url.Values) ([]byte, error)
	GetPhoto(ctx context.Context, id string) ([]byte, error)
}

// Handler serves /photos and /photos/{id} through the cache.
type Handler struct {
	aside  *cache.Aside
	origin Origin
	ttl    time.Duration
	logger zerolog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTTL sets the TTL requested for cached responses. Zero uses the cache default.
func WithTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		h.ttl = ttl
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates photo handlers backed by aside and origin.
func NewHandler(aside *cache.Aside, o Origin, opts ...Option) *Handler {
	if aside == nil {
		panic("cache aside cannot be nil")
	}
	if o == nil {
		panic("origin cannot be nil")
	}

	h := &Handler{
		aside:  aside,
		origin: o,
		logger: log.With().Str("component", "photos").Logger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the photo routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/photos", h.ListPhotos)
	r.Get("/photos/{id}", h.GetPhoto)
}

// ListPhotos serves GET /photos. The query string is forwarded to the origin
// verbatim and keys the cache entry.
func (h *Handler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	res, err := h.aside.Fetch(r.Context(), ResourcePhotos,
		[]cache.AttributeGroup{cache.QueryGroup(query)},
		h.ttl,
		func(ctx context.Context) ([]byte, error) {
			return h.origin.ListPhotos(ctx, query)
		})
	if err != nil {
		h.writeError(w, r, ResourcePhotos, err)
		return
	}

	writeResult(w, res)
}

// GetPhoto serves GET /photos/{id}.
func (h *Handler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	// chi matches on the raw path, so the param may still be percent-encoded.
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}

	res, err := h.aside.Fetch(r.Context(), ResourcePhoto,
		[]cache.AttributeGroup{cache.PathGroup(map[string]string{"id": id})},
		h.ttl,
		func(ctx context.Context) ([]byte, error) {
			return h.origin.GetPhoto(ctx, id)
		})
	if err != nil {
		h.writeError(w, r, ResourcePhoto, err)
		return
	}

	writeResult(w, res)
}

func writeResult(w http.ResponseWriter, res cache.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set(HeaderCache, string(res.Status))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Value)
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// writeError maps a fetch failure to a response. Origin 4xx statuses pass
// through; everything else is a bad gateway.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, resource string, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		h.logger.Debug().Str("resource", resource).Msg("Client went away")
		return
	}

	status := http.StatusBadGateway
	if code := origin.StatusCode(err); code >= 400 && code < 500 {
		status = code
	}

	event := h.logger.Error()
	if status != http.StatusBadGateway {
		event = h.logger.Debug()
	}
	event.Err(err).
		Str("resource", resource).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Photo request failed")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:  http.StatusText(status),
		Status: status,
	})
}
