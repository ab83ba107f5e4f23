// Package testutil provides testing utilities for the photo cache.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Photo mirrors the origin's photo document.
type Photo struct {
	AlbumID      int    `json:"albumId"`
	ID           int    `json:"id"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// MockResponse defines the behavior for a mock origin response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockOrigin is a configurable jsonplaceholder-style server for testing.
// Without overrides it serves /photos?albumId=N and /photos/{id} from a
// generated data set of Albums x PhotosPerAlbum photos.
type MockOrigin struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	photos   []Photo

	requestCount  int
	pathCounts    map[string]int
	lastRequest   *http.Request
	lastUserAgent string
}

const (
	// Albums is the number of albums in the generated data set.
	Albums = 10

	// PhotosPerAlbum is the number of photos per album.
	PhotosPerAlbum = 5
)

// NewMockOrigin creates and starts a new mock origin server.
func NewMockOrigin() *MockOrigin {
	mock := &MockOrigin{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
		photos:     generatePhotos(Albums, PhotosPerAlbum),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.RequestURI()]++
		mock.lastRequest = r.Clone(r.Context())
		mock.lastUserAgent = r.Header.Get("User-Agent")
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

func generatePhotos(albums, perAlbum int) []Photo {
	photos := make([]Photo, 0, albums*perAlbum)
	id := 1
	for album := 1; album <= albums; album++ {
		for i := 0; i < perAlbum; i++ {
			photos = append(photos, Photo{
				AlbumID:      album,
				ID:           id,
				Title:        fmt.Sprintf("photo %d of album %d", id, album),
				URL:          fmt.Sprintf("https://via.placeholder.com/600/%06x", id),
				ThumbnailURL: fmt.Sprintf("https://via.placeholder.com/150/%06x", id),
			})
			id++
		}
	}
	return photos
}

// URL returns the mock server URL.
func (m *MockOrigin) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockOrigin) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockOrigin) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.lastRequest = nil
	m.lastUserAgent = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockOrigin) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockOrigin) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence serves the given responses in order for a path, repeating the last one.
func (m *MockOrigin) SetSequence(path string, responses ...MockResponse) {
	var mu sync.Mutex
	next := 0
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[next]
		if next < len(responses)-1 {
			next++
		}
		mu.Unlock()

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockOrigin) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestCountFor returns the number of requests for a request URI (path and query).
func (m *MockOrigin) RequestCountFor(requestURI string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[requestURI]
}

// LastUserAgent returns the User-Agent of the most recent request.
func (m *MockOrigin) LastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastUserAgent
}

// LastRequest returns a clone of the most recent request.
func (m *MockOrigin) LastRequest() *http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequest
}

// PhotosInAlbum returns the generated photos of an album.
func (m *MockOrigin) PhotosInAlbum(albumID int) []Photo {
	out := []Photo{}
	for _, p := range m.photos {
		if p.AlbumID == albumID {
			out = append(out, p)
		}
	}
	return out
}

// defaultHandler serves the generated data set like jsonplaceholder does.
func (m *MockOrigin) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch {
	case r.URL.Path == "/photos":
		out := m.photos
		if albumParam := r.URL.Query().Get("albumId"); albumParam != "" {
			albumID, _ := strconv.Atoi(albumParam)
			out = m.PhotosInAlbum(albumID)
		}
		writeJSON(w, http.StatusOK, out)

	case strings.HasPrefix(r.URL.Path, "/photos/"):
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/photos/"))
		if err != nil || id < 1 || id > len(m.photos) {
			writeJSON(w, http.StatusNotFound, struct{}{})
			return
		}
		writeJSON(w, http.StatusOK, m.photos[id-1])

	default:
		writeJSON(w, http.StatusNotFound, struct{}{})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response with jsonplaceholder's empty object body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 OK response whose body is not JSON.
func NewMalformedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       `<html>not json</html>`,
		Headers: map[string]string{
			"Content-Type": "text/html",
		},
	}
}
