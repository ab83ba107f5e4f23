package origin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/photo-cache/internal/testutil"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := DefaultConfig("photo-cache-test/1.0")
	cfg.BaseURL = baseURL
	cfg.Retry = fastRetryConfig()

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("photo-cache/1.0"),
			expectError: false,
		},
		{
			name: "empty base url",
			config: Config{
				UserAgent: "photo-cache/1.0",
				Retry:     DefaultRetryConfig(),
			},
			expectError: true,
			errorMsg:    "base url is required",
		},
		{
			name: "unsupported scheme",
			config: Config{
				BaseURL:   "ftp://example.com",
				UserAgent: "photo-cache/1.0",
				Retry:     DefaultRetryConfig(),
			},
			expectError: true,
			errorMsg:    `base url must be http or https (got "ftp://example.com")`,
		},
		{
			name: "empty user agent",
			config: Config{
				BaseURL: DefaultBaseURL,
				Retry:   DefaultRetryConfig(),
			},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
		{
			name: "no attempts",
			config: Config{
				BaseURL:   DefaultBaseURL,
				UserAgent: "photo-cache/1.0",
			},
			expectError: true,
			errorMsg:    "retry max_attempts must be >= 1 (got 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if client == nil {
				t.Error("Client is nil")
			}
		})
	}
}

func TestClient_ListPhotos(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	body, err := client.ListPhotos(context.Background(), url.Values{"albumId": []string{"3"}})
	if err != nil {
		t.Fatalf("ListPhotos() failed: %v", err)
	}

	var photos []testutil.Photo
	if err := json.Unmarshal(body, &photos); err != nil {
		t.Fatalf("response is not a photo list: %v", err)
	}
	if len(photos) != testutil.PhotosPerAlbum {
		t.Errorf("len(photos) = %d, want %d", len(photos), testutil.PhotosPerAlbum)
	}
	for _, p := range photos {
		if p.AlbumID != 3 {
			t.Errorf("photo %d has albumId %d, want 3", p.ID, p.AlbumID)
		}
	}

	if got := mock.RequestCountFor("/photos?albumId=3"); got != 1 {
		t.Errorf("origin requests for /photos?albumId=3 = %d, want 1", got)
	}
	if got := mock.LastUserAgent(); got != "photo-cache-test/1.0" {
		t.Errorf("User-Agent = %q, want photo-cache-test/1.0", got)
	}
}

func TestClient_GetPhoto(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	body, err := client.GetPhoto(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetPhoto() failed: %v", err)
	}

	var photo testutil.Photo
	if err := json.Unmarshal(body, &photo); err != nil {
		t.Fatalf("response is not a photo: %v", err)
	}
	if photo.ID != 7 {
		t.Errorf("photo.ID = %d, want 7", photo.ID)
	}
}

func TestClient_GetPhoto_NotFound(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	_, err := client.GetPhoto(context.Background(), "99999")
	if err == nil {
		t.Fatal("Expected error for unknown photo")
	}
	if StatusCode(err) != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", StatusCode(err))
	}
	if mock.RequestCount() != 1 {
		t.Errorf("origin requests = %d, want 1 (client errors are not retried)", mock.RequestCount())
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	mock.SetSequence("/photos/1",
		testutil.NewServerErrorResponse(),
		testutil.NewServerErrorResponse(),
		testutil.NewJSONResponse(`{"id":1}`),
	)

	client := newTestClient(t, mock.URL())

	body, err := client.GetPhoto(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetPhoto() failed: %v", err)
	}
	if string(body) != `{"id":1}` {
		t.Errorf("body = %s, want {\"id\":1}", body)
	}
	if mock.RequestCount() != 3 {
		t.Errorf("origin requests = %d, want 3", mock.RequestCount())
	}
}

func TestClient_RetryExhausted(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	mock.SetResponse("/photos", testutil.NewServerErrorResponse())

	client := newTestClient(t, mock.URL())

	_, err := client.ListPhotos(context.Background(), url.Values{"albumId": []string{"1"}})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if StatusCode(err) != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", StatusCode(err))
	}
	if mock.RequestCount() != 3 {
		t.Errorf("origin requests = %d, want 3", mock.RequestCount())
	}
}

func TestClient_MalformedBody(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	mock.SetResponse("/photos/2", testutil.NewMalformedResponse())

	client := newTestClient(t, mock.URL())

	_, err := client.GetPhoto(context.Background(), "2")
	var oe *Error
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *Error", err)
	}
	if oe.ErrorClass != ErrorClassDecode {
		t.Errorf("ErrorClass = %v, want %v", oe.ErrorClass, ErrorClassDecode)
	}
	if mock.RequestCount() != 1 {
		t.Errorf("origin requests = %d, want 1 (decode errors are not retried)", mock.RequestCount())
	}
}

func TestClient_NetworkError(t *testing.T) {
	mock := testutil.NewMockOrigin()
	addr := mock.URL()
	mock.Close()

	client := newTestClient(t, addr)

	_, err := client.GetPhoto(context.Background(), "1")
	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	var oe *Error
	if !errors.As(err, &oe) || oe.ErrorClass != ErrorClassNetwork {
		t.Errorf("error = %v, want network *Error", err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	mock.SetResponse("/photos/3", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       `{"id":3}`,
		Delay:      500 * time.Millisecond,
	})

	client := newTestClient(t, mock.URL())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.GetPhoto(ctx, "3")
	if err == nil {
		t.Fatal("Expected error after context deadline")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_PathEscaping(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	_, _ = client.GetPhoto(context.Background(), "1?albumId=2")

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	if req.URL.RawQuery != "" {
		t.Errorf("id leaked into query string: %q", req.URL.RawQuery)
	}
}

func TestClient_PathSegmentKeepsSlash(t *testing.T) {
	mock := testutil.NewMockOrigin()
	defer mock.Close()

	client := newTestClient(t, mock.URL())

	_, _ = client.GetPhoto(context.Background(), "a/b")

	req := mock.LastRequest()
	if req == nil {
		t.Fatal("no request recorded")
	}
	if got := req.URL.EscapedPath(); got != "/photos/a%2Fb" {
		t.Errorf("escaped path = %q, want /photos/a%%2Fb", got)
	}
	if got := req.URL.Path; got != "/photos/a/b" {
		t.Errorf("decoded path = %q, want /photos/a/b", got)
	}
}
