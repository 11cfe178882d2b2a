package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBuildURL(t *testing.T) {
	c := NewClient("http://127.0.0.1:8000/", Options{})

	tests := []struct {
		name     string
		endpoint string
		params   map[string]string
		want     string
	}{
		{"no params", "/permits", nil, "http://127.0.0.1:8000/permits"},
		{"empty values omitted", "/permits", map[string]string{"applicant": "", "status": ""}, "http://127.0.0.1:8000/permits"},
		{"sorted keys", "/permits/nearby", map[string]string{"lon": "-122.4", "lat": "37.7", "radius": "1.0"},
			"http://127.0.0.1:8000/permits/nearby?lat=37.7&lon=-122.4&radius=1.0"},
		{"escaped", "/permits", map[string]string{"applicant": "Joe's Tacos"}, "http://127.0.0.1:8000/permits?applicant=Joe%27s+Tacos"},
		{"missing slash", "permits", map[string]string{"status": "APPROVED"}, "http://127.0.0.1:8000/permits?status=APPROVED"},
		{"endpoint with query", "/permits?applicant=x", map[string]string{"status": "APPROVED"},
			"http://127.0.0.1:8000/permits?applicant=x&status=APPROVED"},
		{"endpoint query sorted with params", "/permits?status=APPROVED", map[string]string{"applicant": "x"},
			"http://127.0.0.1:8000/permits?applicant=x&status=APPROVED"},
		{"param overrides endpoint query", "/permits?status=REQUESTED", map[string]string{"status": "APPROVED"},
			"http://127.0.0.1:8000/permits?status=APPROVED"},
		{"endpoint query kept without params", "/permits?status=APPROVED", nil, "http://127.0.0.1:8000/permits?status=APPROVED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.BuildURL(tt.endpoint, tt.params))
		})
	}
}

func TestForwardSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/permits", r.URL.Path)
		assert.Equal(t, "Joe's Tacos", r.URL.Query().Get("applicant"))
		assert.False(t, r.URL.Query().Has("status"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"applicant":"Joe's Tacos","status":"APPROVED"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, Options{Logger: zaptest.NewLogger(t)})
	data, err := c.Forward(context.Background(), "/permits", map[string]string{"applicant": "Joe's Tacos", "status": ""})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"applicant":"Joe's Tacos","status":"APPROVED"}]`, string(data))
}

func TestForwardErrorMessages(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"error field", http.StatusBadRequest, `{"error":"bad request"}`, "bad request"},
		{"message field", http.StatusInternalServerError, `{"message":"database unavailable"}`, "database unavailable"},
		{"detail string", http.StatusUnprocessableEntity, `{"detail":"lat must be a number"}`, "lat must be a number"},
		{"detail list ignored", http.StatusUnprocessableEntity, `{"detail":[{"msg":"x"}]}`, "HTTP error! status: 422"},
		{"no body", http.StatusNotFound, ``, "HTTP error! status: 404"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP error! status: 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, Options{}).Forward(context.Background(), "/permits", nil)
			var reqErr *RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.status, reqErr.Status)
			assert.Equal(t, tt.want, reqErr.Error())
		})
	}
}

func TestForwardInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, Options{}).Forward(context.Background(), "/permits", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, reqErr.Message, "invalid JSON")
}

func TestForwardTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	origin := srv.URL
	srv.Close()

	_, err := NewClient(origin, Options{}).Forward(context.Background(), "/permits", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.Status)
	assert.NotEmpty(t, reqErr.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestForwardTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, Options{Timeout: 50 * time.Millisecond})
	_, err := c.Forward(context.Background(), "/permits", nil)
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Zero(t, reqErr.Status)
}
