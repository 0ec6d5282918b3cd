package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/expenses", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "plain HTTP gets no HSTS")

	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestHeadersMiddleware_SkipsEmptyValues(t *testing.T) {
	cfg := DefaultHeadersConfig()
	cfg.CSP = ""
	cfg.HSTSMaxAge = 0
	h := NewHeadersMiddleware(cfg).Middleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	_, hasCSP := rec.Header()["Content-Security-Policy"]
	assert.False(t, hasCSP)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector()

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"direct", "203.0.113.7:5555", nil, "203.0.113.7"},
		{"untrusted forwarder ignored", "203.0.113.7:5555", map[string]string{"X-Forwarded-For": "1.1.1.1"}, "203.0.113.7"},
		{"trusted proxy xff", "10.0.0.2:80", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "198.51.100.1"},
		{"trusted proxy real ip", "127.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"garbage forwarded", "127.0.0.1:80", map[string]string{"X-Forwarded-For": "nope"}, "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, d.ExtractClientIP(r))
		})
	}

	require.Error(t, d.AddTrustedProxy("not-a-cidr"))
	require.NoError(t, d.AddTrustedProxy("203.0.113.0/24"))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:5555"
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	assert.Equal(t, "1.1.1.1", d.ExtractClientIP(r))
}

func TestDetector_Middleware(t *testing.T) {
	d := NewDetector()
	called := 0
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/expenses?category=Food", nil))
	assert.Equal(t, int64(0), d.SuspiciousCount())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))
	probe := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	probe.Header.Set("User-Agent", "sqlmap/1.7")
	h.ServeHTTP(httptest.NewRecorder(), probe)

	assert.Equal(t, int64(2), d.SuspiciousCount())
	assert.Equal(t, 3, called, "flagged requests still reach the router")
}
