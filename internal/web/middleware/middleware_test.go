package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/king-kite/nexthrms-v2-sub002/internal/config"
)

func echoRemoteAddr() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	handler := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "not-a-cidr"})(echoRemoteAddr())

	tests := []struct {
		name   string
		remote string
		header string
		value  string
		want   string
	}{
		{"untrusted peer keeps address", "203.0.113.9:5000", "X-Real-IP", "1.2.3.4", "203.0.113.9:5000"},
		{"trusted CIDR uses X-Real-IP", "10.1.2.3:5000", "X-Real-IP", "1.2.3.4", "1.2.3.4"},
		{"trusted single IP", "192.168.1.5:80", "X-Real-IP", "1.2.3.4", "1.2.3.4"},
		{"forwarded skips trusted hops", "10.1.2.3:5000", "X-Forwarded-For", "5.6.7.8, 10.1.2.3", "5.6.7.8"},
		{"forwarded stops at nearest untrusted hop", "10.1.2.3:5000", "X-Forwarded-For", "1.1.1.1, 5.6.7.8", "5.6.7.8"},
		{"forwarded all trusted keeps address", "10.1.2.3:5000", "X-Forwarded-For", "10.9.9.9", "10.1.2.3:5000"},
		{"ipv4-mapped peer", "[::ffff:10.1.2.3]:5000", "X-Real-IP", "1.2.3.4", "1.2.3.4"},
		{"invalid header ignored", "10.1.2.3:5000", "X-Real-IP", "nonsense", "10.1.2.3:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set(tt.header, tt.value)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyAuthDisabled(t *testing.T) {
	handler := APIKeyAuth(&config.SecurityConfig{})(echoRemoteAddr())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/kinds", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestIsValidAPIKey(t *testing.T) {
	keys := []string{"alpha", "beta"}
	if !isValidAPIKey("beta", keys) {
		t.Error("beta should be valid")
	}
	if isValidAPIKey("gamma", keys) || isValidAPIKey("", keys) || isValidAPIKey("alpha", nil) {
		t.Error("unexpected match")
	}
}

func TestLoggerKeepsStatus(t *testing.T) {
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		status int
		want   slog.Level
	}{
		{http.StatusOK, slog.LevelInfo},
		{http.StatusCreated, slog.LevelInfo},
		{http.StatusUnprocessableEntity, slog.LevelWarn},
		{http.StatusTooManyRequests, slog.LevelWarn},
		{http.StatusInternalServerError, slog.LevelError},
	}
	for _, tt := range tests {
		if got := levelFor(tt.status); got != tt.want {
			t.Errorf("levelFor(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestLoggerCountsBytes(t *testing.T) {
	var rec *statusRecorder
	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec = w.(*statusRecorder)
		w.Write([]byte("hello"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec == nil || rec.written != 5 || rec.status != http.StatusOK {
		t.Errorf("recorder = %+v, want 5 bytes with status 200", rec)
	}
}
