package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"outpost/internal/domain/models"
	"outpost/internal/httputil"
)

type fakeVerifier struct {
	userID string
	err    error
}

func (f *fakeVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SupabaseClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: f.userID},
		Role:             "authenticated",
	}, nil
}

func (f *fakeVerifier) Close() error { return nil }

func authedHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := httputil.GetUserID(r.Context())
		if !ok {
			t.Error("user ID missing from context after auth")
		}
		if userID != wantUserID {
			t.Errorf("user ID = %q, want %q", userID, wantUserID)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	verifier := &fakeVerifier{userID: "user-123"}
	handler := Auth(verifier)(authedHandler(t, "user-123"))

	req := httptest.NewRequest("GET", "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_MissingHeader(t *testing.T) {
	verifier := &fakeVerifier{userID: "user-123"}
	handler := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without credentials")
	}))

	req := httptest.NewRequest("GET", "/api/v1/conversations", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("bad signature")}
	handler := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with invalid token")
	}))

	req := httptest.NewRequest("GET", "/api/v1/conversations", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_SkippedPaths(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("should not be called")}
	handler := Auth(verifier, "/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for skipped path", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc123", want: "abc123", ok: true},
		{name: "missing", header: "", ok: false},
		{name: "wrong scheme", header: "Basic abc123", ok: false},
		{name: "empty token", header: "Bearer ", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(req)
			if ok != tt.ok || got != tt.want {
				t.Errorf("BearerToken = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
