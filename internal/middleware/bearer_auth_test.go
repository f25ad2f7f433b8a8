package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

type stubValidator struct {
	id   uuid.UUID
	role string
	err  error
}

func (s *stubValidator) ValidateToken(_ context.Context, token string) (uuid.UUID, string, error) {
	if s.err != nil {
		return uuid.Nil, "", s.err
	}
	return s.id, s.role, nil
}

func TestBearerAuthValidToken(t *testing.T) {
	id := uuid.New()
	validator := &stubValidator{id: id, role: "authority"}

	var got *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	BearerAuth(validator)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if got == nil {
		t.Fatal("principal missing from request context")
	}
	if got.ID != id || got.Role != "authority" {
		t.Errorf("principal: got %+v", got)
	}
}

func TestBearerAuthMissingHeader(t *testing.T) {
	validator := &stubValidator{id: uuid.New(), role: "farmer"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run without a token")
	})

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		BearerAuth(validator)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: got %d, want 401", header, rec.Code)
		}
	}
}

func TestBearerAuthInvalidToken(t *testing.T) {
	validator := &stubValidator{err: errors.New("expired")}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run with an invalid token")
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/pool", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	BearerAuth(validator)(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestPrincipalRoundTrip(t *testing.T) {
	p := &Principal{ID: uuid.New(), Role: "farmer"}
	ctx := WithPrincipal(context.Background(), p)
	if got := PrincipalFromCtx(ctx); got != p {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if got := PrincipalFromCtx(context.Background()); got != nil {
		t.Errorf("empty context: got %+v, want nil", got)
	}
}
