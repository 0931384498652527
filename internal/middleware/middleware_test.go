package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/auth"
	"github.com/mmynk/splitsettle/internal/models"
)

type fakeRequest struct {
	connect.AnyRequest
	header http.Header
}

func (r fakeRequest) Header() http.Header { return r.header }

func callUnary(t *testing.T, interceptor connect.Interceptor, header http.Header) (models.User, error) {
	t.Helper()
	var seen models.User
	next := connect.UnaryFunc(func(ctx context.Context, _ connect.AnyRequest) (connect.AnyResponse, error) {
		seen = GetUser(ctx)
		return nil, nil
	})
	_, err := interceptor.WrapUnary(next)(context.Background(), fakeRequest{header: header})
	return seen, err
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"})
	require.NoError(t, err)

	interceptor := RequireAuth(jwtManager)

	user, err := callUnary(t, interceptor, bearer(token))
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: "u1", Name: "Alice", Email: "alice@example.com"}, user)

	_, err = callUnary(t, interceptor, http.Header{})
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	_, err = callUnary(t, interceptor, bearer("garbage"))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	h := http.Header{}
	h.Set("Authorization", "Basic abc")
	_, err = callUnary(t, interceptor, h)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate(&models.User{ID: "u1"})
	require.NoError(t, err)

	interceptor := OptionalAuth(jwtManager)

	user, err := callUnary(t, interceptor, bearer(token))
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	user, err = callUnary(t, interceptor, http.Header{})
	require.NoError(t, err)
	assert.Empty(t, user.ID)

	user, err = callUnary(t, interceptor, bearer("garbage"))
	require.NoError(t, err)
	assert.Empty(t, user.ID)
}

func TestRequestLogger(t *testing.T) {
	handler := chimw.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
