package middleware

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsettle/internal/auth"
	"github.com/mmynk/splitsettle/internal/models"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
	// NameKey is the context key for storing the authenticated user's name.
	NameKey contextKey = "name"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// GetUser returns the caller stored in the context. The zero User means the
// request is anonymous.
func GetUser(ctx context.Context) models.User {
	name, _ := ctx.Value(NameKey).(string)
	return models.User{ID: GetUserID(ctx), Name: name, Email: GetEmail(ctx)}
}

// WithUser stores the caller in the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	ctx = context.WithValue(ctx, EmailKey, user.Email)
	return context.WithValue(ctx, NameKey, user.Name)
}

// authInterceptor validates bearer tokens on unary and streaming calls.
type authInterceptor struct {
	jwtManager *auth.JWTManager
	required   bool
}

// RequireAuth returns an interceptor that validates JWT tokens and requires authentication.
// It extracts the token from the Authorization header, validates it, and adds
// the caller to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.Interceptor {
	return &authInterceptor{jwtManager: jwtManager, required: true}
}

// OptionalAuth returns an interceptor that validates JWT tokens if present, but allows
// requests without authentication.
func OptionalAuth(jwtManager *auth.JWTManager) connect.Interceptor {
	return &authInterceptor{jwtManager: jwtManager}
}

func (a *authInterceptor) authenticate(ctx context.Context, header http.Header) (context.Context, error) {
	authHeader := header.Get("Authorization")
	if authHeader == "" {
		if a.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
		}
		return ctx, nil
	}

	// Parse Bearer token
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		if a.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
		}
		return ctx, nil
	}

	claims, err := a.jwtManager.Validate(parts[1])
	if err != nil {
		if a.required {
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		}
		// Optional auth ignores bad tokens.
		return ctx, nil
	}
	return WithUser(ctx, claims.User()), nil
}

func (a *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		ctx, err := a.authenticate(ctx, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (a *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := a.authenticate(ctx, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

// StaticUser returns an interceptor that marks every call as made by user.
// Used in tests and when authentication is disabled in development.
func StaticUser(user models.User) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			return next(WithUser(ctx, user), req)
		}
	}
}
