package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, user ID, duration, and any error codes/messages.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			logRPC(ctx, req.Spec().Procedure, start, err)
			return resp, err
		}
	}
}

func logRPC(ctx context.Context, procedure string, start time.Time, err error) {
	userID := GetUserID(ctx) // empty if pre-auth
	duration := time.Since(start).Milliseconds()
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			slog.Warn("RPC error",
				"procedure", procedure,
				"code", connectErr.Code(),
				"error", connectErr.Message(),
				"user_id", userID,
				"duration_ms", duration,
			)
		} else {
			slog.Error("RPC error",
				"procedure", procedure,
				"error", err,
				"user_id", userID,
				"duration_ms", duration,
			)
		}
		return
	}
	slog.Info("RPC ok",
		"procedure", procedure,
		"user_id", userID,
		"duration_ms", duration,
	)
}

// RequestLogger logs every HTTP request with the request id assigned by
// chi's RequestID middleware.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.Info("Request completed",
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
