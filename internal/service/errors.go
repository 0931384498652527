package service

import (
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/internal/reconcile"
	"github.com/mmynk/splitsettle/internal/storage"
)

// genericMessage hides internal details from callers; they are only logged.
const genericMessage = "could not update split"

// toConnectError maps engine and storage errors to RPC codes.
func toConnectError(op string, err error) error {
	switch {
	case errors.Is(err, calculator.ErrInvalidInput):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, reconcile.ErrSplitClosed):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, reconcile.ErrConcurrentModification):
		slog.Warn(op+" gave up after retries", "error", err)
		return connect.NewError(connect.CodeAborted, errors.New(genericMessage))
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}
	slog.Error(op+" failed", "error", err)
	return connect.NewError(connect.CodeInternal, errors.New(genericMessage))
}
