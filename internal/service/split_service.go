package service

import (
	"context"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsettle/internal/middleware"
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/realtime"
	"github.com/mmynk/splitsettle/internal/reconcile"
	"github.com/mmynk/splitsettle/pkg/api"
)

// SplitService implements the Connect SplitService.
type SplitService struct {
	engine *reconcile.Service
	hub    *realtime.Hub
}

var _ api.SplitServiceHandler = (*SplitService)(nil)

// NewSplitService creates a SplitService. hub feeds WatchSplit and may be nil,
// in which case watching is unavailable.
func NewSplitService(engine *reconcile.Service, hub *realtime.Hub) *SplitService {
	return &SplitService{engine: engine, hub: hub}
}

func requireID(field, value string) error {
	if value == "" {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s required", field))
	}
	return nil
}

// CreateSplit computes shares for a new split and stores it.
func (s *SplitService) CreateSplit(ctx context.Context, req *connect.Request[api.CreateSplitRequest]) (*connect.Response[api.SplitView], error) {
	msg := req.Msg
	slog.Info("CreateSplit request received",
		"group_id", msg.GroupID,
		"split_type", msg.SplitType,
		"participants", len(msg.Participants),
	)

	entries := make([]models.BreakdownEntry, len(msg.Participants))
	for i, p := range msg.Participants {
		entries[i] = fromAPIEntry(p)
	}

	res, err := s.engine.Create(ctx, reconcile.CreateInput{
		GroupID:   msg.GroupID,
		Title:     msg.Title,
		Total:     msg.TotalAmount,
		Subtotal:  msg.Subtotal,
		SplitType: models.SplitType(msg.SplitType),
		Entries:   entries,
		Items:     fromAPIItems(msg.Items),
		CreatedBy: middleware.GetUserID(ctx),
	})
	if err != nil {
		return nil, toConnectError("CreateSplit", err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// GetSplit returns the reconciled view of a split.
func (s *SplitService) GetSplit(ctx context.Context, req *connect.Request[api.GetSplitRequest]) (*connect.Response[api.SplitView], error) {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return nil, err
	}
	res, err := s.engine.Get(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("GetSplit", err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// ListSplitsByGroup returns the reconciled splits of a group.
func (s *SplitService) ListSplitsByGroup(ctx context.Context, req *connect.Request[api.ListSplitsByGroupRequest]) (*connect.Response[api.ListSplitsByGroupResponse], error) {
	if err := requireID("group_id", req.Msg.GroupID); err != nil {
		return nil, err
	}
	results, err := s.engine.ListByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("ListSplitsByGroup", err)
	}
	resp := &api.ListSplitsByGroupResponse{Splits: make([]api.SplitView, len(results))}
	for i, res := range results {
		resp.Splits[i] = *toAPIView(res)
	}
	return connect.NewResponse(resp), nil
}

// RecordPayment appends a payment to the ledger. A payment without a payer
// is attributed to the caller.
func (s *SplitService) RecordPayment(ctx context.Context, req *connect.Request[api.RecordPaymentRequest]) (*connect.Response[api.SplitView], error) {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return nil, err
	}
	payment := fromAPIPayment(req.Msg.Payment)
	if payment.PaidBy.Label() == "" {
		user := middleware.GetUser(ctx)
		payment.PaidBy = models.PayerRef{ID: user.ID, Name: user.Name, Email: user.Email}
	}

	res, err := s.engine.RecordPayment(ctx, req.Msg.SplitID, payment)
	if err != nil {
		return nil, toConnectError("RecordPayment", err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// SetPaidFor redirects an entry's surplus to another entry.
func (s *SplitService) SetPaidFor(ctx context.Context, req *connect.Request[api.SetPaidForRequest]) (*connect.Response[api.SplitView], error) {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return nil, err
	}
	if err := requireID("entry_id", req.Msg.EntryID); err != nil {
		return nil, err
	}
	res, err := s.engine.SetPaidFor(ctx, req.Msg.SplitID, req.Msg.EntryID, req.Msg.TargetID)
	if err != nil {
		return nil, toConnectError("SetPaidFor", err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// UpdateTotal changes the bill total and recomputes shares.
func (s *SplitService) UpdateTotal(ctx context.Context, req *connect.Request[api.UpdateTotalRequest]) (*connect.Response[api.SplitView], error) {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return nil, err
	}
	res, err := s.engine.UpdateTotal(ctx, req.Msg.SplitID, req.Msg.TotalAmount, req.Msg.Subtotal)
	if err != nil {
		return nil, toConnectError("UpdateTotal", err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// SyncMembership adds the group's late joiners to the split.
func (s *SplitService) SyncMembership(ctx context.Context, req *connect.Request[api.SplitIDRequest]) (*connect.Response[api.SplitView], error) {
	return s.splitOp(ctx, "SyncMembership", req.Msg.SplitID, s.engine.SyncMembership)
}

// FinalizeSplit freezes a calculated split.
func (s *SplitService) FinalizeSplit(ctx context.Context, req *connect.Request[api.SplitIDRequest]) (*connect.Response[api.SplitView], error) {
	return s.splitOp(ctx, "FinalizeSplit", req.Msg.SplitID, s.engine.Finalize)
}

// CancelSplit abandons an open split.
func (s *SplitService) CancelSplit(ctx context.Context, req *connect.Request[api.SplitIDRequest]) (*connect.Response[api.SplitView], error) {
	return s.splitOp(ctx, "CancelSplit", req.Msg.SplitID, s.engine.Cancel)
}

func (s *SplitService) splitOp(ctx context.Context, op, splitID string, fn func(context.Context, string) (*reconcile.Result, error)) (*connect.Response[api.SplitView], error) {
	if err := requireID("split_id", splitID); err != nil {
		return nil, err
	}
	res, err := fn(ctx, splitID)
	if err != nil {
		return nil, toConnectError(op, err)
	}
	return connect.NewResponse(toAPIView(res)), nil
}

// NudgeUnpaid queues reminder emails for everyone who still owes money.
func (s *SplitService) NudgeUnpaid(ctx context.Context, req *connect.Request[api.SplitIDRequest]) (*connect.Response[api.NudgeUnpaidResponse], error) {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return nil, err
	}
	n, err := s.engine.Nudge(ctx, req.Msg.SplitID)
	if err != nil {
		return nil, toConnectError("NudgeUnpaid", err)
	}
	return connect.NewResponse(&api.NudgeUnpaidResponse{Notified: n}), nil
}

// WatchSplit streams an event with the current version, then one event per
// change until the client disconnects.
func (s *SplitService) WatchSplit(ctx context.Context, req *connect.Request[api.SplitIDRequest], stream *connect.ServerStream[api.SplitEvent]) error {
	if err := requireID("split_id", req.Msg.SplitID); err != nil {
		return err
	}
	if s.hub == nil {
		return connect.NewError(connect.CodeUnimplemented, fmt.Errorf("watching is not enabled"))
	}

	// Subscribe before reading so no change between the two is missed.
	events, cancel := s.hub.Subscribe(req.Msg.SplitID)
	defer cancel()

	res, err := s.engine.Get(ctx, req.Msg.SplitID)
	if err != nil {
		return toConnectError("WatchSplit", err)
	}
	if err := stream.Send(&api.SplitEvent{
		SplitID: res.Split.ID,
		Version: res.Split.Version,
		Reason:  reconcile.ReasonRead,
		At:      res.Split.UpdatedAt,
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.Send(&api.SplitEvent{
				SplitID: ev.SplitID,
				Version: ev.Version,
				Reason:  ev.Reason,
				At:      ev.At.Unix(),
			}); err != nil {
				return err
			}
		}
	}
}
