package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// SplitServiceHandler is implemented by the server side of SplitService.
type SplitServiceHandler interface {
	CreateSplit(context.Context, *connect.Request[CreateSplitRequest]) (*connect.Response[SplitView], error)
	GetSplit(context.Context, *connect.Request[GetSplitRequest]) (*connect.Response[SplitView], error)
	ListSplitsByGroup(context.Context, *connect.Request[ListSplitsByGroupRequest]) (*connect.Response[ListSplitsByGroupResponse], error)
	RecordPayment(context.Context, *connect.Request[RecordPaymentRequest]) (*connect.Response[SplitView], error)
	SetPaidFor(context.Context, *connect.Request[SetPaidForRequest]) (*connect.Response[SplitView], error)
	UpdateTotal(context.Context, *connect.Request[UpdateTotalRequest]) (*connect.Response[SplitView], error)
	SyncMembership(context.Context, *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error)
	FinalizeSplit(context.Context, *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error)
	CancelSplit(context.Context, *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error)
	NudgeUnpaid(context.Context, *connect.Request[SplitIDRequest]) (*connect.Response[NudgeUnpaidResponse], error)
	WatchSplit(context.Context, *connect.Request[SplitIDRequest], *connect.ServerStream[SplitEvent]) error
}

// NewSplitServiceHandler builds an HTTP handler for SplitService. It returns
// the path to mount the handler on.
func NewSplitServiceHandler(svc SplitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{withCodec()}, opts...)
	handlers := map[string]http.Handler{
		SplitServiceCreateSplitProcedure:       connect.NewUnaryHandler(SplitServiceCreateSplitProcedure, svc.CreateSplit, opts...),
		SplitServiceGetSplitProcedure:          connect.NewUnaryHandler(SplitServiceGetSplitProcedure, svc.GetSplit, opts...),
		SplitServiceListSplitsByGroupProcedure: connect.NewUnaryHandler(SplitServiceListSplitsByGroupProcedure, svc.ListSplitsByGroup, opts...),
		SplitServiceRecordPaymentProcedure:     connect.NewUnaryHandler(SplitServiceRecordPaymentProcedure, svc.RecordPayment, opts...),
		SplitServiceSetPaidForProcedure:        connect.NewUnaryHandler(SplitServiceSetPaidForProcedure, svc.SetPaidFor, opts...),
		SplitServiceUpdateTotalProcedure:       connect.NewUnaryHandler(SplitServiceUpdateTotalProcedure, svc.UpdateTotal, opts...),
		SplitServiceSyncMembershipProcedure:    connect.NewUnaryHandler(SplitServiceSyncMembershipProcedure, svc.SyncMembership, opts...),
		SplitServiceFinalizeSplitProcedure:     connect.NewUnaryHandler(SplitServiceFinalizeSplitProcedure, svc.FinalizeSplit, opts...),
		SplitServiceCancelSplitProcedure:       connect.NewUnaryHandler(SplitServiceCancelSplitProcedure, svc.CancelSplit, opts...),
		SplitServiceNudgeUnpaidProcedure:       connect.NewUnaryHandler(SplitServiceNudgeUnpaidProcedure, svc.NudgeUnpaid, opts...),
		SplitServiceWatchSplitProcedure:        connect.NewServerStreamHandler(SplitServiceWatchSplitProcedure, svc.WatchSplit, opts...),
	}
	return "/" + SplitServiceName + "/", route(handlers)
}

// route dispatches on the exact procedure path.
func route(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// SplitServiceClient calls SplitService.
type SplitServiceClient struct {
	createSplit       *connect.Client[CreateSplitRequest, SplitView]
	getSplit          *connect.Client[GetSplitRequest, SplitView]
	listSplitsByGroup *connect.Client[ListSplitsByGroupRequest, ListSplitsByGroupResponse]
	recordPayment     *connect.Client[RecordPaymentRequest, SplitView]
	setPaidFor        *connect.Client[SetPaidForRequest, SplitView]
	updateTotal       *connect.Client[UpdateTotalRequest, SplitView]
	syncMembership    *connect.Client[SplitIDRequest, SplitView]
	finalizeSplit     *connect.Client[SplitIDRequest, SplitView]
	cancelSplit       *connect.Client[SplitIDRequest, SplitView]
	nudgeUnpaid       *connect.Client[SplitIDRequest, NudgeUnpaidResponse]
	watchSplit        *connect.Client[SplitIDRequest, SplitEvent]
}

// NewSplitServiceClient constructs a client for the service at baseURL
// (for example, http://localhost:8080).
func NewSplitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SplitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{withCodec()}, opts...)
	return &SplitServiceClient{
		createSplit:       connect.NewClient[CreateSplitRequest, SplitView](httpClient, baseURL+SplitServiceCreateSplitProcedure, opts...),
		getSplit:          connect.NewClient[GetSplitRequest, SplitView](httpClient, baseURL+SplitServiceGetSplitProcedure, opts...),
		listSplitsByGroup: connect.NewClient[ListSplitsByGroupRequest, ListSplitsByGroupResponse](httpClient, baseURL+SplitServiceListSplitsByGroupProcedure, opts...),
		recordPayment:     connect.NewClient[RecordPaymentRequest, SplitView](httpClient, baseURL+SplitServiceRecordPaymentProcedure, opts...),
		setPaidFor:        connect.NewClient[SetPaidForRequest, SplitView](httpClient, baseURL+SplitServiceSetPaidForProcedure, opts...),
		updateTotal:       connect.NewClient[UpdateTotalRequest, SplitView](httpClient, baseURL+SplitServiceUpdateTotalProcedure, opts...),
		syncMembership:    connect.NewClient[SplitIDRequest, SplitView](httpClient, baseURL+SplitServiceSyncMembershipProcedure, opts...),
		finalizeSplit:     connect.NewClient[SplitIDRequest, SplitView](httpClient, baseURL+SplitServiceFinalizeSplitProcedure, opts...),
		cancelSplit:       connect.NewClient[SplitIDRequest, SplitView](httpClient, baseURL+SplitServiceCancelSplitProcedure, opts...),
		nudgeUnpaid:       connect.NewClient[SplitIDRequest, NudgeUnpaidResponse](httpClient, baseURL+SplitServiceNudgeUnpaidProcedure, opts...),
		watchSplit:        connect.NewClient[SplitIDRequest, SplitEvent](httpClient, baseURL+SplitServiceWatchSplitProcedure, opts...),
	}
}

func (c *SplitServiceClient) CreateSplit(ctx context.Context, req *connect.Request[CreateSplitRequest]) (*connect.Response[SplitView], error) {
	return c.createSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) GetSplit(ctx context.Context, req *connect.Request[GetSplitRequest]) (*connect.Response[SplitView], error) {
	return c.getSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) ListSplitsByGroup(ctx context.Context, req *connect.Request[ListSplitsByGroupRequest]) (*connect.Response[ListSplitsByGroupResponse], error) {
	return c.listSplitsByGroup.CallUnary(ctx, req)
}

func (c *SplitServiceClient) RecordPayment(ctx context.Context, req *connect.Request[RecordPaymentRequest]) (*connect.Response[SplitView], error) {
	return c.recordPayment.CallUnary(ctx, req)
}

func (c *SplitServiceClient) SetPaidFor(ctx context.Context, req *connect.Request[SetPaidForRequest]) (*connect.Response[SplitView], error) {
	return c.setPaidFor.CallUnary(ctx, req)
}

func (c *SplitServiceClient) UpdateTotal(ctx context.Context, req *connect.Request[UpdateTotalRequest]) (*connect.Response[SplitView], error) {
	return c.updateTotal.CallUnary(ctx, req)
}

func (c *SplitServiceClient) SyncMembership(ctx context.Context, req *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error) {
	return c.syncMembership.CallUnary(ctx, req)
}

func (c *SplitServiceClient) FinalizeSplit(ctx context.Context, req *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error) {
	return c.finalizeSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) CancelSplit(ctx context.Context, req *connect.Request[SplitIDRequest]) (*connect.Response[SplitView], error) {
	return c.cancelSplit.CallUnary(ctx, req)
}

func (c *SplitServiceClient) NudgeUnpaid(ctx context.Context, req *connect.Request[SplitIDRequest]) (*connect.Response[NudgeUnpaidResponse], error) {
	return c.nudgeUnpaid.CallUnary(ctx, req)
}

func (c *SplitServiceClient) WatchSplit(ctx context.Context, req *connect.Request[SplitIDRequest]) (*connect.ServerStreamForClient[SplitEvent], error) {
	return c.watchSplit.CallServerStream(ctx, req)
}
