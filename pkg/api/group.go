package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// GroupServiceHandler is implemented by the server side of GroupService.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[Group], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[Group], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler for GroupService. It returns
// the path to mount the handler on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{withCodec()}, opts...)
	handlers := map[string]http.Handler{
		GroupServiceCreateGroupProcedure:      connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:         connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceAddMemberProcedure:        connect.NewUnaryHandler(GroupServiceAddMemberProcedure, svc.AddMember, opts...),
		GroupServiceGetGroupBalancesProcedure: connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
	}
	return "/" + GroupServiceName + "/", route(handlers)
}

// GroupServiceClient calls GroupService.
type GroupServiceClient struct {
	createGroup      *connect.Client[CreateGroupRequest, Group]
	getGroup         *connect.Client[GetGroupRequest, Group]
	addMember        *connect.Client[AddMemberRequest, AddMemberResponse]
	getGroupBalances *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
}

// NewGroupServiceClient constructs a client for the service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{withCodec()}, opts...)
	return &GroupServiceClient{
		createGroup:      connect.NewClient[CreateGroupRequest, Group](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:         connect.NewClient[GetGroupRequest, Group](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		addMember:        connect.NewClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL+GroupServiceAddMemberProcedure, opts...),
		getGroupBalances: connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[Group], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[Group], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}
