package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitsettle/internal/calculator"
	"github.com/mmynk/splitsettle/internal/membership"
	"github.com/mmynk/splitsettle/internal/middleware"
	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/reconcile"
	"github.com/mmynk/splitsettle/internal/storage"
	"github.com/mmynk/splitsettle/pkg/api"
)

// GroupService implements the Connect GroupService.
type GroupService struct {
	groups storage.GroupStore
	roster *membership.Source
	engine *reconcile.Service
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService. Members are added through the
// roster source so its cache stays current.
func NewGroupService(groups storage.GroupStore, roster *membership.Source, engine *reconcile.Service) *GroupService {
	return &GroupService{groups: groups, roster: roster, engine: engine}
}

// CreateGroup creates a new group. An authenticated caller who is not on the
// member list is added as the first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.Group], error) {
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("group name required"))
	}

	group := &models.Group{Name: name, Temporary: req.Msg.Temporary}
	if user := middleware.GetUser(ctx); user.ID != "" {
		group.Members = append(group.Members, models.Member{UserID: user.ID, Name: user.Name, Email: user.Email})
	}
	for _, m := range req.Msg.Members {
		member := models.Member{UserID: m.UserID, Name: strings.TrimSpace(m.Name), Email: strings.TrimSpace(m.Email)}
		if member.Name == "" && member.Email == "" && member.UserID == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("member needs a name, email or user id"))
		}
		if containsMember(group.Members, member) {
			continue
		}
		group.Members = append(group.Members, member)
	}

	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError("CreateGroup", err)
	}
	slog.Info("Group created", "group_id", group.ID, "members", len(group.Members))
	return connect.NewResponse(toAPIGroup(group)), nil
}

func containsMember(members []models.Member, m models.Member) bool {
	for _, existing := range members {
		if existing.Same(m) {
			return true
		}
	}
	return false
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.Group], error) {
	if err := requireID("group_id", req.Msg.GroupID); err != nil {
		return nil, err
	}
	group, err := s.groups.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError("GetGroup", err)
	}
	return connect.NewResponse(toAPIGroup(group)), nil
}

// AddMember adds a late joiner to a group and reconciles every open split of
// the group so the newcomer gets a share.
func (s *GroupService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	groupID := req.Msg.GroupID
	if err := requireID("group_id", groupID); err != nil {
		return nil, err
	}
	member := models.Member{
		UserID: req.Msg.Member.UserID,
		Name:   strings.TrimSpace(req.Msg.Member.Name),
		Email:  strings.TrimSpace(req.Msg.Member.Email),
	}
	if member.Name == "" && member.Email == "" && member.UserID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("member needs a name, email or user id"))
	}

	group, err := s.groups.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError("AddMember", err)
	}
	if containsMember(group.Members, member) {
		return nil, connect.NewError(connect.CodeAlreadyExists, fmt.Errorf("member already in group"))
	}
	if err := s.roster.AddMember(ctx, groupID, &member); err != nil {
		return nil, toConnectError("AddMember", err)
	}
	group.Members = append(group.Members, member)

	results, err := s.engine.SyncGroup(ctx, groupID)
	resp := &api.AddMemberResponse{Group: *toAPIGroup(group)}
	for _, res := range results {
		resp.Reconciled = append(resp.Reconciled, res.Split.ID)
	}
	if err != nil {
		// The member is added; splits not yet reconciled catch up on the
		// next SyncMembership.
		slog.Warn("Failed to reconcile group splits", "group_id", groupID, "error", err)
	}
	slog.Info("Member added", "group_id", groupID, "member_id", member.ID, "reconciled", len(resp.Reconciled))
	return connect.NewResponse(resp), nil
}

// GetGroupBalances calculates balances across all splits in a group.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	groupID := req.Msg.GroupID
	if err := requireID("group_id", groupID); err != nil {
		return nil, err
	}

	// Verify group exists
	if _, err := s.groups.GetGroup(ctx, groupID); err != nil {
		return nil, toConnectError("GetGroupBalances", err)
	}

	results, err := s.engine.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError("GetGroupBalances", err)
	}
	splits := make([]*models.Split, len(results))
	for i, res := range results {
		splits[i] = res.Split
	}

	balances, debts := calculator.CalculateGroupBalances(splits)

	names := make(map[calculator.EntryKey]string, len(balances))
	resp := &api.GetGroupBalancesResponse{
		Balances:  make([]api.MemberBalance, len(balances)),
		Transfers: make([]api.Transfer, len(debts)),
	}
	for i, b := range balances {
		names[b.Key] = b.MemberName
		resp.Balances[i] = api.MemberBalance{
			Key:        b.Key.String(),
			Name:       b.MemberName,
			NetBalance: b.NetBalance,
			TotalPaid:  b.TotalPaid,
			TotalOwed:  b.TotalOwed,
		}
	}
	for i, d := range debts {
		resp.Transfers[i] = api.Transfer{
			From:     d.From.String(),
			FromName: names[d.From],
			To:       d.To.String(),
			ToName:   names[d.To],
			Amount:   d.Amount,
		}
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"splits_count", len(splits),
		"members_count", len(balances),
		"transfers_count", len(debts),
	)
	return connect.NewResponse(resp), nil
}
