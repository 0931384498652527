// Package api defines the splitsettle.v1 RPC surface: message types, the
// JSON codec, and Connect handler and client constructors for SplitService
// and GroupService.
//
// Messages are plain Go structs serialized as JSON, so any Connect or HTTP
// client can call the procedures with Content-Type application/json.
package api

const (
	// SplitServiceName is the fully-qualified name of the SplitService service.
	SplitServiceName = "splitsettle.v1.SplitService"
	// GroupServiceName is the fully-qualified name of the GroupService service.
	GroupServiceName = "splitsettle.v1.GroupService"
)

// Procedure paths. They are the HTTP routes the handlers are mounted on.
const (
	SplitServiceCreateSplitProcedure       = "/splitsettle.v1.SplitService/CreateSplit"
	SplitServiceGetSplitProcedure          = "/splitsettle.v1.SplitService/GetSplit"
	SplitServiceListSplitsByGroupProcedure = "/splitsettle.v1.SplitService/ListSplitsByGroup"
	SplitServiceRecordPaymentProcedure     = "/splitsettle.v1.SplitService/RecordPayment"
	SplitServiceSetPaidForProcedure        = "/splitsettle.v1.SplitService/SetPaidFor"
	SplitServiceUpdateTotalProcedure       = "/splitsettle.v1.SplitService/UpdateTotal"
	SplitServiceSyncMembershipProcedure    = "/splitsettle.v1.SplitService/SyncMembership"
	SplitServiceFinalizeSplitProcedure     = "/splitsettle.v1.SplitService/FinalizeSplit"
	SplitServiceCancelSplitProcedure       = "/splitsettle.v1.SplitService/CancelSplit"
	SplitServiceNudgeUnpaidProcedure       = "/splitsettle.v1.SplitService/NudgeUnpaid"
	SplitServiceWatchSplitProcedure        = "/splitsettle.v1.SplitService/WatchSplit"

	GroupServiceCreateGroupProcedure      = "/splitsettle.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure         = "/splitsettle.v1.GroupService/GetGroup"
	GroupServiceAddMemberProcedure        = "/splitsettle.v1.GroupService/AddMember"
	GroupServiceGetGroupBalancesProcedure = "/splitsettle.v1.GroupService/GetGroupBalances"
)
