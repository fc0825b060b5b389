package domain

import "time"

// Action names the kind of operation a history row records.
type Action string

const (
	ActionQueue        Action = "QUEUE"
	ActionProcessStart Action = "PROCESS_START"
	ActionProcessEnd   Action = "PROCESS_END"
	ActionMigrate      Action = "MIGRATE"
)

// Result is the outcome recorded on a history row.
type Result string

const (
	ResultSuccess Result = "SUCCESS"
	ResultError   Result = "ERROR"
	ResultNoop    Result = "NOOP"
)

// Keys always present in AdditionalInformation when a transition is attempted.
const (
	InfoOriginalStatus = "original_status"
	InfoNewStatus      = "new_status"
)

// History is an append-only audit row for a SyncOrder.
type History struct {
	EntityID              int64          `json:"entity_id"`
	SyncOrderID           int64          `json:"sync_order_id"`
	Timestamp             time.Time      `json:"timestamp"`
	Action                Action         `json:"action"`
	Via                   string         `json:"via"`
	Result                Result         `json:"result"`
	AdditionalInformation map[string]any `json:"additional_information"`
}

// NewHistory builds an unsaved history row for a sync order.
func NewHistory(syncOrder SyncOrder, action Action, via string, result Result, info map[string]any, at time.Time) History {
	merged := make(map[string]any, len(info))
	for k, v := range info {
		merged[k] = v
	}
	return History{
		SyncOrderID:           syncOrder.EntityID,
		Timestamp:             at.UTC(),
		Action:                action,
		Via:                   via,
		Result:                result,
		AdditionalInformation: merged,
	}
}

// TransitionInfo returns the info map every transition row starts from.
func TransitionInfo(original, next Status, extra map[string]any) map[string]any {
	info := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		info[k] = v
	}
	info[InfoOriginalStatus] = original.String()
	info[InfoNewStatus] = next.String()
	return info
}
