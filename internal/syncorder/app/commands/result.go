package commands

import (
	"fmt"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
)

// ActionResult is returned by every sync action. History is nil when the
// audit row could not be written.
type ActionResult struct {
	Success   bool              `json:"success"`
	SyncOrder *domain.SyncOrder `json:"sync_order,omitempty"`
	History   *domain.History   `json:"history,omitempty"`
	Messages  []string          `json:"messages,omitempty"`
}

func (r *ActionResult) addMessage(format string, args ...any) {
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

// Outcome is the history result of the action, or ERROR when no row exists.
func (r ActionResult) Outcome() domain.Result {
	if r.History == nil {
		return domain.ResultError
	}
	return r.History.Result
}
