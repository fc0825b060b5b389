package legacy

import "github.com/dejobratic/ordersync/internal/syncorder/domain"

// DeriveStatus reduces the distinct send flags of one order to a sync
// status. The first matching rule wins:
//
//	{}                       QUEUED
//	several values incl. 0   PARTIAL
//	{0}                      QUEUED
//	contains 2               ERROR
//	contains 1               SYNCED
//	otherwise                NOT_REGISTERED
//
// A mix of sent and error without pending resolves to ERROR.
func DeriveStatus(sends []Send) domain.Status {
	set := make(map[Send]bool, len(sends))
	for _, s := range sends {
		set[s] = true
	}

	switch {
	case len(set) == 0:
		return domain.StatusQueued
	case len(set) > 1 && set[SendPending]:
		return domain.StatusPartial
	case len(set) == 1 && set[SendPending]:
		return domain.StatusQueued
	case set[SendError]:
		return domain.StatusError
	case set[SendSent]:
		return domain.StatusSynced
	default:
		return domain.StatusNotRegistered
	}
}
