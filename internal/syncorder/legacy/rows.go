// Package legacy migrates per-line sync flags from the previous integration
// into the per-order sync status model.
package legacy

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/dejobratic/ordersync/internal/syncorder/domain"
	"github.com/dejobratic/ordersync/internal/syncorder/ports"
)

// Send is the legacy per-line flag.
type Send int

const (
	SendPending Send = 0
	SendSent    Send = 1
	SendError   Send = 2
)

// Line is one validated legacy row.
type Line struct {
	OrderID     int64
	OrderItemID int64
	Send        Send
}

// Group holds the distinct send flags of one order, sorted ascending.
type Group struct {
	OrderID int64
	Sends   []Send
}

// Batch is the outcome of parsing one page of rows.
type Batch struct {
	Lines []Line
	// Rejected holds orders with at least one invalid row.
	Rejected map[int64]bool
	// LastOrderID is the highest order id seen in the page, valid or not.
	LastOrderID int64
}

// ParseRows validates raw rows. A row with a missing or non-numeric field is
// rejected along with every other line of its order, and all rejections are
// returned together as a *domain.ValidationError alongside the valid lines.
func ParseRows(rows []ports.LegacyRow) (Batch, error) {
	batch := Batch{Rejected: make(map[int64]bool)}
	var rowErrors []domain.RowError

	for i, row := range rows {
		orderRaw, ok := row[ports.LegacyKeyOrderID]
		if !ok || orderRaw == nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeyOrderID, Reason: "missing"})
			continue
		}
		orderID, err := toInt64(orderRaw)
		if err != nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeyOrderID, Reason: err.Error()})
			continue
		}
		if orderID > batch.LastOrderID {
			batch.LastOrderID = orderID
		}

		itemRaw, ok := row[ports.LegacyKeyOrderItemID]
		if !ok || itemRaw == nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeyOrderItemID, Reason: "missing"})
			batch.Rejected[orderID] = true
			continue
		}
		itemID, err := toInt64(itemRaw)
		if err != nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeyOrderItemID, Reason: err.Error()})
			batch.Rejected[orderID] = true
			continue
		}

		sendRaw, ok := row[ports.LegacyKeySend]
		if !ok || sendRaw == nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeySend, Reason: "missing"})
			batch.Rejected[orderID] = true
			continue
		}
		send, err := toInt64(sendRaw)
		if err != nil {
			rowErrors = append(rowErrors, domain.RowError{Index: i, Field: ports.LegacyKeySend, Reason: err.Error()})
			batch.Rejected[orderID] = true
			continue
		}

		batch.Lines = append(batch.Lines, Line{OrderID: orderID, OrderItemID: itemID, Send: Send(send)})
	}

	if len(rowErrors) > 0 {
		return batch, &domain.ValidationError{Rows: rowErrors}
	}
	return batch, nil
}

// Groups returns the distinct sends per order for every order that was not
// rejected, ordered by order id.
func (b Batch) Groups() []Group {
	sends := make(map[int64]map[Send]bool)
	for _, line := range b.Lines {
		if b.Rejected[line.OrderID] {
			continue
		}
		if sends[line.OrderID] == nil {
			sends[line.OrderID] = make(map[Send]bool)
		}
		sends[line.OrderID][line.Send] = true
	}

	groups := make([]Group, 0, len(sends))
	for orderID, set := range sends {
		g := Group{OrderID: orderID}
		for s := range set {
			g.Sends = append(g.Sends, s)
		}
		sort.Slice(g.Sends, func(i, j int) bool { return g.Sends[i] < g.Sends[j] })
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].OrderID < groups[j].OrderID })
	return groups
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return parseInt(n.String())
	case string:
		return parseInt(n)
	case []byte:
		return parseInt(string(n))
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", s)
	}
	return n, nil
}
