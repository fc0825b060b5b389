package ports

import "context"

// PageStatus is the outcome a PageProcessor reports for one page.
type PageStatus string

const (
	PageStatusProcessed  PageStatus = "processed"
	PageStatusNoMoreWork PageStatus = "no_more_work"
)

// PageResult summarizes the processing of one page of orders.
type PageResult struct {
	Status    PageStatus
	Processed int
	Succeeded int
	Failed    int
	Messages  []string
}

// PageProcessor hands a page of orders to the event-processing pipeline,
// which marks, transmits and settles each order.
type PageProcessor interface {
	ProcessPage(ctx context.Context, orderIDs []int64, via string) (PageResult, error)
}
