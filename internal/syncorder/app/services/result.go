package services

import "fmt"

// SweepResult counts the per-item outcomes of a requeue or retention sweep.
type SweepResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	IsSuccess    bool     `json:"is_success"`
	Messages     []string `json:"messages"`
}

func (r *SweepResult) succeeded() {
	r.SuccessCount++
	r.settle()
}

func (r *SweepResult) failed(format string, args ...any) {
	r.ErrorCount++
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
	r.settle()
}

func (r *SweepResult) merge(other SweepResult) {
	r.SuccessCount += other.SuccessCount
	r.ErrorCount += other.ErrorCount
	r.Messages = append(r.Messages, other.Messages...)
	r.settle()
}

func (r *SweepResult) settle() {
	r.IsSuccess = r.SuccessCount > 0 && r.ErrorCount == 0
}

func rejected(err error) SweepResult {
	return SweepResult{Messages: []string{err.Error()}}
}
