package assignment

import "time"

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOverdue   Status = "OVERDUE"
	StatusCompleted Status = "COMPLETED"
)

// StatusResult вычисляется на лету и нигде не хранится
type StatusResult struct {
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsOnTime    *bool      `json:"is_on_time,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

type WithStatus struct {
	Assignment *Assignment  `json:"assignment"`
	Status     StatusResult `json:"status"`
}

type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
	Completed int `json:"completed"`
	Paused    int `json:"paused"`
}
