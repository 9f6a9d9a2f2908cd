package dto

import (
	"time"

	"routineTracker/internal/models/assignment"

	"github.com/google/uuid"
)

type CreateAssignmentRequest struct {
	Title        string     `json:"title"`
	ScheduleKind string     `json:"schedule_kind"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	AssigneeID   uuid.UUID  `json:"assignee_id"`
}

func (r CreateAssignmentRequest) ToInput() assignment.Input {
	return assignment.Input{
		Title:        r.Title,
		ScheduleKind: assignment.ScheduleKind(r.ScheduleKind),
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		AssigneeID:   r.AssigneeID,
	}
}

type UpdateAssignmentRequest struct {
	Title        *string    `json:"title,omitempty"`
	ScheduleKind *string    `json:"schedule_kind,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	ClearDates   bool       `json:"clear_dates,omitempty"`
	AssigneeID   *uuid.UUID `json:"assignee_id,omitempty"`
	IsActive     *bool      `json:"is_active,omitempty"`
	IsPaused     *bool      `json:"is_paused,omitempty"`
}

// AdminOnly - в запросе есть поля, которые может менять только администратор
func (r UpdateAssignmentRequest) AdminOnly() bool {
	return r.ClearDates || r.AssigneeID != nil || r.IsActive != nil
}

func (r UpdateAssignmentRequest) kind() *assignment.ScheduleKind {
	if r.ScheduleKind == nil {
		return nil
	}
	kind := assignment.ScheduleKind(*r.ScheduleKind)
	return &kind
}

func (r UpdateAssignmentRequest) ToAdminUpdate() assignment.AdminUpdate {
	return assignment.AdminUpdate{
		Title:        r.Title,
		ScheduleKind: r.kind(),
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		ClearDates:   r.ClearDates,
		AssigneeID:   r.AssigneeID,
		IsActive:     r.IsActive,
		IsPaused:     r.IsPaused,
	}
}

func (r UpdateAssignmentRequest) ToAssigneeUpdate() assignment.AssigneeUpdate {
	return assignment.AssigneeUpdate{
		Title:        r.Title,
		ScheduleKind: r.kind(),
		StartDate:    r.StartDate,
		EndDate:      r.EndDate,
		IsPaused:     r.IsPaused,
	}
}

type CompleteRequest struct {
	CompletionNote string `json:"completion_note"`
}

type AssignmentResponse struct {
	UUID          uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	ScheduleKind  string     `json:"schedule_kind"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	AssigneeID    uuid.UUID  `json:"assignee_id"`
	AssignedByID  uuid.UUID  `json:"assigned_by_id"`
	IsActive      bool       `json:"is_active"`
	IsPaused      bool       `json:"is_paused"`
	IsSelfCreated bool       `json:"is_self_created"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`

	Status      string     `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	IsOnTime    *bool      `json:"is_on_time,omitempty"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

func FromAssignment(a *assignment.Assignment) AssignmentResponse {
	return AssignmentResponse{
		UUID:          a.UUID,
		Title:         a.Title,
		ScheduleKind:  string(a.ScheduleKind),
		StartDate:     a.StartDate,
		EndDate:       a.EndDate,
		AssigneeID:    a.AssigneeID,
		AssignedByID:  a.AssignedByID,
		IsActive:      a.IsActive,
		IsPaused:      a.IsPaused,
		IsSelfCreated: a.IsSelfCreated,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func FromWithStatus(ws assignment.WithStatus) AssignmentResponse {
	res := FromAssignment(ws.Assignment)
	res.Status = string(ws.Status.Status)
	res.DueDate = ws.Status.DueDate
	res.CompletedAt = ws.Status.CompletedAt
	res.IsOnTime = ws.Status.IsOnTime
	res.PeriodStart = ws.Status.PeriodStart
	res.PeriodEnd = ws.Status.PeriodEnd
	return res
}

func FromWithStatusList(items []assignment.WithStatus) []AssignmentResponse {
	result := make([]AssignmentResponse, len(items))
	for i, item := range items {
		result[i] = FromWithStatus(item)
	}
	return result
}

type StatusResponse struct {
	AssignmentID uuid.UUID  `json:"assignment_id"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	IsOnTime     *bool      `json:"is_on_time,omitempty"`
	PeriodStart  *time.Time `json:"period_start,omitempty"`
	PeriodEnd    *time.Time `json:"period_end,omitempty"`
}

func FromStatus(ws assignment.WithStatus) StatusResponse {
	return StatusResponse{
		AssignmentID: ws.Assignment.UUID,
		Status:       string(ws.Status.Status),
		DueDate:      ws.Status.DueDate,
		CompletedAt:  ws.Status.CompletedAt,
		IsOnTime:     ws.Status.IsOnTime,
		PeriodStart:  ws.Status.PeriodStart,
		PeriodEnd:    ws.Status.PeriodEnd,
	}
}

type CompletionResponse struct {
	UUID            uuid.UUID `json:"id"`
	AssignmentID    uuid.UUID `json:"assignment_id"`
	AssignmentTitle string    `json:"assignment_title,omitempty"`
	ScheduleKind    string    `json:"schedule_kind,omitempty"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	CompletedByID   uuid.UUID `json:"completed_by_id"`
	CompletionNote  string    `json:"completion_note"`
	IsOnTime        bool      `json:"is_on_time"`
	CompletedAt     time.Time `json:"completed_at"`
}

func FromCompletion(c *assignment.CompletionView) CompletionResponse {
	return CompletionResponse{
		UUID:            c.UUID,
		AssignmentID:    c.AssignmentID,
		AssignmentTitle: c.AssignmentTitle,
		ScheduleKind:    string(c.ScheduleKind),
		PeriodStart:     c.PeriodStart,
		PeriodEnd:       c.PeriodEnd,
		CompletedByID:   c.CompletedByID,
		CompletionNote:  c.CompletionNote,
		IsOnTime:        c.IsOnTime,
		CompletedAt:     c.CompletedAt,
	}
}

func FromCompletionList(items []*assignment.CompletionView) []CompletionResponse {
	result := make([]CompletionResponse, len(items))
	for i, c := range items {
		result[i] = FromCompletion(c)
	}
	return result
}
