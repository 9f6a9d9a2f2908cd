package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Completion неизменяема после создания: одна запись на (assignment, period_start, period_end)
type Completion struct {
	UUID           uuid.UUID `json:"uuid" db:"uuid"`
	AssignmentID   uuid.UUID `json:"assignment_id" db:"assignment_id"`
	PeriodStart    time.Time `json:"period_start" db:"period_start"`
	PeriodEnd      time.Time `json:"period_end" db:"period_end"`
	CompletedByID  uuid.UUID `json:"completed_by_id" db:"completed_by_id"`
	CompletionNote string    `json:"completion_note" db:"completion_note"`
	IsOnTime       bool      `json:"is_on_time" db:"is_on_time"`
	CompletedAt    time.Time `json:"completed_at" db:"completed_at"`
}

// CompletionView - запись выполнения с денормализованными полями назначения для отображения
type CompletionView struct {
	Completion
	AssignmentTitle string       `json:"assignment_title"`
	ScheduleKind    ScheduleKind `json:"schedule_kind,omitempty"`
}

type CompletionFilter struct {
	AssignmentID  *uuid.UUID
	CompletedByID *uuid.UUID
	// границы по completed_at, включительно
	From *time.Time
	To   *time.Time
	// окно периода: period_start >= PeriodStartFrom и period_end <= PeriodEndTo
	PeriodStartFrom *time.Time
	PeriodEndTo     *time.Time
}
