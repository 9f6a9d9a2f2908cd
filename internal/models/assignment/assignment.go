package assignment

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	UUID          uuid.UUID    `json:"uuid" db:"uuid"`
	Title         string       `json:"title" db:"title"`
	ScheduleKind  ScheduleKind `json:"schedule_kind" db:"schedule_kind"`
	StartDate     *time.Time   `json:"start_date,omitempty" db:"start_date"`
	EndDate       *time.Time   `json:"end_date,omitempty" db:"end_date"`
	AssigneeID    uuid.UUID    `json:"assignee_id" db:"assignee_id"`
	AssignedByID  uuid.UUID    `json:"assigned_by_id" db:"assigned_by_id"`
	IsActive      bool         `json:"is_active" db:"is_active"`
	IsPaused      bool         `json:"is_paused" db:"is_paused"`
	IsSelfCreated bool         `json:"is_self_created" db:"is_self_created"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time   `json:"updated_at,omitempty" db:"updated_at"`
}

type ScheduleKind string

const (
	ScheduleDaily            ScheduleKind = "DAILY"
	ScheduleWeekly           ScheduleKind = "WEEKLY"
	ScheduleMonthly          ScheduleKind = "MONTHLY"
	ScheduleDateRange        ScheduleKind = "DATE_RANGE"
	ScheduleSpecificDate     ScheduleKind = "SPECIFIC_DATE"
	ScheduleAsPerRequirement ScheduleKind = "AS_PER_REQUIREMENT"
)

var ScheduleKinds = []ScheduleKind{
	ScheduleDaily,
	ScheduleWeekly,
	ScheduleMonthly,
	ScheduleDateRange,
	ScheduleSpecificDate,
	ScheduleAsPerRequirement,
}

func (k ScheduleKind) Valid() bool {
	for _, known := range ScheduleKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Filter для выборки назначений; нулевые поля не фильтруют
type Filter struct {
	AssigneeID *uuid.UUID
	IsActive   *bool
}

type Pagination struct {
	Page  int
	Limit int
}

const DefaultLimit = 20
const MaxLimit = 500

// Normalize приводит страницу и лимит к допустимым значениям
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Pagination) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
