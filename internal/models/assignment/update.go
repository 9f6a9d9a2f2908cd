package assignment

import (
	"time"

	"github.com/google/uuid"
)

// Input для создания назначения администратором или самим исполнителем
type Input struct {
	Title        string
	ScheduleKind ScheduleKind
	StartDate    *time.Time
	EndDate      *time.Time
	AssigneeID   uuid.UUID
}

// AdminUpdate - всё, что может менять администратор. nil означает "не трогать".
type AdminUpdate struct {
	Title        *string
	ScheduleKind *ScheduleKind
	StartDate    *time.Time
	EndDate      *time.Time
	ClearDates   bool
	AssigneeID   *uuid.UUID
	IsActive     *bool
	IsPaused     *bool
}

// AssigneeUpdate - изменения со стороны исполнителя.
// Title/ScheduleKind/даты разрешены только для самостоятельно созданных назначений.
type AssigneeUpdate struct {
	Title        *string
	ScheduleKind *ScheduleKind
	StartDate    *time.Time
	EndDate      *time.Time
	IsPaused     *bool
}

func (u AssigneeUpdate) TouchesSchedule() bool {
	return u.Title != nil || u.ScheduleKind != nil || u.StartDate != nil || u.EndDate != nil
}

func (u AdminUpdate) Apply(a *Assignment) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.ScheduleKind != nil {
		a.ScheduleKind = *u.ScheduleKind
	}
	if u.ClearDates {
		a.StartDate = nil
		a.EndDate = nil
	}
	if u.StartDate != nil {
		start := *u.StartDate
		a.StartDate = &start
	}
	if u.EndDate != nil {
		end := *u.EndDate
		a.EndDate = &end
	}
	if u.AssigneeID != nil {
		a.AssigneeID = *u.AssigneeID
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	if u.IsPaused != nil {
		a.IsPaused = *u.IsPaused
	}
}

func (u AssigneeUpdate) Apply(a *Assignment) {
	AdminUpdate{
		Title:        u.Title,
		ScheduleKind: u.ScheduleKind,
		StartDate:    u.StartDate,
		EndDate:      u.EndDate,
		IsPaused:     u.IsPaused,
	}.Apply(a)
}
