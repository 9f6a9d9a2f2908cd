package assignment

import (
	"time"

	"github.com/google/uuid"
)

type ReportFilter struct {
	// пустой список - все пользователи из справочника
	UserIDs []uuid.UUID
	From    time.Time
	To      time.Time
}

type UserPerformance struct {
	UserID           uuid.UUID            `json:"user_id"`
	UserName         string               `json:"user_name"`
	TotalAssignments int                  `json:"total_assignments"`
	TotalCompletions int                  `json:"total_completions"`
	OnTime           int                  `json:"on_time"`
	Late             int                  `json:"late"`
	BySchedule       map[ScheduleKind]int `json:"by_schedule"`
	OnTimeRate       int                  `json:"on_time_rate"`
}

type OverallStats struct {
	TotalUsers        int `json:"total_users"`
	TotalAssignments  int `json:"total_assignments"`
	TotalCompletions  int `json:"total_completions"`
	OnTime            int `json:"on_time"`
	Late              int `json:"late"`
	AverageOnTimeRate int `json:"average_on_time_rate"`
}

type PerformanceReport struct {
	From    time.Time         `json:"from"`
	To      time.Time         `json:"to"`
	Users   []UserPerformance `json:"users"`
	Overall OverallStats      `json:"overall"`
}

type BucketKind string

const (
	BucketWeekly  BucketKind = "weekly"
	BucketMonthly BucketKind = "monthly"
)

type PeriodBucket struct {
	Key               string `json:"key"`
	TotalCompletions  int    `json:"total_completions"`
	OnTimeCompletions int    `json:"on_time_completions"`
	LateCompletions   int    `json:"late_completions"`
	ActiveUsers       int    `json:"active_users"`
	OnTimeRate        int    `json:"on_time_rate"`
}
