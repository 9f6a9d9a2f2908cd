// Package period вычисляет учётный период назначения для заданного момента времени.
//
// Все границы считаются в часовом поясе момента now. Функции чистые: никаких
// обращений к хранилищу и к текущему времени.
package period

import (
	"time"

	"routineTracker/internal/models/assignment"
)

// AdHocWindow - ширина окна для AS_PER_REQUIREMENT
const AdHocWindow = time.Second

// Resolution - точность границ периода. timestamptz в PostgreSQL хранит микросекунды,
// поэтому границы, взятые из now, обрезаются до неё во всех хранилищах одинаково.
const Resolution = time.Microsecond

// Window - закрытый интервал [Start, End]
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains проверяет, что окно другой записи целиком лежит внутри w
func (w Window) Contains(start, end time.Time) bool {
	return !start.Before(w.Start) && !end.After(w.End)
}

// Expired сравнивает с той же точностью, с какой построено окно
func (w Window) Expired(now time.Time) bool {
	return now.Truncate(Resolution).After(w.End)
}

// Compute возвращает период для вида расписания kind.
// start и end - необязательные даты назначения.
func Compute(kind assignment.ScheduleKind, start, end *time.Time, now time.Time) Window {
	now = now.Truncate(Resolution)
	start, end = truncated(start), truncated(end)

	switch kind {
	case assignment.ScheduleDaily:
		day := StartOfDay(now)
		return Window{
			Start: day,
			End:   endOfDay(day, 0),
		}

	case assignment.ScheduleWeekly:
		week := WeekStart(now)
		return Window{
			Start: week,
			End:   endOfDay(week.AddDate(0, 0, 6), 999*time.Millisecond),
		}

	case assignment.ScheduleMonthly:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		last := first.AddDate(0, 1, -1)
		return Window{
			Start: first,
			End:   endOfDay(last, 0),
		}

	case assignment.ScheduleDateRange:
		w := Window{Start: now, End: now}
		if start != nil {
			w.Start = *start
		}
		if end != nil {
			w.End = *end
		}
		return w

	case assignment.ScheduleSpecificDate:
		from := now
		if start != nil {
			from = *start
		}
		return Window{
			Start: from,
			End:   endOfDay(StartOfDay(from), 999*time.Millisecond),
		}

	case assignment.ScheduleAsPerRequirement:
		// каждое выполнение получает собственное окно, поэтому выполнений может быть сколько угодно
		return Window{
			Start: now,
			End:   now.Add(AdHocWindow),
		}
	}

	// неизвестный вид: окно нулевой ширины, сразу истёкшее
	return Window{Start: now, End: now}
}

func truncated(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Truncate(Resolution)
	return &v
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart - воскресенье 00:00 недели, в которую попадает t
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

func endOfDay(day time.Time, frac time.Duration) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(frac), day.Location())
}
