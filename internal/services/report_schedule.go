package services

import (
	"fmt"
	"strings"
	"time"
)

// missedSlotGrace is how late a first run may still deliver the slot it
// started after.
const missedSlotGrace = time.Hour

// ReportSchedule is a weekly delivery slot: a weekday and an hour in a fixed
// location.
type ReportSchedule struct {
	Weekday  time.Weekday
	Hour     int
	Location *time.Location
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter English day names.
func ParseWeekday(s string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday: %q", s)
	}
	return d, nil
}

func NewReportSchedule(weekday string, hour int, timezone string) (ReportSchedule, error) {
	d, err := ParseWeekday(weekday)
	if err != nil {
		return ReportSchedule{}, err
	}
	if hour < 0 || hour > 23 {
		return ReportSchedule{}, fmt.Errorf("report hour must be between 0 and 23, got %d", hour)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return ReportSchedule{}, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return ReportSchedule{Weekday: d, Hour: hour, Location: loc}, nil
}

func (s ReportSchedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Prev returns the latest slot at or before t.
func (s ReportSchedule) Prev(t time.Time) time.Time {
	local := t.In(s.location())
	back := (int(local.Weekday()) - int(s.Weekday) + 7) % 7
	slot := time.Date(local.Year(), local.Month(), local.Day()-back, s.Hour, 0, 0, 0, s.location())
	if slot.After(local) {
		slot = slot.AddDate(0, 0, -7)
	}
	return slot
}

// Next returns the first slot strictly after t.
func (s ReportSchedule) Next(t time.Time) time.Time {
	return s.Prev(t).AddDate(0, 0, 7)
}

// IsDue reports whether a slot has passed since lastRun. A process that has
// never run only delivers a slot it missed by less than missedSlotGrace, so
// a restart days later does not send a stale report.
func (s ReportSchedule) IsDue(lastRun, now time.Time) bool {
	slot := s.Prev(now)
	if lastRun.IsZero() {
		return now.Sub(slot) < missedSlotGrace
	}
	return lastRun.Before(slot)
}

func (s ReportSchedule) String() string {
	return fmt.Sprintf("%s %02d:00 %s", s.Weekday, s.Hour, s.location())
}
