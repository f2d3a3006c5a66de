package schedule

import (
	"fmt"
	"slices"
	"time"
)

// Weekdays is Monday through Friday.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday,
}

// Mark is a fixed (weekday set, time of day, target state) rule.
type Mark struct {
	Days   []time.Weekday
	Hour   int
	Minute int
	On     bool
}

// DefaultMarks turn the fans on at 06:15 and off at 16:00 on weekdays.
var DefaultMarks = []Mark{
	{Days: Weekdays, Hour: 6, Minute: 15, On: true},
	{Days: Weekdays, Hour: 16, Minute: 0, On: false},
}

// Matches reports whether t falls on one of the mark's days and in its exact minute.
func (m Mark) Matches(t time.Time) bool {
	return slices.Contains(m.Days, t.Weekday()) && t.Hour() == m.Hour && t.Minute() == m.Minute
}

func (m Mark) String() string {
	state := "off"
	if m.On {
		state = "on"
	}
	return fmt.Sprintf("%02d:%02d %s", m.Hour, m.Minute, state)
}
