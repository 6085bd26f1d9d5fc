package progress

import (
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
)

// DateLayout calendar date layout of StreakRecord.LastCompletedDate
const DateLayout = "2006-01-02"

// CalendarDate truncates t to the start of its day in t's own location
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open interval [start, end) covering the calendar day of now
func DayBounds(now time.Time) (time.Time, time.Time) {
	start := CalendarDate(now)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds returns the half-open interval of the monday based week containing at
func WeekBounds(at time.Time) (time.Time, time.Time) {
	day := CalendarDate(at)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// NextStreak applies one completion at now to rec.
//
// Dates are compared in now's location. A last completion dated after today
// leaves the count untouched and re-anchors the record on today.
func NextStreak(rec StreakRecord, now time.Time) StreakRecord {
	today := CalendarDate(now)
	yesterday := today.AddDate(0, 0, -1)

	next := rec
	last, err := time.ParseInLocation(DateLayout, rec.LastCompletedDate, now.Location())
	switch {
	case err != nil:
		next.CurrentStreak = 1
	case last.Equal(yesterday):
		next.CurrentStreak++
	case last.Before(yesterday):
		// first completion after a gap counts as day one
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastCompletedDate = today.Format(DateLayout)
	return next
}

// PickEligible chooses uniformly among challenges never attempted, or among the whole
// catalog once every challenge was attempted. intn must return a value in [0, n).
func PickEligible(catalog []*challenge.Challenge, entries []*ProgressEntry, intn func(n int) int) *challenge.Challenge {
	if len(catalog) == 0 {
		return nil
	}

	attempted := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		attempted[e.ChallengeID] = struct{}{}
	}
	fresh := make([]*challenge.Challenge, 0, len(catalog))
	for _, c := range catalog {
		if _, ok := attempted[c.ID]; !ok {
			fresh = append(fresh, c)
		}
	}

	if len(fresh) > 0 {
		return fresh[intn(len(fresh))]
	}
	return catalog[intn(len(catalog))]
}
