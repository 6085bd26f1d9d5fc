package progress

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC)

func TestNextStreak(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		rec  StreakRecord
		want StreakRecord
	}{
		{
			name: "completed yesterday extends the streak",
			rec:  StreakRecord{CurrentStreak: 3, LongestStreak: 3, LastCompletedDate: "2024-03-09"},
			want: StreakRecord{CurrentStreak: 4, LongestStreak: 4, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "extending below the high-water mark keeps longest",
			rec:  StreakRecord{CurrentStreak: 3, LongestStreak: 10, LastCompletedDate: "2024-03-09"},
			want: StreakRecord{CurrentStreak: 4, LongestStreak: 10, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "gap resets to day one",
			rec:  StreakRecord{CurrentStreak: 7, LongestStreak: 7, LastCompletedDate: "2024-03-05"},
			want: StreakRecord{CurrentStreak: 1, LongestStreak: 7, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "same day is counted once",
			rec:  StreakRecord{CurrentStreak: 2, LongestStreak: 5, LastCompletedDate: "2024-03-10"},
			want: StreakRecord{CurrentStreak: 2, LongestStreak: 5, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "last completion in the future keeps the count",
			rec:  StreakRecord{CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: "2024-03-12"},
			want: StreakRecord{CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "new record starts at one",
			rec:  StreakRecord{},
			want: StreakRecord{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "epoch anchor starts at one",
			rec:  StreakRecord{LastCompletedDate: "1970-01-01"},
			want: StreakRecord{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: "2024-03-10"},
		},
		{
			name: "month boundary",
			now:  time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
			rec:  StreakRecord{CurrentStreak: 1, LongestStreak: 1, LastCompletedDate: "2024-02-29"},
			want: StreakRecord{CurrentStreak: 2, LongestStreak: 2, LastCompletedDate: "2024-03-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := tt.now
			if now.IsZero() {
				now = testNow
			}
			assert.Equal(t, tt.want, NextStreak(tt.rec, now))
		})
	}
}

func TestNextStreak_UsesCallerCalendarDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	rec := StreakRecord{CurrentStreak: 3, LongestStreak: 3, LastCompletedDate: "2024-03-09"}
	instant := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)

	// still the 9th in UTC
	assert.Equal(t, 3, NextStreak(rec, instant).CurrentStreak)
	// already the 10th in Berlin
	next := NextStreak(rec, instant.In(berlin))
	assert.Equal(t, 4, next.CurrentStreak)
	assert.Equal(t, "2024-03-10", next.LastCompletedDate)
}

func TestNextStreak_LongestNeverDecreases(t *testing.T) {
	rec := StreakRecord{}
	now := testNow
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		now = now.AddDate(0, 0, rng.IntN(3))
		next := NextStreak(rec, now)
		require.GreaterOrEqual(t, next.LongestStreak, rec.LongestStreak)
		require.GreaterOrEqual(t, next.LongestStreak, next.CurrentStreak)
		require.GreaterOrEqual(t, next.CurrentStreak, 1)
		rec = next
	}
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(testNow)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), end)

	// spring forward day in Berlin is 23 hours long
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	start, end = DayBounds(time.Date(2024, 3, 31, 12, 0, 0, 0, berlin))
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestWeekBounds(t *testing.T) {
	// sunday belongs to the week starting the previous monday
	start, end := WeekBounds(testNow)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), end)

	start, _ = WeekBounds(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), start)
}

func makeCatalog(n int) []*challenge.Challenge {
	catalog := make([]*challenge.Challenge, n)
	for i := range catalog {
		catalog[i] = &challenge.Challenge{ID: fmt.Sprintf("c%d", i)}
	}
	return catalog
}

func TestPickEligible(t *testing.T) {
	assert.Nil(t, PickEligible(nil, nil, rand.IntN))

	catalog := makeCatalog(3)
	entries := []*ProgressEntry{{ChallengeID: "c0"}, {ChallengeID: "c2"}, {ChallengeID: "c0"}}
	for i := 0; i < 50; i++ {
		assert.Equal(t, "c1", PickEligible(catalog, entries, rand.IntN).ID)
	}

	// exhausted catalog repeats
	entries = append(entries, &ProgressEntry{ChallengeID: "c1"})
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[PickEligible(catalog, entries, rand.IntN).ID] = true
	}
	assert.Len(t, seen, 3)
}

func TestPickEligible_NeverRepeatsWhileFreshRemain(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for round := 0; round < 100; round++ {
		catalog := makeCatalog(1 + rng.IntN(10))
		var entries []*ProgressEntry
		attempted := map[string]bool{}
		for _, c := range catalog {
			if rng.IntN(2) == 0 {
				entries = append(entries, &ProgressEntry{ChallengeID: c.ID})
				attempted[c.ID] = true
			}
		}

		got := PickEligible(catalog, entries, rng.IntN)
		require.NotNil(t, got)
		if len(attempted) < len(catalog) {
			assert.False(t, attempted[got.ID], "picked attempted challenge %s", got.ID)
		}
	}
}
