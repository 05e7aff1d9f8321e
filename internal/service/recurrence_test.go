package service_test

import (
	"testing"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/internal/service"
	"github.com/stretchr/testify/require"
)

func TestParseRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    string
		want    service.Rule
		wantErr bool
	}{
		{
			name: "weekly with bydays",
			rule: "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR",
			want: service.Rule{
				Freq:     service.FreqWeekly,
				Interval: 2,
				ByDay:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
			},
		},
		{
			name: "daily default interval",
			rule: "FREQ=DAILY",
			want: service.Rule{Freq: service.FreqDaily, Interval: 1},
		},
		{
			name: "monthly with count",
			rule: "FREQ=MONTHLY;COUNT=6",
			want: service.Rule{Freq: service.FreqMonthly, Interval: 1, Count: 6},
		},
		{name: "empty", rule: "  ", wantErr: true},
		{name: "no freq", rule: "INTERVAL=2", wantErr: true},
		{name: "bad freq", rule: "FREQ=HOURLY", wantErr: true},
		{name: "bad interval", rule: "FREQ=DAILY;INTERVAL=0", wantErr: true},
		{name: "bad byday", rule: "FREQ=WEEKLY;BYDAY=XX", wantErr: true},
		{name: "byday without weekly", rule: "FREQ=DAILY;BYDAY=MO", wantErr: true},
		{name: "until and count exclusive", rule: "FREQ=DAILY;UNTIL=2026-01-01;COUNT=3", wantErr: true},
		{name: "malformed part", rule: "FREQ=DAILY;NONSENSE", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := service.ParseRule(tt.rule)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, errs.ErrValidation)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func baseEvent(start, end time.Time) model.Event {
	return model.Event{
		EventUid: "ev-1",
		Name:     "AV club",
		Location: "Studio B",
		StartsAt: start,
		EndsAt:   end,
	}
}

func TestExpandOccurrences_WeeklyByDayBounds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	ev := baseEvent(
		time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)

	// 5 instances/week over a year is ~260, so the cap wins
	require.Len(t, occs, 200)
	horizon := now.AddDate(1, 0, 0)
	weekdays := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	for _, occ := range occs {
		require.False(t, occ.StartsAt.Before(now))
		require.False(t, occ.StartsAt.After(horizon))
		require.Contains(t, weekdays, occ.StartsAt.Weekday())
		require.Equal(t, 2*time.Hour, occ.EndsAt.Sub(occ.StartsAt))
	}
}

func TestExpandOccurrences_HorizonBoundsSparseRules(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	ev := baseEvent(
		time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;BYDAY=MO,WE,FR")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)

	// 3 instances/week stays under the cap, so the one year horizon bounds it
	require.Less(t, len(occs), 200)
	require.Len(t, occs, 157)
	horizon := now.AddDate(1, 0, 0)
	require.False(t, occs[len(occs)-1].StartsAt.After(horizon))
}

func TestExpandOccurrences_Deterministic(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;BYDAY=MO,TH;COUNT=10")
	require.NoError(t, err)

	first := service.ExpandOccurrences(ev, rule, now)
	second := service.ExpandOccurrences(ev, rule, now)
	require.Equal(t, first, second)
	require.Len(t, first, 10)
}

func TestExpandOccurrences_ByDayInterval(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), // a Monday
		time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;INTERVAL=2;BYDAY=MO;COUNT=3")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)
	require.Len(t, occs, 3)
	require.Equal(t, time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC), occs[0].StartsAt)
	require.Equal(t, time.Date(2026, 3, 16, 15, 0, 0, 0, time.UTC), occs[1].StartsAt)
	require.Equal(t, time.Date(2026, 3, 30, 15, 0, 0, 0, time.UTC), occs[2].StartsAt)
}

func TestExpandOccurrences_Count(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=DAILY;INTERVAL=2;COUNT=5")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)
	require.Len(t, occs, 5)
	for i := 1; i < len(occs); i++ {
		require.Equal(t, 48*time.Hour, occs[i].StartsAt.Sub(occs[i-1].StartsAt))
	}
	require.Equal(t, "ev-1#0", occs[0].OccurrenceUid)
	require.Equal(t, "ev-1#4", occs[4].OccurrenceUid)
}

func TestExpandOccurrences_Until(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 2, 13, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;UNTIL=2026-02-01")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)
	require.NotEmpty(t, occs)
	until := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for _, occ := range occs {
		require.False(t, occ.StartsAt.After(until))
	}
}

func TestExpandOccurrences_PastInstancesDropped(t *testing.T) {
	t.Parallel()

	// base start lies three weeks before "now"
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 5, 11, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 5, 11, 15, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=WEEKLY;COUNT=6")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)
	// COUNT counts from the base start, so the three past weeks consume
	// part of it and only the future remainder is emitted
	require.Len(t, occs, 3)
	for _, occ := range occs {
		require.False(t, occ.StartsAt.Before(now))
	}
}

func TestExpandOccurrences_MonthlyKeepsDayOfMonth(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ev := baseEvent(
		time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC),
	)
	rule, err := service.ParseRule("FREQ=MONTHLY;COUNT=4")
	require.NoError(t, err)

	occs := service.ExpandOccurrences(ev, rule, now)
	require.Len(t, occs, 4)
	for _, occ := range occs {
		require.Equal(t, 15, occ.StartsAt.Day())
	}
}
