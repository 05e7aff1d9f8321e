package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/pkg/errors"
)

type Frequency string

const (
	FreqDaily   Frequency = "DAILY"
	FreqWeekly  Frequency = "WEEKLY"
	FreqMonthly Frequency = "MONTHLY"
	FreqYearly  Frequency = "YEARLY"
)

const (
	// expansion never emits more instances than this, whatever the rule says
	maxOccurrences = 200
	// nor anything beyond one year from "now"
	expansionHorizon = 365 * 24 * time.Hour
)

var weekdays = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// Rule is a parsed RRULE-like recurrence description.
type Rule struct {
	Freq     Frequency
	Interval int
	ByDay    []time.Weekday
	Until    *time.Time
	Count    int
}

// ParseRule parses "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE,FR;UNTIL=2026-06-01".
// UNTIL and COUNT are mutually exclusive; BYDAY only applies to WEEKLY.
func ParseRule(s string) (Rule, error) {
	rule := Rule{Interval: 1}
	if strings.TrimSpace(s) == "" {
		return Rule{}, errors.Wrap(errs.ErrValidation, "empty recurrence rule")
	}
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return Rule{}, errors.Wrapf(errs.ErrValidation, "malformed rule part %q", part)
		}
		switch strings.ToUpper(key) {
		case "FREQ":
			freq := Frequency(strings.ToUpper(value))
			switch freq {
			case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
				rule.Freq = freq
			default:
				return Rule{}, errors.Wrapf(errs.ErrValidation, "unknown FREQ %q", value)
			}
		case "INTERVAL":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, errors.Wrapf(errs.ErrValidation, "invalid INTERVAL %q", value)
			}
			rule.Interval = n
		case "BYDAY":
			for _, code := range strings.Split(value, ",") {
				day, ok := weekdays[strings.ToUpper(strings.TrimSpace(code))]
				if !ok {
					return Rule{}, errors.Wrapf(errs.ErrValidation, "unknown BYDAY code %q", code)
				}
				rule.ByDay = append(rule.ByDay, day)
			}
		case "UNTIL":
			t, err := parseRuleTime(value)
			if err != nil {
				return Rule{}, errors.Wrapf(errs.ErrValidation, "invalid UNTIL %q", value)
			}
			rule.Until = &t
		case "COUNT":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return Rule{}, errors.Wrapf(errs.ErrValidation, "invalid COUNT %q", value)
			}
			rule.Count = n
		default:
			// unknown keys are ignored, matching lenient RRULE consumers
		}
	}
	if rule.Freq == "" {
		return Rule{}, errors.Wrap(errs.ErrValidation, "rule has no FREQ")
	}
	if rule.Until != nil && rule.Count > 0 {
		return Rule{}, errors.Wrap(errs.ErrValidation, "UNTIL and COUNT are mutually exclusive")
	}
	if len(rule.ByDay) > 0 && rule.Freq != FreqWeekly {
		return Rule{}, errors.Wrap(errs.ErrValidation, "BYDAY requires FREQ=WEEKLY")
	}
	return rule, nil
}

func parseRuleTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateOnly, "20060102T150405Z", "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time %q", s)
}

// ExpandOccurrences produces the concrete future instances of a recurring
// event. Expansion is deterministic for a given (event, rule, now): only
// starts at or after now are emitted, nothing beyond the one year horizon,
// and never more than the safety cap.
func ExpandOccurrences(ev model.Event, rule Rule, now time.Time) []model.Occurrence {
	duration := ev.EndsAt.Sub(ev.StartsAt)
	horizon := now.Add(expansionHorizon)

	var starts []time.Time
	if rule.Freq == FreqWeekly && len(rule.ByDay) > 0 {
		starts = expandByDay(ev.StartsAt, rule, now, horizon)
	} else {
		starts = expandInterval(ev.StartsAt, rule, now, horizon)
	}

	occs := make([]model.Occurrence, 0, len(starts))
	for i, start := range starts {
		occs = append(occs, model.Occurrence{
			OccurrenceUid: fmt.Sprintf("%s#%d", ev.EventUid, i),
			EventUid:      ev.EventUid,
			Index:         i,
			Name:          ev.Name,
			Location:      ev.Location,
			Category:      ev.Category,
			StartsAt:      start,
			EndsAt:        start.Add(duration),
			Items:         ev.Items,
		})
	}
	return occs
}

// expandByDay walks day by day from the base start, emitting each calendar
// day whose weekday is in the BYDAY set. INTERVAL counts weeks anchored on
// the week containing the base start.
func expandByDay(base time.Time, rule Rule, now, horizon time.Time) []time.Time {
	byDay := make(map[time.Weekday]struct{}, len(rule.ByDay))
	for _, d := range rule.ByDay {
		byDay[d] = struct{}{}
	}
	weekAnchor := base.AddDate(0, 0, -int(base.Weekday()))

	var starts []time.Time
	emitted := 0
	for cur := base; !cur.After(horizon); cur = cur.AddDate(0, 0, 1) {
		if rule.Until != nil && cur.After(*rule.Until) {
			break
		}
		if _, ok := byDay[cur.Weekday()]; !ok {
			continue
		}
		if rule.Interval > 1 {
			week := int(cur.Sub(weekAnchor).Hours()) / (24 * 7)
			if week%rule.Interval != 0 {
				continue
			}
		}
		emitted++
		if !cur.Before(now) {
			starts = append(starts, cur)
		}
		if rule.Count > 0 && emitted >= rule.Count {
			break
		}
		if len(starts) >= maxOccurrences {
			break
		}
	}
	return starts
}

// expandInterval advances by INTERVAL units of the frequency each step.
// MONTHLY and YEARLY keep the base day-of-month; Go's AddDate normalizes
// overflow (Jan 31 + 1 month lands in early March).
func expandInterval(base time.Time, rule Rule, now, horizon time.Time) []time.Time {
	var starts []time.Time
	emitted := 0
	for cur := base; !cur.After(horizon); {
		if rule.Until != nil && cur.After(*rule.Until) {
			break
		}
		emitted++
		if !cur.Before(now) {
			starts = append(starts, cur)
		}
		if rule.Count > 0 && emitted >= rule.Count {
			break
		}
		if len(starts) >= maxOccurrences {
			break
		}
		switch rule.Freq {
		case FreqDaily:
			cur = cur.AddDate(0, 0, rule.Interval)
		case FreqWeekly:
			cur = cur.AddDate(0, 0, 7*rule.Interval)
		case FreqMonthly:
			cur = cur.AddDate(0, rule.Interval, 0)
		case FreqYearly:
			cur = cur.AddDate(rule.Interval, 0, 0)
		default:
			return starts
		}
	}
	return starts
}
