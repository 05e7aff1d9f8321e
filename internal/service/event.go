package service

import (
	"context"
	"sort"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (s *Service) CreateEvent(ctx context.Context, req model.CreateEventRequest) (model.Event, error) {
	if req.EndsAt.Before(req.StartsAt) {
		return model.Event{}, errors.Wrap(errs.ErrValidation, "event ends before it starts")
	}
	if req.IsRecurring {
		if _, err := ParseRule(req.RecurrenceRule); err != nil {
			return model.Event{}, err
		}
	}
	links := make([]model.EventItemLink, 0, len(req.Items))
	for _, l := range req.Items {
		links = append(links, model.EventItemLink{ItemUid: l.ItemUid, Quantity: l.Quantity})
	}
	ev := model.Event{
		Name:           req.Name,
		Location:       req.Location,
		Category:       req.Category,
		StartsAt:       req.StartsAt,
		EndsAt:         req.EndsAt,
		SetupAt:        req.SetupAt,
		IsRecurring:    req.IsRecurring,
		RecurrenceRule: req.RecurrenceRule,
	}
	created, err := s.repo.CreateEvent(ctx, ev, links)
	if err != nil {
		return model.Event{}, err
	}
	created.Items, err = s.repo.ListEventItems(ctx, created.ID)
	if err != nil {
		return model.Event{}, err
	}
	return created, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Items, err = s.repo.ListEventItems(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

// UpcomingEvents expands every recurring event into its future occurrences
// and represents each upcoming one-off event as a single occurrence, sorted
// by start time. Events whose stored rule no longer parses are skipped.
func (s *Service) UpcomingEvents(ctx context.Context, now time.Time) ([]model.Occurrence, error) {
	events, err := s.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	var occs []model.Occurrence
	for _, ev := range events {
		if !ev.IsRecurring {
			if ev.StartsAt.Before(now) {
				continue
			}
			occs = append(occs, model.Occurrence{
				OccurrenceUid: ev.EventUid + "#0",
				EventUid:      ev.EventUid,
				Name:          ev.Name,
				Location:      ev.Location,
				Category:      ev.Category,
				StartsAt:      ev.StartsAt,
				EndsAt:        ev.EndsAt,
				Items:         ev.Items,
			})
			continue
		}
		rule, err := ParseRule(ev.RecurrenceRule)
		if err != nil {
			s.log.Warn("skipping event with unparseable rule", zap.String("eventUid", ev.EventUid))
			continue
		}
		occs = append(occs, ExpandOccurrences(ev, rule, now)...)
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].StartsAt.Before(occs[j].StartsAt) })
	return occs, nil
}
