package service

import (
	"context"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/pkg/kafka"
	"github.com/pkg/errors"
)

// ComputeAvailable derives the ledger view of one item from its checkout
// history. Only CHECKED_OUT rows count against the ceiling; the result is
// never negative.
func ComputeAvailable(item model.InventoryItem, checkouts []model.Checkout) model.Availability {
	checkedOut := 0
	for _, c := range checkouts {
		if c.Status == model.CheckoutStatusCheckedOut {
			checkedOut++
		}
	}
	return model.Availability{
		ItemUid:    item.ItemUid,
		Quantity:   item.Quantity,
		Ceiling:    item.Ceiling(),
		CheckedOut: checkedOut,
		Available:  model.AvailableUnits(item, checkedOut),
	}
}

func (s *Service) GetAvailability(ctx context.Context, itemUid string) (model.Availability, error) {
	item, err := s.repo.GetItem(ctx, itemUid)
	if err != nil {
		return model.Availability{}, err
	}
	checkedOut, err := s.repo.CountCheckedOut(ctx, item.ID)
	if err != nil {
		return model.Availability{}, err
	}
	return model.Availability{
		ItemUid:    item.ItemUid,
		Quantity:   item.Quantity,
		Ceiling:    item.Ceiling(),
		CheckedOut: checkedOut,
		Available:  model.AvailableUnits(item, checkedOut),
	}, nil
}

// CreateCheckout performs a direct single-unit manual checkout. The
// availability check and the insert run in one repository transaction.
func (s *Service) CreateCheckout(ctx context.Context, req model.CreateCheckoutRequest) (model.Checkout, error) {
	from, due := req.FromDate.TimePtr(), req.DueDate.TimePtr()
	if err := validateDateRange(from, due); err != nil {
		return model.Checkout{}, err
	}
	created, err := s.repo.CreateCheckouts(ctx, []model.CheckoutLine{{
		ItemUid:      req.ItemUid,
		Quantity:     1,
		CheckedOutBy: req.CheckedOutBy,
		FromDate:     from,
		DueDate:      due,
	}})
	if err != nil {
		return model.Checkout{}, err
	}
	c := created[0]
	s.notify(kafka.InventoryTopic, model.Notification{
		Kind: "checkout.created", SubjectUid: c.ItemUid, OccurredAt: time.Now().UTC(),
	})
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "checkout.created", SubjectUid: c.CheckoutUid, Detail: c.CheckedOutBy, OccurredAt: time.Now().UTC(),
	})
	return c, nil
}

func (s *Service) ReturnCheckout(ctx context.Context, checkoutUid string) (model.Checkout, error) {
	returned, err := s.repo.ReturnCheckout(ctx, checkoutUid)
	if err != nil {
		return model.Checkout{}, err
	}
	s.notify(kafka.InventoryTopic, model.Notification{
		Kind: "checkout.returned", SubjectUid: returned.ItemUid, OccurredAt: time.Now().UTC(),
	})
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "checkout.returned", SubjectUid: returned.CheckoutUid, OccurredAt: time.Now().UTC(),
	})
	return returned, nil
}

func validateDateRange(from, to *time.Time) error {
	if from != nil && to != nil && to.Before(*from) {
		return errors.Wrap(errs.ErrValidation, "end date before start date")
	}
	return nil
}
