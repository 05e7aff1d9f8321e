package service

import (
	"context"
	"strings"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/pkg/kafka"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CanTransition encodes the request status machine. DENIED may be
// re-approved; everything else moves forward only.
func CanTransition(from, to model.RequestStatus) bool {
	switch to {
	case model.RequestStatusSeen:
		return from == model.RequestStatusUnseen
	case model.RequestStatusApproved:
		return from == model.RequestStatusUnseen ||
			from == model.RequestStatusSeen ||
			from == model.RequestStatusDenied
	case model.RequestStatusDenied:
		return from == model.RequestStatusUnseen || from == model.RequestStatusSeen
	default:
		return false
	}
}

func (s *Service) SubmitRequest(ctx context.Context, req model.SubmitRequest) (model.CheckoutRequest, error) {
	items := make([]model.RequestItem, 0, len(req.Items))
	for _, it := range req.Items {
		from, to := it.FromDate.TimePtr(), it.ToDate.TimePtr()
		if err := validateDateRange(from, to); err != nil {
			return model.CheckoutRequest{}, err
		}
		items = append(items, model.RequestItem{
			ItemUid:  it.ItemUid,
			Quantity: it.Quantity,
			FromDate: from,
			ToDate:   to,
		})
	}
	created, err := s.repo.CreateRequest(ctx, model.CheckoutRequest{
		RequesterName:  req.RequesterName,
		RequesterEmail: req.RequesterEmail,
		RequesterPhone: req.RequesterPhone,
		Purpose:        req.Purpose,
	}, items)
	if err != nil {
		return model.CheckoutRequest{}, err
	}
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "request.submitted", SubjectUid: created.RequestUid, Detail: created.RequesterName,
		OccurredAt: time.Now().UTC(),
	})
	return s.GetRequest(ctx, created.RequestUid)
}

// GetRequest composes the full request view: lines, messages and
// materialized checkouts are fetched in parallel.
func (s *Service) GetRequest(ctx context.Context, requestUid string) (model.CheckoutRequest, error) {
	req, err := s.repo.GetRequestRow(ctx, requestUid)
	if err != nil {
		return model.CheckoutRequest{}, err
	}

	gg, ctx := errgroup.WithContext(ctx)
	gg.Go(func() error {
		items, err := s.repo.ListRequestItems(ctx, req.ID)
		req.Items = items
		return err
	})
	gg.Go(func() error {
		msgs, err := s.repo.ListMessages(ctx, req.ID)
		req.Messages = msgs
		return err
	})
	gg.Go(func() error {
		checkouts, err := s.repo.ListCheckoutsByRequest(ctx, req.ID)
		req.Checkouts = checkouts
		return err
	})
	if err := gg.Wait(); err != nil {
		return model.CheckoutRequest{}, err
	}
	req.Returned = req.IsReturned()
	return req, nil
}

func (s *Service) ListRequests(ctx context.Context) ([]model.CheckoutRequest, error) {
	reqs, err := s.repo.ListRequests(ctx)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		if !reqs[i].PickedUp {
			continue
		}
		checkouts, err := s.repo.ListCheckoutsByRequest(ctx, reqs[i].ID)
		if err != nil {
			return nil, err
		}
		reqs[i].Checkouts = checkouts
		reqs[i].Returned = reqs[i].IsReturned()
	}
	return reqs, nil
}

// UpdateRequest drives the lifecycle. Fields of the update are applied in
// state machine order: status, ready-for-pickup, pickup, return. Each
// refused precondition leaves the request untouched.
func (s *Service) UpdateRequest(ctx context.Context, requestUid string, upd model.UpdateRequest) (model.CheckoutRequest, error) {
	req, err := s.repo.GetRequestRow(ctx, requestUid)
	if err != nil {
		return model.CheckoutRequest{}, err
	}

	if upd.Status != nil && *upd.Status != req.Status {
		if err := s.applyStatus(ctx, req, upd); err != nil {
			return model.CheckoutRequest{}, err
		}
		req.Status = *upd.Status
	}

	if upd.ReadyForPickup != nil {
		if !*upd.ReadyForPickup {
			return model.CheckoutRequest{}, errors.Wrap(errs.ErrInvalidTransition, "ready-for-pickup cannot be unset")
		}
		if req.Status != model.RequestStatusApproved || req.PickedUp {
			return model.CheckoutRequest{}, errs.ErrInvalidTransition
		}
		if err := s.repo.SetReadyForPickup(ctx, req.ID, upd.PickupAt, upd.PickupLocation); err != nil {
			return model.CheckoutRequest{}, err
		}
		req.ReadyForPickup = true
	}

	if upd.PickedUp != nil {
		if !*upd.PickedUp {
			return model.CheckoutRequest{}, errors.Wrap(errs.ErrInvalidTransition, "picked-up cannot be unset")
		}
		if err := s.pickup(ctx, req); err != nil {
			return model.CheckoutRequest{}, err
		}
		req.PickedUp = true
	}

	if upd.Returned != nil {
		if !*upd.Returned {
			return model.CheckoutRequest{}, errors.Wrap(errs.ErrInvalidTransition, "returned cannot be unset")
		}
		if !req.PickedUp {
			return model.CheckoutRequest{}, errors.Wrap(errs.ErrInvalidTransition, "request was never picked up")
		}
		returned, err := s.repo.ReturnAll(ctx, req.ID)
		if err != nil {
			return model.CheckoutRequest{}, err
		}
		for _, c := range returned {
			s.notify(kafka.InventoryTopic, model.Notification{
				Kind: "checkout.returned", SubjectUid: c.ItemUid, OccurredAt: time.Now().UTC(),
			})
		}
		s.notify(kafka.CheckoutTopic, model.Notification{
			Kind: "request.returned", SubjectUid: req.RequestUid, OccurredAt: time.Now().UTC(),
		})
	}

	return s.GetRequest(ctx, requestUid)
}

func (s *Service) applyStatus(ctx context.Context, req model.CheckoutRequest, upd model.UpdateRequest) error {
	target := *upd.Status
	if req.PickedUp {
		return errors.Wrap(errs.ErrInvalidTransition, "request already picked up")
	}
	if !CanTransition(req.Status, target) {
		return errors.Wrapf(errs.ErrInvalidTransition, "%s -> %s", req.Status, target)
	}
	if target == model.RequestStatusDenied {
		reason := strings.TrimSpace(upd.Message)
		if reason == "" {
			return errors.Wrap(errs.ErrValidation, "denial requires a reason message")
		}
		name := upd.AdminName
		if name == "" {
			name = "staff"
		}
		if err := s.repo.DenyRequest(ctx, req.ID, model.Message{
			Sender:     model.SenderAdmin,
			SenderName: name,
			Body:       reason,
		}); err != nil {
			return err
		}
	} else {
		if err := s.repo.SetRequestStatus(ctx, req.ID, target); err != nil {
			return err
		}
	}
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "request.status", SubjectUid: req.RequestUid, Detail: string(target),
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// pickup materializes one checkout row per requested unit across every
// line, atomically. A single insufficient line aborts the whole pickup and
// the returned error names the item.
func (s *Service) pickup(ctx context.Context, req model.CheckoutRequest) error {
	if req.Status != model.RequestStatusApproved {
		return errors.Wrap(errs.ErrInvalidTransition, "pickup requires an approved request")
	}
	if req.PickedUp {
		return errors.Wrap(errs.ErrInvalidTransition, "request already picked up")
	}
	items, err := s.repo.ListRequestItems(ctx, req.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.Wrap(errs.ErrValidation, "request has no items")
	}
	id := req.ID
	lines := make([]model.CheckoutLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, model.CheckoutLine{
			ItemUid:      it.ItemUid,
			Quantity:     it.Quantity,
			CheckedOutBy: req.RequesterName,
			RequestID:    &id,
			FromDate:     it.FromDate,
			DueDate:      it.ToDate,
		})
	}
	created, err := s.repo.MarkPickedUp(ctx, req, lines)
	if err != nil {
		return err
	}
	seen := map[string]struct{}{}
	for _, c := range created {
		if _, ok := seen[c.ItemUid]; ok {
			continue
		}
		seen[c.ItemUid] = struct{}{}
		s.notify(kafka.InventoryTopic, model.Notification{
			Kind: "checkout.created", SubjectUid: c.ItemUid, OccurredAt: time.Now().UTC(),
		})
	}
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "request.picked_up", SubjectUid: req.RequestUid, OccurredAt: time.Now().UTC(),
	})
	return nil
}

// PostMessage appends to the request thread without touching status.
func (s *Service) PostMessage(ctx context.Context, requestUid string, req model.PostMessageRequest) (model.Message, error) {
	row, err := s.repo.GetRequestRow(ctx, requestUid)
	if err != nil {
		return model.Message{}, err
	}
	msg, err := s.repo.AppendMessage(ctx, model.Message{
		RequestID:   row.ID,
		Sender:      req.Sender,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		Body:        req.Message,
	})
	if err != nil {
		return model.Message{}, err
	}
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "request.message", SubjectUid: row.RequestUid, Detail: string(req.Sender),
		OccurredAt: time.Now().UTC(),
	})
	return msg, nil
}

func (s *Service) DeleteRequest(ctx context.Context, requestUid string) error {
	row, err := s.repo.GetRequestRow(ctx, requestUid)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRequest(ctx, row.ID); err != nil {
		return err
	}
	s.notify(kafka.CheckoutTopic, model.Notification{
		Kind: "request.deleted", SubjectUid: requestUid, OccurredAt: time.Now().UTC(),
	})
	return nil
}
