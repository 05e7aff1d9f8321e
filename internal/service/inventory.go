package service

import (
	"context"
	"time"

	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/pkg/kafka"
)

// clampOverride caps an explicit availability override at the declared
// quantity. Enforced at write time so the ledger can trust the stored ceiling.
func clampOverride(quantity int, override *int) *int {
	if override == nil {
		return nil
	}
	v := *override
	if v > quantity {
		v = quantity
	}
	if v < 0 {
		v = 0
	}
	return &v
}

func (s *Service) CreateItem(ctx context.Context, req model.CreateItemRequest) (model.InventoryItem, error) {
	item := model.InventoryItem{
		Name:                 req.Name,
		Manufacturer:         req.Manufacturer,
		Model:                req.Model,
		Location:             req.Location,
		Tags:                 req.Tags,
		Quantity:             req.Quantity,
		AvailableForCheckout: clampOverride(req.Quantity, req.AvailableForCheckout),
	}
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return model.InventoryItem{}, err
	}
	s.notify(kafka.InventoryTopic, model.Notification{
		Kind: "item.created", SubjectUid: created.ItemUid, Detail: created.Name, OccurredAt: time.Now().UTC(),
	})
	return created, nil
}

func (s *Service) UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.InventoryItem, error) {
	item, err := s.repo.GetItem(ctx, itemUid)
	if err != nil {
		return model.InventoryItem{}, err
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Manufacturer != nil {
		item.Manufacturer = *req.Manufacturer
	}
	if req.Model != nil {
		item.Model = *req.Model
	}
	if req.Location != nil {
		item.Location = *req.Location
	}
	if req.Tags != nil {
		item.Tags = *req.Tags
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.AvailableForCheckout != nil {
		item.AvailableForCheckout = req.AvailableForCheckout
	}
	item.AvailableForCheckout = clampOverride(item.Quantity, item.AvailableForCheckout)

	updated, err := s.repo.UpdateItem(ctx, item)
	if err != nil {
		return model.InventoryItem{}, err
	}
	s.notify(kafka.InventoryTopic, model.Notification{
		Kind: "item.updated", SubjectUid: updated.ItemUid, Detail: updated.Name, OccurredAt: time.Now().UTC(),
	})
	return updated, nil
}

// ItemDetail is the single-item read view: the row, its ledger state and
// its checkout history.
type ItemDetail struct {
	model.InventoryItem
	Availability model.Availability `json:"availability"`
	Checkouts    []model.Checkout   `json:"checkouts"`
}

func (s *Service) GetItem(ctx context.Context, itemUid string) (ItemDetail, error) {
	item, err := s.repo.GetItem(ctx, itemUid)
	if err != nil {
		return ItemDetail{}, err
	}
	checkouts, err := s.repo.ListCheckoutsByItem(ctx, itemUid)
	if err != nil {
		return ItemDetail{}, err
	}
	return ItemDetail{
		InventoryItem: item,
		Availability:  ComputeAvailable(item, checkouts),
		Checkouts:     checkouts,
	}, nil
}

// ItemSummary is the list view row: the item plus its ledger state.
type ItemSummary struct {
	model.InventoryItem
	Availability model.Availability `json:"availability"`
}

func (s *Service) ListItems(ctx context.Context) ([]ItemSummary, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CheckedOutCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ItemSummary, 0, len(items))
	for _, item := range items {
		checkedOut := counts[item.ID]
		out = append(out, ItemSummary{
			InventoryItem: item,
			Availability: model.Availability{
				ItemUid:    item.ItemUid,
				Quantity:   item.Quantity,
				Ceiling:    item.Ceiling(),
				CheckedOut: checkedOut,
				Available:  model.AvailableUnits(item, checkedOut),
			},
		})
	}
	return out, nil
}

func (s *Service) DeleteItem(ctx context.Context, itemUid string) error {
	if err := s.repo.DeleteItem(ctx, itemUid); err != nil {
		return err
	}
	s.notify(kafka.InventoryTopic, model.Notification{
		Kind: "item.deleted", SubjectUid: itemUid, OccurredAt: time.Now().UTC(),
	})
	return nil
}
