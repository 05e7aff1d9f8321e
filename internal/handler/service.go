package handler

import (
	"context"
	"time"

	"github.com/campuskit/equipment-service/internal/model"
	"github.com/campuskit/equipment-service/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type InventoryService interface {
	CreateItem(ctx context.Context, req model.CreateItemRequest) (model.InventoryItem, error)
	UpdateItem(ctx context.Context, itemUid string, req model.UpdateItemRequest) (model.InventoryItem, error)
	GetItem(ctx context.Context, itemUid string) (service.ItemDetail, error)
	ListItems(ctx context.Context) ([]service.ItemSummary, error)
	DeleteItem(ctx context.Context, itemUid string) error
	GetAvailability(ctx context.Context, itemUid string) (model.Availability, error)
}

type CheckoutService interface {
	CreateCheckout(ctx context.Context, req model.CreateCheckoutRequest) (model.Checkout, error)
	ReturnCheckout(ctx context.Context, checkoutUid string) (model.Checkout, error)
}

type RequestService interface {
	SubmitRequest(ctx context.Context, req model.SubmitRequest) (model.CheckoutRequest, error)
	GetRequest(ctx context.Context, requestUid string) (model.CheckoutRequest, error)
	ListRequests(ctx context.Context) ([]model.CheckoutRequest, error)
	UpdateRequest(ctx context.Context, requestUid string, upd model.UpdateRequest) (model.CheckoutRequest, error)
	PostMessage(ctx context.Context, requestUid string, req model.PostMessageRequest) (model.Message, error)
	DeleteRequest(ctx context.Context, requestUid string) error
}

type EventService interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	UpcomingEvents(ctx context.Context, now time.Time) ([]model.Occurrence, error)
}

type ActivityService interface {
	RecordActivity(ctx context.Context, entry model.ActivityEntry) error
	ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error)
}

type EquipmentService interface {
	InventoryService
	CheckoutService
	RequestService
	EventService
	ActivityService
}

var _ EquipmentService = (*service.Service)(nil)
