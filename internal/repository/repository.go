package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuskit/equipment-service/internal/model"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"
)

type Repository interface {
	// inventory
	CreateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error)
	UpdateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error)
	GetItem(ctx context.Context, itemUid string) (model.InventoryItem, error)
	ListItems(ctx context.Context) ([]model.InventoryItem, error)
	DeleteItem(ctx context.Context, itemUid string) error

	// checkouts
	CreateCheckouts(ctx context.Context, lines []model.CheckoutLine) ([]model.Checkout, error)
	ReturnCheckout(ctx context.Context, checkoutUid string) (model.Checkout, error)
	ListCheckoutsByItem(ctx context.Context, itemUid string) ([]model.Checkout, error)
	CountCheckedOut(ctx context.Context, itemID int) (int, error)
	CheckedOutCounts(ctx context.Context) (map[int]int, error)

	// requests
	CreateRequest(ctx context.Context, req model.CheckoutRequest, items []model.RequestItem) (model.CheckoutRequest, error)
	GetRequestRow(ctx context.Context, requestUid string) (model.CheckoutRequest, error)
	ListRequests(ctx context.Context) ([]model.CheckoutRequest, error)
	ListRequestItems(ctx context.Context, requestID int) ([]model.RequestItem, error)
	ListMessages(ctx context.Context, requestID int) ([]model.Message, error)
	ListCheckoutsByRequest(ctx context.Context, requestID int) ([]model.Checkout, error)
	SetRequestStatus(ctx context.Context, requestID int, status model.RequestStatus) error
	DenyRequest(ctx context.Context, requestID int, reason model.Message) error
	SetReadyForPickup(ctx context.Context, requestID int, pickupAt *time.Time, pickupLocation string) error
	MarkPickedUp(ctx context.Context, req model.CheckoutRequest, lines []model.CheckoutLine) ([]model.Checkout, error)
	ReturnAll(ctx context.Context, requestID int) ([]model.Checkout, error)
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)
	DeleteRequest(ctx context.Context, requestID int) error

	// events
	CreateEvent(ctx context.Context, ev model.Event, links []model.EventItemLink) (model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListEventItems(ctx context.Context, eventID int) ([]model.EventItemLink, error)

	// activity
	AppendActivity(ctx context.Context, entry model.ActivityEntry) error
	ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	inventoryTableName   = `inventory`
	checkoutTableName    = `checkout`
	requestTableName     = `checkout_request`
	requestItemTableName = `request_item`
	messageTableName     = `message`
	eventTableName       = `event`
	eventItemTableName   = `event_item`
	activityTableName    = `activity`
)

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// inTx runs fn inside a transaction, rolling back on error.
func (r *repository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
