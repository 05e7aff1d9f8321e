package repository

import (
	"context"
	"database/sql"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	sq "github.com/Masterminds/squirrel"
)

const itemColumns = `id, item_uid, name, manufacturer, model, location, tags, quantity, available_for_checkout, created_at`

func (r *repository) CreateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	q, args, err := qb.Insert(inventoryTableName).
		Columns("item_uid", "name", "manufacturer", "model", "location", "tags", "quantity", "available_for_checkout").
		Values(uuid.New(), item.Name, item.Manufacturer, item.Model, item.Location, item.Tags, item.Quantity, item.AvailableForCheckout).
		Suffix("returning " + itemColumns).
		ToSql()
	if err != nil {
		return model.InventoryItem{}, err
	}
	var created model.InventoryItem
	if err := r.db.GetContext(ctx, &created, q, args...); err != nil {
		r.log.Error("CreateItem", zap.String("q", q), zap.Any("args", args))
		return model.InventoryItem{}, err
	}
	return created, nil
}

func (r *repository) UpdateItem(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	q, args, err := qb.Update(inventoryTableName).
		Set("name", item.Name).
		Set("manufacturer", item.Manufacturer).
		Set("model", item.Model).
		Set("location", item.Location).
		Set("tags", item.Tags).
		Set("quantity", item.Quantity).
		Set("available_for_checkout", item.AvailableForCheckout).
		Where(sq.Eq{"item_uid": item.ItemUid}).
		Suffix("returning " + itemColumns).
		ToSql()
	if err != nil {
		return model.InventoryItem{}, err
	}
	var updated model.InventoryItem
	if err := r.db.GetContext(ctx, &updated, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.InventoryItem{}, errs.ErrNotFound
		}
		return model.InventoryItem{}, err
	}
	return updated, nil
}

func (r *repository) GetItem(ctx context.Context, itemUid string) (model.InventoryItem, error) {
	q, args, err := qb.Select(itemColumns).
		From(inventoryTableName).
		Where(sq.Eq{"item_uid": itemUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.InventoryItem{}, err
	}
	var item model.InventoryItem
	if err := r.db.GetContext(ctx, &item, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.InventoryItem{}, errs.ErrNotFound
		}
		return model.InventoryItem{}, err
	}
	return item, nil
}

func (r *repository) ListItems(ctx context.Context) ([]model.InventoryItem, error) {
	q, args, err := qb.Select(itemColumns).
		From(inventoryTableName).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.InventoryItem
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// DeleteItem removes an item unless units of it are still checked out.
// Returned checkout rows cascade away with the item.
func (r *repository) DeleteItem(ctx context.Context, itemUid string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var id int
		if err := tx.QueryRowContext(ctx,
			`select id from inventory where item_uid = $1 for update`, itemUid).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		var active int
		if err := tx.QueryRowContext(ctx,
			`select count(*) from checkout where item_id = $1 and status = $2`,
			id, model.CheckoutStatusCheckedOut).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return errs.ErrActiveCheckouts
		}
		if _, err := tx.ExecContext(ctx, `delete from inventory where id = $1`, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return errs.ErrActiveCheckouts
			}
			return err
		}
		return nil
	})
}
