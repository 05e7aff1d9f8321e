package repository

import (
	"context"
	"database/sql"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

const eventColumns = `id, event_uid, name, location, category, starts_at, ends_at, setup_at, is_recurring, recurrence_rule`

func (r *repository) CreateEvent(ctx context.Context, ev model.Event, links []model.EventItemLink) (model.Event, error) {
	var created model.Event
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, `
			insert into event (event_uid, name, location, category, starts_at, ends_at, setup_at, is_recurring, recurrence_rule)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			returning `+eventColumns,
			uuid.New(), ev.Name, ev.Location, ev.Category, ev.StartsAt, ev.EndsAt,
			ev.SetupAt, ev.IsRecurring, ev.RecurrenceRule); err != nil {
			return err
		}
		for _, link := range links {
			var itemID int
			if err := tx.QueryRowContext(ctx,
				`select id from inventory where item_uid = $1`, link.ItemUid).Scan(&itemID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errs.ErrNotFound
				}
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				insert into event_item (event_id, item_id, quantity)
				values ($1, $2, $3)`, created.ID, itemID, link.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return created, nil
}

func (r *repository) ListEvents(ctx context.Context) ([]model.Event, error) {
	q, args, err := qb.Select(eventColumns).
		From(eventTableName).
		OrderBy("starts_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	var events []model.Event
	if err := r.db.SelectContext(ctx, &events, q, args...); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListEventItems(ctx context.Context, eventID int) ([]model.EventItemLink, error) {
	q, args, err := qb.Select("ei.event_id", "ei.item_id", "i.item_uid", "i.name as item_name", "ei.quantity").
		From(eventItemTableName + " ei").
		Join(inventoryTableName + " i on i.id = ei.item_id").
		Where(sq.Eq{"ei.event_id": eventID}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var links []model.EventItemLink
	if err := r.db.SelectContext(ctx, &links, q, args...); err != nil {
		return nil, err
	}
	return links, nil
}
