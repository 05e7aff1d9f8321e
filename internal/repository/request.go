package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

const requestColumns = `id, request_uid, requester_name, requester_email, requester_phone, purpose,
	status, ready_for_pickup, pickup_at, pickup_location, picked_up, picked_up_at, created_at`

func (r *repository) CreateRequest(ctx context.Context, req model.CheckoutRequest, items []model.RequestItem) (model.CheckoutRequest, error) {
	var created model.CheckoutRequest
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &created, `
			insert into checkout_request (request_uid, requester_name, requester_email, requester_phone, purpose, status)
			values ($1, $2, $3, $4, $5, $6)
			returning `+requestColumns,
			uuid.New(), req.RequesterName, req.RequesterEmail, req.RequesterPhone,
			req.Purpose, model.RequestStatusUnseen); err != nil {
			return err
		}
		for _, it := range items {
			var itemID int
			if err := tx.QueryRowContext(ctx,
				`select id from inventory where item_uid = $1`, it.ItemUid).Scan(&itemID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return errs.ErrNotFound
				}
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				insert into request_item (request_id, item_id, quantity, from_date, to_date)
				values ($1, $2, $3, $4, $5)`,
				created.ID, itemID, it.Quantity, it.FromDate, it.ToDate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.CheckoutRequest{}, err
	}
	return created, nil
}

func (r *repository) GetRequestRow(ctx context.Context, requestUid string) (model.CheckoutRequest, error) {
	q, args, err := qb.Select(requestColumns).
		From(requestTableName).
		Where(sq.Eq{"request_uid": requestUid}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.CheckoutRequest{}, err
	}
	var req model.CheckoutRequest
	if err := r.db.GetContext(ctx, &req, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CheckoutRequest{}, errs.ErrNotFound
		}
		return model.CheckoutRequest{}, err
	}
	return req, nil
}

func (r *repository) ListRequests(ctx context.Context) ([]model.CheckoutRequest, error) {
	q, args, err := qb.Select(requestColumns).
		From(requestTableName).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, err
	}
	var reqs []model.CheckoutRequest
	if err := r.db.SelectContext(ctx, &reqs, q, args...); err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *repository) ListRequestItems(ctx context.Context, requestID int) ([]model.RequestItem, error) {
	q, args, err := qb.Select("ri.id", "ri.request_id", "ri.item_id", "i.item_uid", "i.name as item_name",
		"ri.quantity", "ri.from_date", "ri.to_date").
		From(requestItemTableName + " ri").
		Join(inventoryTableName + " i on i.id = ri.item_id").
		Where(sq.Eq{"ri.request_id": requestID}).
		OrderBy("ri.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var items []model.RequestItem
	if err := r.db.SelectContext(ctx, &items, q, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListMessages(ctx context.Context, requestID int) ([]model.Message, error) {
	q, args, err := qb.Select("id", "request_id", "sender", "sender_name", "sender_email", "body", "created_at").
		From(messageTableName).
		Where(sq.Eq{"request_id": requestID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var msgs []model.Message
	if err := r.db.SelectContext(ctx, &msgs, q, args...); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *repository) ListCheckoutsByRequest(ctx context.Context, requestID int) ([]model.Checkout, error) {
	q, args, err := qb.Select(checkoutColumns).
		From(checkoutTableName + " c").
		Join(inventoryTableName + " i on i.id = c.item_id").
		Where(sq.Eq{"c.request_id": requestID}).
		OrderBy("c.id").
		ToSql()
	if err != nil {
		return nil, err
	}
	var checkouts []model.Checkout
	if err := r.db.SelectContext(ctx, &checkouts, q, args...); err != nil {
		return nil, err
	}
	return checkouts, nil
}

func (r *repository) SetRequestStatus(ctx context.Context, requestID int, status model.RequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`update checkout_request set status = $1 where id = $2`, status, requestID)
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

// DenyRequest writes the denial and its mandatory reason message atomically.
func (r *repository) DenyRequest(ctx context.Context, requestID int, reason model.Message) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			`update checkout_request set status = $1 where id = $2`,
			model.RequestStatusDenied, requestID)
		if err != nil {
			return err
		}
		if err := noRowsAsNotFound(res); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			insert into message (request_id, sender, sender_name, sender_email, body)
			values ($1, $2, $3, $4, $5)`,
			requestID, model.SenderAdmin, reason.SenderName, reason.SenderEmail, reason.Body)
		return err
	})
}

func (r *repository) SetReadyForPickup(ctx context.Context, requestID int, pickupAt *time.Time, pickupLocation string) error {
	res, err := r.db.ExecContext(ctx, `
		update checkout_request
		set ready_for_pickup = true, pickup_at = $1, pickup_location = $2
		where id = $3`,
		pickupAt, pickupLocation, requestID)
	if err != nil {
		return err
	}
	return noRowsAsNotFound(res)
}

// MarkPickedUp flips the picked-up flag and materializes every requested
// line in one transaction. Any insufficient line rolls the whole pickup back.
func (r *repository) MarkPickedUp(ctx context.Context, req model.CheckoutRequest, lines []model.CheckoutLine) ([]model.Checkout, error) {
	var created []model.Checkout
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update checkout_request set picked_up = true, picked_up_at = now()
			where id = $1 and picked_up = false`, req.ID)
		if err != nil {
			return err
		}
		if err := noRowsAsNotFound(res); err != nil {
			return errs.ErrInvalidTransition
		}
		created, err = createCheckoutsTx(ctx, tx, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *repository) ReturnAll(ctx context.Context, requestID int) ([]model.Checkout, error) {
	var returned []model.Checkout
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		returned, err = returnAllTx(ctx, tx, requestID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

func (r *repository) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	var created model.Message
	if err := r.db.GetContext(ctx, &created, `
		insert into message (request_id, sender, sender_name, sender_email, body)
		values ($1, $2, $3, $4, $5)
		returning id, request_id, sender, sender_name, sender_email, body, created_at`,
		msg.RequestID, msg.Sender, msg.SenderName, msg.SenderEmail, msg.Body); err != nil {
		return model.Message{}, err
	}
	return created, nil
}

// DeleteRequest hard-deletes a request and its messages and lines. It is
// blocked while any materialized checkout is still out; returned checkout
// rows survive with request_id set null.
func (r *repository) DeleteRequest(ctx context.Context, requestID int) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx,
			`select count(*) from checkout where request_id = $1 and status = $2`,
			requestID, model.CheckoutStatusCheckedOut).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return errs.ErrActiveCheckouts
		}
		res, err := tx.ExecContext(ctx, `delete from checkout_request where id = $1`, requestID)
		if err != nil {
			return err
		}
		return noRowsAsNotFound(res)
	})
}

func noRowsAsNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}
