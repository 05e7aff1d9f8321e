package repository

import (
	"context"
	"database/sql"
	"sort"

	"github.com/campuskit/equipment-service/internal/errs"
	"github.com/campuskit/equipment-service/internal/model"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
)

const checkoutColumns = `c.id, c.checkout_uid, c.item_id, i.item_uid, c.request_id,
	c.checked_out_by, c.status, c.checked_out_at, c.from_date, c.due_date, c.returned_at`

// CreateCheckouts materializes every line atomically: the inventory rows are
// locked before availability is counted, and a single insufficient line
// aborts the whole transaction with the offending item named.
func (r *repository) CreateCheckouts(ctx context.Context, lines []model.CheckoutLine) ([]model.Checkout, error) {
	var created []model.Checkout
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		created, err = createCheckoutsTx(ctx, tx, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createCheckoutsTx is shared between direct checkouts and request pickup.
// Lines are processed in item-uid order so two overlapping transactions
// always lock inventory rows in the same order.
func createCheckoutsTx(ctx context.Context, tx *sqlx.Tx, lines []model.CheckoutLine) ([]model.Checkout, error) {
	ordered := make([]model.CheckoutLine, len(lines))
	copy(ordered, lines)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ItemUid < ordered[j].ItemUid })

	created := make([]model.Checkout, 0, len(ordered))
	for _, line := range ordered {
		var item model.InventoryItem
		if err := tx.GetContext(ctx, &item,
			`select `+itemColumns+` from inventory where item_uid = $1 for update`,
			line.ItemUid); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, errs.ErrNotFound
			}
			return nil, err
		}

		var checkedOut int
		if err := tx.QueryRowContext(ctx,
			`select count(*) from checkout where item_id = $1 and status = $2`,
			item.ID, model.CheckoutStatusCheckedOut).Scan(&checkedOut); err != nil {
			return nil, err
		}

		available := model.AvailableUnits(item, checkedOut)
		if line.Quantity > available {
			return nil, &errs.InsufficientAvailabilityError{
				ItemUid:   item.ItemUid,
				ItemName:  item.Name,
				Requested: line.Quantity,
				Available: available,
			}
		}

		// one row per unit so each can be returned independently
		for n := 0; n < line.Quantity; n++ {
			var c model.Checkout
			if err := tx.GetContext(ctx, &c, `
				insert into checkout (checkout_uid, item_id, request_id, checked_out_by, status, checked_out_at, from_date, due_date)
				values ($1, $2, $3, $4, $5, now(), $6, $7)
				returning id, checkout_uid, item_id, request_id, checked_out_by, status, checked_out_at, from_date, due_date, returned_at`,
				uuid.New(), item.ID, line.RequestID, line.CheckedOutBy,
				model.CheckoutStatusCheckedOut, line.FromDate, line.DueDate); err != nil {
				return nil, err
			}
			c.ItemUid = item.ItemUid
			created = append(created, c)
		}
	}
	return created, nil
}

// ReturnCheckout flips a single unit to RETURNED. The transition is terminal:
// a second return reports ErrAlreadyReturned, an unknown uid ErrNotFound.
func (r *repository) ReturnCheckout(ctx context.Context, checkoutUid string) (model.Checkout, error) {
	var returned model.Checkout
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		q := `
		update checkout c set status = $1, returned_at = now()
		from inventory i
		where c.item_id = i.id and c.checkout_uid = $2 and c.status = $3
		returning ` + checkoutColumns
		err := tx.GetContext(ctx, &returned, q,
			model.CheckoutStatusReturned, checkoutUid, model.CheckoutStatusCheckedOut)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		var status model.CheckoutStatus
		if err := tx.QueryRowContext(ctx,
			`select status from checkout where checkout_uid = $1`, checkoutUid).Scan(&status); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		return errs.ErrAlreadyReturned
	})
	if err != nil {
		return model.Checkout{}, err
	}
	return returned, nil
}

func (r *repository) ListCheckoutsByItem(ctx context.Context, itemUid string) ([]model.Checkout, error) {
	q, args, err := qb.Select(checkoutColumns).
		From(checkoutTableName + " c").
		Join(inventoryTableName + " i on i.id = c.item_id").
		Where(sq.Eq{"i.item_uid": itemUid}).
		OrderBy("c.checked_out_at desc").
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

func (r *repository) CountCheckedOut(ctx context.Context, itemID int) (int, error) {
	q := `
	select count(*) from checkout
	where item_id = $1 and status = $2
`
	var count int
	if err := r.db.QueryRowContext(ctx, q, itemID, model.CheckoutStatusCheckedOut).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CheckedOutCounts returns, per item id, how many units are currently out.
// Items with nothing out are absent from the map.
func (r *repository) CheckedOutCounts(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, `
	select item_id, count(*) from checkout
	where status = $1 group by item_id`, model.CheckoutStatusCheckedOut)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var itemID, n int
		if err := rows.Scan(&itemID, &n); err != nil {
			return nil, err
		}
		counts[itemID] = n
	}
	return counts, rows.Err()
}

// returnAllTx marks every still-active checkout of a request returned.
func returnAllTx(ctx context.Context, tx *sqlx.Tx, requestID int) ([]model.Checkout, error) {
	q := `
	update checkout c set status = $1, returned_at = now()
	from inventory i
	where c.item_id = i.id and c.request_id = $2 and c.status = $3
	returning ` + checkoutColumns
	var returned []model.Checkout
	if err := tx.SelectContext(ctx, &returned, q,
		model.CheckoutStatusReturned, requestID, model.CheckoutStatusCheckedOut); err != nil {
		return nil, err
	}
	return returned, nil
}
