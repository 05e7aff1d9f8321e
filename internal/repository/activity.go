package repository

import (
	"context"

	"github.com/campuskit/equipment-service/internal/model"
)

func (r *repository) AppendActivity(ctx context.Context, entry model.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx, `
		insert into activity (kind, subject_uid, detail, occurred_at)
		values ($1, $2, $3, $4)`,
		entry.Kind, entry.SubjectUid, entry.Detail, entry.OccurredAt)
	return err
}

func (r *repository) ListActivity(ctx context.Context, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []model.ActivityEntry
	if err := r.db.SelectContext(ctx, &entries, `
		select id, kind, subject_uid, detail, occurred_at
		from activity order by occurred_at desc, id desc limit $1`, limit); err != nil {
		return nil, err
	}
	return entries, nil
}
