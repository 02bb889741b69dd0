package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/refract/redirector/internal/model"
)

// ErrLinkNotFound is returned when no record exists for a short code.
var ErrLinkNotFound = errors.New("link not found")

const getLinkRecordQuery = `
	SELECT id, short_code, original_url, is_active, expires_at
	FROM urls
	WHERE short_code = $1
	LIMIT 1
`

// GetLinkRecord retrieves the redirect record for a short code.
// This is the only query on the redirect path and is side-effect free.
func (r *Repository) GetLinkRecord(ctx context.Context, shortCode string) (*model.LinkRecord, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	var (
		rec       model.LinkRecord
		isActive  bool
		expiresAt *time.Time
	)

	err := r.pool.QueryRow(ctx, getLinkRecordQuery, shortCode).Scan(
		&rec.ID,
		&rec.ShortCode,
		&rec.Destination,
		&isActive,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link by short code: %w", err)
	}

	rec.Status = model.LinkStatusInactive
	if isActive {
		rec.Status = model.LinkStatusActive
	}
	if expiresAt != nil {
		utc := expiresAt.UTC()
		rec.ExpiresAt = &utc
	}

	return &rec, nil
}
