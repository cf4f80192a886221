package media

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveMediaOptions struct {
	ID *int
}

type ListMediaOptions struct {
	SeriesID  *int
	LibraryID *string
	Search    *string
	Limit     *int
	Offset    *int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateMedia inserts a Media row. Only internal/scanner calls this —
// Media rows are never created through the HTTP API (spec.md §3
// lifecycle: "Series and Media are owned by the scanner").
func (svc *Service) CreateMedia(ctx context.Context, m *models.Media) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = m.CreatedAt
	if m.Status == "" {
		m.Status = models.MediaStatusReady
	}
	if m.ModifiedAt.IsZero() {
		m.ModifiedAt = now
	}

	if err := m.MarshalMetadata(); err != nil {
		return errors.WithStack(err)
	}

	_, err := svc.db.
		NewInsert().
		Model(m).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveMedia(ctx context.Context, opts RetrieveMediaOptions) (*models.Media, error) {
	m := &models.Media{}

	q := svc.db.NewSelect().Model(m)
	if opts.ID != nil {
		q = q.Where("m.id = ?", *opts.ID)
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Media")
		}
		return nil, errors.WithStack(err)
	}

	if err := m.UnmarshalMetadata(); err != nil {
		return nil, errors.WithStack(err)
	}

	return m, nil
}

func (svc *Service) ListMedia(ctx context.Context, opts ListMediaOptions) ([]*models.Media, error) {
	m, _, err := svc.listMediaWithTotal(ctx, opts)
	return m, errors.WithStack(err)
}

func (svc *Service) ListMediaWithTotal(ctx context.Context, opts ListMediaOptions) ([]*models.Media, int, error) {
	opts.includeTotal = true
	return svc.listMediaWithTotal(ctx, opts)
}

func (svc *Service) listMediaWithTotal(ctx context.Context, opts ListMediaOptions) ([]*models.Media, int, error) {
	media := []*models.Media{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&media).
		Where("m.deleted_at IS NULL").
		Order("m.filename ASC")

	if opts.SeriesID != nil {
		q = q.Where("m.series_id = ?", *opts.SeriesID)
	}
	if opts.LibraryID != nil {
		q = q.Join("JOIN series AS s ON s.id = m.series_id").Where("s.library_id = ?", *opts.LibraryID)
	}
	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("m.filename LIKE ?", "%"+strings.TrimSpace(*opts.Search)+"%")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, m := range media {
		if err := m.UnmarshalMetadata(); err != nil {
			return nil, 0, errors.WithStack(err)
		}
	}

	return media, total, nil
}

// UpdateMedia persists the row, re-marshaling the metadata blob whenever
// the caller touched it.
func (svc *Service) UpdateMedia(ctx context.Context, m *models.Media, touchedMetadata bool, columns []string) error {
	if len(columns) == 0 && !touchedMetadata {
		return nil
	}

	if touchedMetadata {
		if err := m.MarshalMetadata(); err != nil {
			return errors.WithStack(err)
		}
		columns = append(columns, "metadata")
	}

	now := time.Now()
	m.UpdatedAt = now
	columns = append(columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(m).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Media")
		}
		return errors.WithStack(err)
	}

	return nil
}
