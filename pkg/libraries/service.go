package libraries

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLibraryOptions struct {
	ID *string
}

type ListLibrariesOptions struct {
	Limit          *int
	Offset         *int
	IncludeDeleted bool

	includeTotal bool
}

type UpdateLibraryOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateLibrary inserts the library's LibraryConfig first, then the
// library row itself, mirroring the teacher's transaction around a
// Library and its child rows.
func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	now := time.Now()
	if library.ID == "" {
		library.ID = uuid.NewString()
	}
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt
	if library.Status == "" {
		library.Status = models.LibraryStatusReady
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if library.LibraryConfig != nil {
			if library.LibraryConfig.ID == "" {
				library.LibraryConfig.ID = uuid.NewString()
			}
			if err := library.LibraryConfig.MarshalConfig(); err != nil {
				return errors.WithStack(err)
			}
			library.LibraryConfigID = library.LibraryConfig.ID

			_, err := tx.NewInsert().Model(library.LibraryConfig).Returning("*").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		_, err := tx.NewInsert().Model(library).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	return errors.WithStack(err)
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.db.
		NewSelect().
		Model(library).
		Relation("LibraryConfig")

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	if library.LibraryConfig != nil {
		if err := library.LibraryConfig.UnmarshalConfig(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return library, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&libraries).
		Relation("LibraryConfig").
		Order("l.name ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if !opts.IncludeDeleted {
		q = q.Where("l.deleted_at IS NULL")
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, library := range libraries {
		if library.LibraryConfig != nil {
			if err := library.LibraryConfig.UnmarshalConfig(); err != nil {
				return nil, 0, errors.WithStack(err)
			}
		}
	}

	return libraries, total, nil
}

func (svc *Service) UpdateLibrary(ctx context.Context, library *models.Library, opts UpdateLibraryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	now := time.Now()
	library.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(library).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Library")
		}
		return errors.WithStack(err)
	}

	return nil
}

// UpdateLibraryConfig persists changes to a library's config row. The
// PATCH handler does not call it; UpdateLibraryPayload has no config fields.
func (svc *Service) UpdateLibraryConfig(ctx context.Context, cfg *models.LibraryConfig, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	if err := cfg.MarshalConfig(); err != nil {
		return errors.WithStack(err)
	}

	_, err := svc.db.
		NewUpdate().
		Model(cfg).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
