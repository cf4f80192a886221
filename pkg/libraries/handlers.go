package libraries

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
)

type handler struct {
	libraryService *Service
	jobService     jobEnqueuer
}

// jobEnqueuer is the subset of the job controller that library creation
// needs to kick off an initial scan. pkg/server wires the concrete value;
// this package never imports the controller directly.
type jobEnqueuer interface {
	EnqueueLibraryScan(ctx context.Context, libraryID string) error
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	generateHashes := true
	if params.GenerateHashes != nil {
		generateHashes = *params.GenerateHashes
	}
	processMetadata := true
	if params.ProcessMetadata != nil {
		processMetadata = *params.ProcessMetadata
	}
	readingDirection := models.ReadingDirectionLTR
	if params.DefaultReadingDirection != nil {
		readingDirection = *params.DefaultReadingDirection
	}

	library := &models.Library{
		Name: params.Name,
		Path: params.Path,
		LibraryConfig: &models.LibraryConfig{
			Pattern:                    params.Pattern,
			ConvertRarToZip:            params.ConvertRarToZip,
			DeleteOriginalAfterConvert: params.DeleteOriginalAfterConvert,
			GenerateHashes:             generateHashes,
			ProcessMetadata:            processMetadata,
			IgnoreRules:                params.IgnoreRules,
			DefaultReadingDirection:    readingDirection,
		},
	}

	if err := h.libraryService.CreateLibrary(ctx, library); err != nil {
		return errors.WithStack(err)
	}

	if h.jobService != nil {
		if err := h.jobService.EnqueueLibraryScan(ctx, library.ID); err != nil {
			c.Logger().Errorf("failed to enqueue scan after library creation: %v", err)
		}
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if id == "" {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListLibrariesOptions{
		Limit:          &params.Limit,
		Offset:         &params.Offset,
		IncludeDeleted: params.Deleted,
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int                `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if id == "" {
		return errcodes.NotFound("Library")
	}

	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateLibraryOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.Deleted != nil && (*params.Deleted && library.DeletedAt == nil || !*params.Deleted && library.DeletedAt != nil) {
		if *params.Deleted {
			now := time.Now()
			library.DeletedAt = &now
		} else {
			library.DeletedAt = nil
		}
		opts.Columns = append(opts.Columns, "deleted_at")
	}

	if err := h.libraryService.UpdateLibrary(ctx, library, opts); err != nil {
		return errors.WithStack(err)
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}
