package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/stumpgo/stump/internal/controller"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/jobs"
	"github.com/stumpgo/stump/pkg/models"
)

// jobsCommandHandler serves the job routes that are commands against the
// running controller rather than plain CRUD: create enqueues one of the
// four job types, and PATCH drives pause/resume/cancel depending on the
// requested status (see pkg/jobs' handler comment).
type jobsCommandHandler struct {
	controller *controller.Controller
	jobService *jobs.Service
}

func registerJobCommandRoutes(g *echo.Group, ctrl *controller.Controller, jobService *jobs.Service) {
	h := &jobsCommandHandler{controller: ctrl, jobService: jobService}

	g.POST("", h.create)
	g.PATCH("/:id", h.updateStatus)
}

func (h *jobsCommandHandler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := jobs.CreateJobPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	var err error
	switch params.Type {
	case models.JobTypeScan:
		if params.LibraryID == nil {
			return errcodes.ValidationError("library_id is required for a SCAN job.")
		}
		err = h.controller.EnqueueLibraryScan(ctx, *params.LibraryID)
	case models.JobTypeSeriesScan:
		if params.LibraryID == nil || params.SeriesID == nil {
			return errcodes.ValidationError("library_id and series_id are required for a SERIES_SCAN job.")
		}
		err = h.controller.EnqueueSeriesScan(ctx, *params.LibraryID, *params.SeriesID)
	case models.JobTypeThumbnail:
		target := controller.ThumbnailTarget{LibraryID: params.LibraryID, SeriesID: params.SeriesID, MediaIDs: params.MediaIDs}
		err = h.controller.EnqueueThumbnailGeneration(ctx, target, params.ThumbnailFormat, params.ThumbnailQuality, params.ForceRegenerate)
	case models.JobTypeAnalyzeMedia:
		if params.LibraryID == nil && params.MediaID == nil {
			return errcodes.ValidationError("library_id or media_id is required for an ANALYZE_MEDIA job.")
		}
		err = h.controller.EnqueueAnalyzeMedia(ctx, params.LibraryID, params.MediaID)
	default:
		return errcodes.ValidationError("Unsupported job type.")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *jobsCommandHandler) updateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if id == "" {
		return errcodes.NotFound("Job")
	}

	params := jobs.UpdateJobStatusPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	var err error
	switch params.Status {
	case models.JobStatusPaused:
		err = h.controller.Pause(ctx, id)
	case models.JobStatusRunning:
		err = h.controller.Resume(ctx, id)
	case models.JobStatusCancelled:
		err = h.controller.Cancel(ctx, id)
	default:
		return errcodes.ValidationError("Unsupported status transition.")
	}
	if err != nil {
		return errors.WithStack(err)
	}

	job, err := h.jobService.RetrieveJob(ctx, jobs.RetrieveJobOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, job))
}
