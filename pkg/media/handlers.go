package media

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
)

// pageReader serves individual pages and thumbnails out of a Media's
// underlying file. pkg/server wires the concrete internal/mediafile and
// internal/thumbnails implementations; this package never imports them
// directly.
type pageReader interface {
	Page(ctx context.Context, mediaID int, page int) (data []byte, contentType string, err error)
	Thumbnail(ctx context.Context, mediaID int) (data []byte, contentType string, err error)
}

type handler struct {
	mediaService *Service
	pageReader   pageReader
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media")
	}

	m, err := h.mediaService.RetrieveMedia(ctx, RetrieveMediaOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, m))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListMediaQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListMediaOptions{
		SeriesID:  params.SeriesID,
		LibraryID: params.LibraryID,
		Search:    params.Search,
		Limit:     &params.Limit,
		Offset:    &params.Offset,
	}

	list, total, err := h.mediaService.ListMediaWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Media []*models.Media `json:"media"`
		Total int             `json:"total"`
	}{list, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media")
	}

	params := UpdateMediaPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	m, err := h.mediaService.RetrieveMedia(ctx, RetrieveMediaOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	touchedMetadata := false
	if params.Title != nil {
		m.Metadata.Title = *params.Title
		touchedMetadata = true
	}
	if params.Description != nil {
		m.Metadata.Description = *params.Description
		touchedMetadata = true
	}
	if params.Authors != nil {
		m.Metadata.Authors = params.Authors
		touchedMetadata = true
	}
	if params.Genres != nil {
		m.Metadata.Genres = params.Genres
		touchedMetadata = true
	}
	if params.Tags != nil {
		m.Metadata.Tags = params.Tags
		touchedMetadata = true
	}
	if params.AgeRating != nil {
		m.Metadata.AgeRating = *params.AgeRating
		touchedMetadata = true
	}

	if err := h.mediaService.UpdateMedia(ctx, m, touchedMetadata, []string{}); err != nil {
		return errors.WithStack(err)
	}

	m, err = h.mediaService.RetrieveMedia(ctx, RetrieveMediaOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, m))
}

func (h *handler) page(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media")
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		return errcodes.NotFound("Page")
	}

	if h.pageReader == nil {
		return errcodes.NotFound("Page")
	}

	data, contentType, err := h.pageReader.Page(ctx, id, page)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, contentType, data))
}

func (h *handler) thumbnail(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Media")
	}

	if h.pageReader == nil {
		return errcodes.NotFound("Thumbnail")
	}

	data, contentType, err := h.pageReader.Thumbnail(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.Blob(http.StatusOK, contentType, data))
}
