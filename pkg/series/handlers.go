package series

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stumpgo/stump/pkg/errcodes"
	"github.com/stumpgo/stump/pkg/models"
)

type handler struct {
	seriesService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	s, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, s))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListSeriesOptions{
		LibraryID: params.LibraryID,
		Search:    params.Search,
		Limit:     &params.Limit,
		Offset:    &params.Offset,
	}

	list, total, err := h.seriesService.ListSeriesWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Series []*models.Series `json:"series"`
		Total  int               `json:"total"`
	}{list, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := UpdateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	s, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := UpdateSeriesOptions{Columns: []string{}}
	if params.Description != nil {
		s.Description = params.Description
		opts.Columns = append(opts.Columns, "description")
	}

	if err := h.seriesService.UpdateSeries(ctx, s, opts); err != nil {
		return errors.WithStack(err)
	}

	s, err = h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, s))
}
