package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	configService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	cfg, err := h.configService.RetrieveUserConfig()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, cfg))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	_ = ctx

	params := UpdateConfigPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	cfg, err := h.configService.RetrieveUserConfig()
	if err != nil {
		return errors.WithStack(err)
	}

	if params.SyncIntervalMinutes != nil {
		cfg.SyncIntervalMinutes = *params.SyncIntervalMinutes
	}

	if err := h.configService.UpdateUserConfig(cfg, UpdateUserConfigOptions{UpdateFile: true}); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, cfg))
}
