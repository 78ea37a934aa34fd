package handlers

import (
	"errors"
	"net/http"
	"strings"

	"mediahub/internal/service"
	"mediahub/internal/store"

	"github.com/labstack/echo/v4"
)

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// assetURL is the reference handed back to upload clients and listings:
// the blob's public URL in object mode, the serving route in local mode.
func assetURL(a store.MediaAsset) string {
	if a.PublicURL != nil && *a.PublicURL != "" {
		return *a.PublicURL
	}
	return "/api/images/" + a.Name
}

func assetPayload(a store.MediaAsset) map[string]any {
	return map[string]any{
		"name":      a.Name,
		"section":   a.Section,
		"url":       assetURL(a),
		"isVideo":   service.AssetIsVideo(a),
		"createdAt": a.CreatedAt.UTC().UnixMilli(),
		"updatedAt": a.UpdatedAt.UTC().UnixMilli(),
	}
}

func formValue(c echo.Context, key string) string {
	return strings.TrimSpace(c.FormValue(key))
}
