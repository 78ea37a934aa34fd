package handlers

import (
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"

	"mediahub/internal/service"

	"github.com/labstack/echo/v4"
)

func (h *Handler) ListMedia(c echo.Context) error {
	assets, err := h.svc.ListAssets(c.Request().Context())
	if err != nil {
		return mapServiceError(err)
	}
	images := make([]map[string]any, 0, len(assets))
	for _, a := range assets {
		images = append(images, assetPayload(a))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"images":  images,
	})
}

func (h *Handler) ListMediaBySection(c echo.Context) error {
	section := strings.TrimSpace(c.Param("section"))
	assets, err := h.svc.ListAssetsBySection(c.Request().Context(), section)
	if err != nil {
		return mapServiceError(err)
	}
	images := make([]map[string]any, 0, len(assets))
	for _, a := range assets {
		images = append(images, assetPayload(a))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"images":  images,
	})
}

// GetMedia serves the asset's bytes. Object-mode assets redirect to their
// public URL; local assets stream from disk, honoring single-range requests
// for video content.
func (h *Handler) GetMedia(c echo.Context) error {
	ctx := c.Request().Context()
	name := strings.TrimSpace(c.Param("name"))

	asset, err := h.svc.ResolveAsset(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		return mapServiceError(err)
	}
	if asset.PublicURL != nil && *asset.PublicURL != "" {
		return c.Redirect(http.StatusFound, *asset.PublicURL)
	}

	blob, err := h.svc.OpenAssetBlob(ctx, asset)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("media %q: record exists but payload is missing", name)
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		return mapServiceError(err)
	}
	defer blob.Close()

	size := blob.Size()
	contentType := service.AssetContentType(asset)
	header := c.Response().Header()
	writeMediaHeaders(header, contentType)

	rangeHeader := c.Request().Header.Get("Range")
	if service.AssetIsVideo(asset) && rangeHeader != "" {
		start, end, ok := parseByteRange(rangeHeader, size)
		if !ok {
			header.Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
			return c.NoContent(http.StatusRequestedRangeNotSatisfiable)
		}
		if _, err := blob.Seek(start, io.SeekStart); err != nil {
			return mapServiceError(err)
		}
		length := end - start + 1
		header.Set("Content-Range", "bytes "+strconv.FormatInt(start, 10)+"-"+strconv.FormatInt(end, 10)+"/"+strconv.FormatInt(size, 10))
		header.Set(echo.HeaderContentLength, strconv.FormatInt(length, 10))
		c.Response().WriteHeader(http.StatusPartialContent)
		_, err = io.CopyN(c.Response(), blob, length)
		return err
	}

	header.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	return c.Stream(http.StatusOK, contentType, blob)
}

// HeadMedia answers the same resolution as GetMedia with headers only.
func (h *Handler) HeadMedia(c echo.Context) error {
	ctx := c.Request().Context()
	name := strings.TrimSpace(c.Param("name"))

	asset, err := h.svc.ResolveAsset(ctx, name)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		return mapServiceError(err)
	}
	if asset.PublicURL != nil && *asset.PublicURL != "" {
		return c.Redirect(http.StatusFound, *asset.PublicURL)
	}

	size, err := h.svc.StatAssetBlob(ctx, asset)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("media %q: record exists but payload is missing", name)
			return echo.NewHTTPError(http.StatusNotFound, "media not found")
		}
		return mapServiceError(err)
	}

	header := c.Response().Header()
	writeMediaHeaders(header, service.AssetContentType(asset))
	header.Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	return c.NoContent(http.StatusOK)
}

func (h *Handler) OptionsMedia(c echo.Context) error {
	header := c.Response().Header()
	writeMediaHeaders(header, "")
	header.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Range, Content-Type")
	return c.NoContent(http.StatusOK)
}

func (h *Handler) DeleteMedia(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	if err := h.svc.DeleteAsset(c.Request().Context(), name); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "media deleted",
	})
}

// writeMediaHeaders applies the permissive CORS and caching policy for
// byte-serving: media is embeddable from anywhere and cacheable for an hour.
func writeMediaHeaders(header http.Header, contentType string) {
	if contentType != "" {
		header.Set(echo.HeaderContentType, contentType)
	}
	header.Set("Accept-Ranges", "bytes")
	header.Set("Cache-Control", "public, max-age=3600")
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Cross-Origin-Resource-Policy", "cross-origin")
}

// parseByteRange interprets a single "bytes=start-end" request against the
// given payload size. An unparsable start falls back to 0 and an unparsable
// or oversized end clamps to the last byte. A start at or past the end of
// the payload is unsatisfiable.
func parseByteRange(raw string, size int64) (start, end int64, ok bool) {
	value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "bytes="))
	startPart, endPart, _ := strings.Cut(value, "-")

	start, err := strconv.ParseInt(strings.TrimSpace(startPart), 10, 64)
	if err != nil || start < 0 {
		start = 0
	}
	end, err = strconv.ParseInt(strings.TrimSpace(endPart), 10, 64)
	if err != nil || end >= size {
		end = size - 1
	}
	if start >= size || start > end {
		return 0, 0, false
	}
	return start, end, true
}
