package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"mediahub/internal/service"

	"github.com/labstack/echo/v4"
)

var uploadFileFields = []string{"image", "video", "file"}

// AddNewMedia handles create-only uploads: the name must not exist yet.
func (h *Handler) AddNewMedia(c echo.Context) error {
	file, err := h.readUploadFile(c)
	if err != nil {
		return err
	}

	asset, err := h.svc.AddNewAsset(c.Request().Context(), formValue(c, "name"), formValue(c, "section"), file)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"url":     assetURL(asset),
	})
}

// UploadMedia handles upsert uploads: replace, rename, or create with an
// explicit section.
func (h *Handler) UploadMedia(c echo.Context) error {
	file, err := h.readUploadFile(c)
	if err != nil {
		return err
	}

	asset, err := h.svc.UpsertAsset(c.Request().Context(), service.UpsertParams{
		Name:    formValue(c, "name"),
		NewName: formValue(c, "newName"),
		Section: formValue(c, "section"),
	}, file)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"url":     assetURL(asset),
	})
}

// readUploadFile pulls exactly one file out of the multipart form, checking
// the configured size cap before buffering.
func (h *Handler) readUploadFile(c echo.Context) (service.UploadFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	var headers []*multipart.FileHeader
	for _, field := range uploadFileFields {
		headers = append(headers, form.File[field]...)
	}
	if len(headers) == 0 {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "a media file is required")
	}
	if len(headers) > 1 {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "exactly one file per request")
	}

	fh := headers[0]
	maxBytes := h.svc.MaxUploadBytes()
	if fh.Size > maxBytes {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "file exceeds the upload size limit")
	}

	src, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxBytes+1))
	if err != nil {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
	}
	if int64(len(data)) > maxBytes {
		return service.UploadFile{}, echo.NewHTTPError(http.StatusBadRequest, "file exceeds the upload size limit")
	}

	return service.UploadFile{
		OriginalName: fh.Filename,
		ContentType:  fh.Header.Get(echo.HeaderContentType),
		Bytes:        data,
	}, nil
}
