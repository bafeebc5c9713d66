package importer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Triaksa-Space/be-admin-console/middleware"
	"github.com/Triaksa-Space/be-admin-console/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

// Importer is the service surface used by the HTTP handler.
type Importer interface {
	Preview(ctx context.Context, up Upload, mapping FieldMapping) (*PreviewResponse, error)
	Commit(ctx context.Context, actorID string, up Upload, mapping FieldMapping, opts Options) (*Response, error)
	MaxFileSize() int64
}

type Handler struct {
	svc Importer
}

func NewHandler(svc Importer) *Handler {
	return &Handler{svc: svc}
}

// PreviewHandler handles POST /users/import/preview.
func (h *Handler) PreviewHandler(c echo.Context) error {
	up, appErr := h.readUpload(c)
	if appErr != nil {
		return apperrors.RespondWithError(c, appErr)
	}
	mapping, appErr := formJSON[FieldMapping](c, "fieldMapping")
	if appErr != nil {
		return apperrors.RespondWithError(c, appErr)
	}

	resp, err := h.svc.Preview(c.Request().Context(), up, mapping)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// CommitHandler handles POST /users/import.
func (h *Handler) CommitHandler(c echo.Context) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return apperrors.RespondWithError(c, apperrors.NewUnauthorized("Authentication required"))
	}
	up, appErr := h.readUpload(c)
	if appErr != nil {
		return apperrors.RespondWithError(c, appErr)
	}
	mapping, appErr := formJSON[FieldMapping](c, "fieldMapping")
	if appErr != nil {
		return apperrors.RespondWithError(c, appErr)
	}
	opts, appErr := formJSON[Options](c, "options")
	if appErr != nil {
		return apperrors.RespondWithError(c, appErr)
	}

	resp, err := h.svc.Commit(c.Request().Context(), actor.ID, up, mapping, opts)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(resp.HTTPStatus(), resp)
}

// TemplateHandler handles GET /users/import/template[?format=xlsx].
func (h *Handler) TemplateHandler(c echo.Context) error {
	if strings.EqualFold(c.QueryParam("format"), "xlsx") {
		data, err := GenerateSampleXLSX()
		if err != nil {
			return apperrors.NewInternal(apperrors.ErrCodeInternal, "Failed to build template", err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="users-template.xlsx"`)
		return c.Blob(http.StatusOK, MIMEXLSX, data)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="users-template.csv"`)
	return c.Blob(http.StatusOK, MIMECSV+"; charset=utf-8", []byte(GenerateSampleCSV()))
}

// readUpload checks presence and size before the file is read, so oversized
// uploads are rejected without parsing.
func (h *Handler) readUpload(c echo.Context) (Upload, *apperrors.AppError) {
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.Is(err, echo.ErrStatusRequestEntityTooLarge) || errors.As(err, &maxErr) {
			return Upload{}, fileTooLarge(h.svc.MaxFileSize())
		}
		return Upload{}, apperrors.NewBadRequest(apperrors.ErrCodeValidation, "A file is required")
	}
	if fh.Size > h.svc.MaxFileSize() {
		return Upload{}, fileTooLarge(h.svc.MaxFileSize())
	}
	contentType := fh.Header.Get(echo.HeaderContentType)
	if _, err := DetectFormat(fh.Filename, contentType); err != nil {
		return Upload{}, apperrors.NewBadRequest(apperrors.ErrCodeUnsupportedFileFormat,
			"Only CSV, XLS and XLSX files are supported")
	}

	f, err := fh.Open()
	if err != nil {
		return Upload{}, apperrors.NewBadRequest(apperrors.ErrCodeImportFileInvalid, "The file could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.svc.MaxFileSize()+1))
	if err != nil {
		return Upload{}, apperrors.NewBadRequest(apperrors.ErrCodeImportFileInvalid, "The file could not be read")
	}
	return Upload{FileName: fh.Filename, ContentType: contentType, Data: data}, nil
}

func formJSON[T any](c echo.Context, field string) (T, *apperrors.AppError) {
	var out T
	raw := strings.TrimSpace(c.FormValue(field))
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, apperrors.NewBadRequest(apperrors.ErrCodeValidation, field+" must be valid JSON")
	}
	return out, nil
}

func respondErr(c echo.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.RespondWithError(c, appErr)
	}
	return err
}
