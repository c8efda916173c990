package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/service"
)

// UploadHandler handles CSV ingestion for administrators.
type UploadHandler struct {
	imports *service.ImportService
}

// NewUploadHandler wires a handler backed by the import service.
func NewUploadHandler(imports *service.ImportService) *UploadHandler {
	return &UploadHandler{imports: imports}
}

// UploadCSV handles POST /admin/upload-csv requests.
func (h *UploadHandler) UploadCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "missing csv file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Error(c, http.StatusBadRequest, "unable to open file")
	}
	defer file.Close()

	summary, err := h.imports.Import(c.Request().Context(), file)
	if err != nil {
		var formatErr service.FormatError
		if errors.As(err, &formatErr) {
			return Error(c, http.StatusBadRequest, formatErr.Error())
		}
		var readErr service.ReadError
		if errors.As(err, &readErr) {
			return Error(c, http.StatusBadRequest, readErr.Error())
		}
		if errors.Is(err, service.ErrImportInFlight) {
			return Error(c, http.StatusConflict, err.Error())
		}
		return Error(c, http.StatusInternalServerError, "failed to process csv")
	}

	ids := make([]string, 0, len(summary.Records))
	for _, rec := range summary.Records {
		ids = append(ids, rec.ID)
	}

	return Success(c, http.StatusOK, "records CSV processed", dto.UploadSummary{
		Processed: summary.Processed,
		Skipped:   summary.Skipped,
		RecordIDs: ids,
		Warnings:  summary.Warnings,
	})
}
