package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/service"
)

// RecordsHandler serves read endpoints for directory records.
type RecordsHandler struct {
	records *service.RecordsService
}

// NewRecordsHandler wires a handler backed by the records service.
func NewRecordsHandler(records *service.RecordsService) *RecordsHandler {
	return &RecordsHandler{records: records}
}

// List handles GET /records requests.
func (h *RecordsHandler) List(c echo.Context) error {
	filter := dto.ListFilter{
		Q:       strings.TrimSpace(c.QueryParam("q")),
		City:    strings.TrimSpace(c.QueryParam("city")),
		Country: strings.TrimSpace(c.QueryParam("country")),
		Page:    parseIntParam(c.QueryParam("page")),
		PerPage: parseIntParam(c.QueryParam("per_page")),
	}

	records, err := h.records.ListRecords(c.Request().Context(), filter)
	if err != nil {
		return Error(c, http.StatusInternalServerError, "failed to list records")
	}

	return Success(c, http.StatusOK, "records retrieved", map[string]any{
		"records": records,
		"count":   len(records),
	})
}

func parseIntParam(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
