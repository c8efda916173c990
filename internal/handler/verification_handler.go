package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bluecatalog/directory-api/internal/dto"
	"github.com/bluecatalog/directory-api/internal/repository"
	"github.com/bluecatalog/directory-api/internal/service"
)

// VerificationHandler accepts verify/flag decisions for record fields.
type VerificationHandler struct {
	verifications *service.VerificationService
}

// NewVerificationHandler wires a handler backed by the verification service.
func NewVerificationHandler(verifications *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

// Submit handles POST /records/:id/verification requests.
func (h *VerificationHandler) Submit(c echo.Context) error {
	recordID := c.Param("id")

	var req dto.VerifyFieldRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Field) == "" {
		return Error(c, http.StatusBadRequest, "field must not be empty")
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "verify":
		err = h.verifications.Verify(c.Request().Context(), recordID, req.Field)
	case "flag":
		err = h.verifications.Flag(c.Request().Context(), recordID, req.Field)
	default:
		return Error(c, http.StatusBadRequest, "action must be verify or flag")
	}

	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return Error(c, http.StatusNotFound, "record not found")
		}
		return Error(c, http.StatusInternalServerError, "failed to record verification")
	}

	return Success(c, http.StatusOK, "verification recorded", map[string]any{
		"record_id": recordID,
		"field":     req.Field,
		"action":    strings.ToLower(strings.TrimSpace(req.Action)),
	})
}
