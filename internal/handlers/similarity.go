package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/services"
)

type SimilarityHandler struct {
	log        *logger.Logger
	similarity services.SimilarityService
}

func NewSimilarityHandler(log *logger.Logger, similarity services.SimilarityService) *SimilarityHandler {
	return &SimilarityHandler{
		log:        log.With("handler", "SimilarityHandler"),
		similarity: similarity,
	}
}

// GetSimilar returns the two similarity buckets for one report.
// GET /api/v1/staff/bug-reports/:id/similar
func (h *SimilarityHandler) GetSimilar(c *gin.Context) {
	staff := requestdata.GetStaff(c.Request.Context())
	if staff == nil {
		RespondError(c, http.StatusUnauthorized, CodeAuthError, "missing staff context", nil)
		return
	}
	reportID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "invalid bug report id", nil)
		return
	}
	result, err := h.similarity.FindSimilar(c.Request.Context(), staff.OrganizationID, reportID)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
			return
		}
		h.log.Error("similarity lookup failed", "error", err)
		RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not compute similarity", nil)
		return
	}
	RespondOK(c, result)
}

type dismissRequest struct {
	SuggestedBugReportID string `json:"suggested_bug_report_id"`
	SuggestionType       string `json:"suggestion_type"`
}

// DismissSuggestion suppresses one (subject, candidate, type) pair.
// POST /api/v1/staff/bug-reports/:id/similar/dismiss
func (h *SimilarityHandler) DismissSuggestion(c *gin.Context) {
	staff := requestdata.GetStaff(c.Request.Context())
	if staff == nil {
		RespondError(c, http.StatusUnauthorized, CodeAuthError, "missing staff context", nil)
		return
	}
	subjectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "invalid bug report id", nil)
		return
	}
	var req dismissRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "request body is not valid JSON", nil)
		return
	}
	candidateID, err := uuid.Parse(req.SuggestedBugReportID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "invalid suggested bug report id", nil)
		return
	}
	staffUserID := staff.UserID
	err = h.similarity.Dismiss(c.Request.Context(), staff.OrganizationID, subjectID, candidateID, req.SuggestionType, &staffUserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidSuggestionType):
			RespondError(c, http.StatusBadRequest, CodeValidationError, "suggestion_type must be duplicate or related", nil)
		case errors.Is(err, services.ErrReportNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
		default:
			h.log.Error("dismissal failed", "error", err)
			RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not dismiss suggestion", nil)
		}
		return
	}
	RespondOK(c, gin.H{"ok": true})
}
