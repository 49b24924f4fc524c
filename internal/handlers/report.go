package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/services"
)

type ReportHandler struct {
	log           *logger.Logger
	ingestion     services.IngestionService
	reportService services.ReportService
}

func NewReportHandler(log *logger.Logger, ingestion services.IngestionService, reportService services.ReportService) *ReportHandler {
	return &ReportHandler{
		log:           log.With("handler", "ReportHandler"),
		ingestion:     ingestion,
		reportService: reportService,
	}
}

type submitBugReportRequest struct {
	Title             string                           `json:"title"`
	Description       string                           `json:"description"`
	PageURL           string                           `json:"page_url"`
	Category          string                           `json:"category"`
	ReporterName      string                           `json:"reporter_name"`
	ReporterEmail     string                           `json:"reporter_email"`
	ScreenshotDataURL string                           `json:"screenshot_data_url"`
	Attachments       []services.SubmittedAttachment   `json:"attachments"`
	ConsoleLogs       json.RawMessage                  `json:"console_logs"`
	NetworkTrace      json.RawMessage                  `json:"network_trace"`
	BrowserInfo       json.RawMessage                  `json:"browser_info"`
	SystemInfo        json.RawMessage                  `json:"system_info"`
	Metadata          map[string]any                   `json:"metadata"`
}

// SubmitBugReport is the public SDK ingestion endpoint.
// POST /api/v1/reports
func (h *ReportHandler) SubmitBugReport(c *gin.Context) {
	tenant := requestdata.GetTenant(c.Request.Context())
	if tenant == nil {
		RespondError(c, http.StatusUnauthorized, CodeAuthError, "missing tenant context", nil)
		return
	}

	var req submitBugReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "request body is not valid JSON", nil)
		return
	}

	report, err := h.ingestion.Submit(c.Request.Context(), tenant, services.SubmitBugReportInput{
		Title:             req.Title,
		Description:       req.Description,
		PageURL:           req.PageURL,
		Category:          req.Category,
		ReporterName:      req.ReporterName,
		ReporterEmail:     req.ReporterEmail,
		ScreenshotDataURL: req.ScreenshotDataURL,
		Attachments:       req.Attachments,
		ConsoleLogs:       req.ConsoleLogs,
		NetworkTrace:      req.NetworkTrace,
		BrowserInfo:       req.BrowserInfo,
		SystemInfo:        req.SystemInfo,
		Metadata:          req.Metadata,
	})
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			RespondError(c, http.StatusBadRequest, CodeValidationError,
				"missing required fields", gin.H{"required_fields": validationErr.MissingFields})
			return
		}
		h.log.Error("bug report submission failed", "error", err)
		RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not store bug report", nil)
		return
	}

	RespondCreated(c, gin.H{
		"bug_report": report,
		"message":    "Bug report received. Thanks for the report!",
	})
}

// MethodNotAllowed answers GET on the ingestion path; retrieval lives on the
// staff surface.
func (h *ReportHandler) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", "POST, OPTIONS")
	RespondError(c, http.StatusMethodNotAllowed, CodeValidationError,
		"this endpoint accepts POST submissions only", nil)
}

// GetBugReport returns one report for the staff dashboard.
// GET /api/v1/staff/bug-reports/:id
func (h *ReportHandler) GetBugReport(c *gin.Context) {
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
	report, err := h.reportService.GetForOrganization(c.Request.Context(), staff.OrganizationID, reportID)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
			return
		}
		h.log.Error("bug report fetch failed", "error", err)
		RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not load bug report", nil)
		return
	}
	RespondOK(c, gin.H{"bug_report": report})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus mutates a report's triage status.
// PATCH /api/v1/staff/bug-reports/:id/status
func (h *ReportHandler) UpdateStatus(c *gin.Context) {
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
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "request body is not valid JSON", nil)
		return
	}
	report, err := h.reportService.UpdateStatus(c.Request.Context(), staff.OrganizationID, reportID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidStatus):
			RespondError(c, http.StatusBadRequest, CodeValidationError, "invalid status value", nil)
		case errors.Is(err, services.ErrReportNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
		default:
			h.log.Error("status update failed", "error", err)
			RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not update status", nil)
		}
		return
	}
	RespondOK(c, gin.H{"bug_report": report})
}
