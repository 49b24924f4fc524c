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

type MessageHandler struct {
	log            *logger.Logger
	messageService services.MessageService
}

func NewMessageHandler(log *logger.Logger, messageService services.MessageService) *MessageHandler {
	return &MessageHandler{
		log:            log.With("handler", "MessageHandler"),
		messageService: messageService,
	}
}

type appendMessageRequest struct {
	Body string `json:"body"`
}

// AppendMessage adds a collaboration message to a report.
// POST /api/v1/staff/bug-reports/:id/messages
func (h *MessageHandler) AppendMessage(c *gin.Context) {
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
	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeValidationError, "request body is not valid JSON", nil)
		return
	}
	message, err := h.messageService.Append(c.Request.Context(), staff.OrganizationID, reportID, staff.Email, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			RespondError(c, http.StatusBadRequest, CodeValidationError, "message body is required", nil)
		case errors.Is(err, services.ErrReportNotFound):
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
		default:
			h.log.Error("message append failed", "error", err)
			RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not store message", nil)
		}
		return
	}
	RespondCreated(c, gin.H{"message": message})
}

// ListMessages lists a report's collaboration messages in append order.
// GET /api/v1/staff/bug-reports/:id/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
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
	messages, err := h.messageService.List(c.Request.Context(), staff.OrganizationID, reportID)
	if err != nil {
		if errors.Is(err, services.ErrReportNotFound) {
			RespondError(c, http.StatusNotFound, CodeNotFound, "bug report not found", nil)
			return
		}
		h.log.Error("message list failed", "error", err)
		RespondError(c, http.StatusInternalServerError, CodeInternalError, "could not load messages", nil)
		return
	}
	RespondOK(c, gin.H{"messages": messages})
}
