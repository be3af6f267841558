package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/internal/tenancy"
	"github.com/kitewire/messaging-platform/internal/tenants"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

type messageSender interface {
	Send(ctx context.Context, tenantID, leadID, toRaw, body string) (*messaging.SendResult, error)
}

// MessagesHandler exposes outbound SMS dispatch over HTTP.
type MessagesHandler struct {
	sender messageSender
	logger *logging.Logger
}

func NewMessagesHandler(sender messageSender, logger *logging.Logger) *MessagesHandler {
	if sender == nil {
		panic("handlers: sender cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MessagesHandler{sender: sender, logger: logger}
}

type sendMessageRequest struct {
	LeadID string `json:"leadId"`
	To     string `json:"to"`
	Body   string `json:"body"`
}

// Create handles POST /api/messages.
func (h *MessagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := tenancy.TenantIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "missing tenant id")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.To == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "to and body are required")
		return
	}

	result, err := h.sender.Send(r.Context(), tenantID, req.LeadID, req.To, req.Body)
	if err != nil {
		h.writeSendError(w, tenantID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"providerMessageId": result.ProviderMessageID,
		"to":                result.To,
		"status":            string(messaging.StatusQueued),
	})
}

func (h *MessagesHandler) writeSendError(w http.ResponseWriter, tenantID string, err error) {
	var perr *messaging.ProviderError
	switch {
	case errors.Is(err, messaging.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "sms integration not configured")
	case errors.Is(err, messaging.ErrInvalidNumber):
		writeError(w, http.StatusBadRequest, "invalid phone number")
	case errors.Is(err, tenants.ErrInvalidTenantID):
		writeError(w, http.StatusBadRequest, "invalid tenant id")
	case errors.As(err, &perr):
		h.logger.Error("provider rejected send", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusBadGateway, perr.Message)
	default:
		h.logger.Error("send failed", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to send message")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
