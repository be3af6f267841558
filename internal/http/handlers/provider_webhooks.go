package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/internal/observability/metrics"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

var webhookTracer = otel.Tracer("kitewire.internal.http.handlers.provider_webhooks")

// emptyAck is the acknowledgement body every callback receives. The
// provider retries anything it does not get a 2xx for, so internal failures
// must never leak upstream.
const emptyAck = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

type deliveryTracker interface {
	ApplyStatusUpdate(ctx context.Context, providerMessageID, tenantID string, reported messaging.Status)
}

// ProviderWebhookHandler receives asynchronous delivery status reports from
// the telephony provider.
type ProviderWebhookHandler struct {
	webhookSecret string
	tracker       deliveryTracker
	metrics       *metrics.MessagingMetrics
	logger        *logging.Logger
}

func NewProviderWebhookHandler(webhookSecret string, tracker deliveryTracker, m *metrics.MessagingMetrics, logger *logging.Logger) *ProviderWebhookHandler {
	if tracker == nil {
		panic("handlers: tracker cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ProviderWebhookHandler{
		webhookSecret: webhookSecret,
		tracker:       tracker,
		metrics:       m,
		logger:        logger,
	}
}

// DeliveryStatus handles POST /webhooks/provider/status/{tenantID}.
func (h *ProviderWebhookHandler) DeliveryStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := webhookTracer.Start(r.Context(), "messaging.provider.status_webhook")
	defer span.End()

	if h.webhookSecret != "" {
		if !messaging.ValidateWebhookSignature(r, h.webhookSecret, buildAbsoluteURL(r)) {
			h.logger.Warn("invalid provider webhook signature")
			span.RecordError(errors.New("invalid webhook signature"))
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	_ = r.ParseForm()
	tenantID := chi.URLParam(r, "tenantID")
	providerMessageID := r.PostFormValue("MessageSid")
	rawStatus := r.PostFormValue("MessageStatus")
	// Unrecognized provider statuses collapse to sent here, before the
	// tracker sees them.
	reported := messaging.ParseReportedStatus(rawStatus)

	span.SetAttributes(
		attribute.String("kitewire.tenant_id", tenantID),
		attribute.String("kitewire.provider_message_id", providerMessageID),
		attribute.String("kitewire.reported_status", string(reported)),
	)

	h.tracker.ApplyStatusUpdate(ctx, providerMessageID, tenantID, reported)

	h.metrics.ObserveWebhookLatency("provider_status", time.Since(start).Seconds())

	// Always acknowledge, whatever happened internally.
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(emptyAck))
}

func buildAbsoluteURL(r *http.Request) string {
	if r.URL == nil {
		return ""
	}
	if r.URL.Scheme != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
