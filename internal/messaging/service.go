package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kitewire/messaging-platform/internal/observability/metrics"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

var serviceTracer = otel.Tracer("kitewire.internal.messaging.service")

// TenantConfigSource looks up a tenant's persisted provider credential
// override. A (nil, nil) return means the tenant has none and resolution
// falls through to the platform default.
type TenantConfigSource interface {
	ProviderConfig(ctx context.Context, tenantID string) (*CredentialSet, error)
}

// SendResult reports a successfully dispatched message.
type SendResult struct {
	ProviderMessageID string       `json:"providerMessageId"`
	To                string       `json:"to"`
	Source            ConfigSource `json:"source"`
}

// Service is the delivery lifecycle tracker. It owns the send pipeline
// (resolve, normalize, dispatch, record) and the webhook-driven status
// transitions. It is the only component that mutates message status.
type Service struct {
	resolver *Resolver
	tenants  TenantConfigSource
	provider Provider
	store    MessageStore
	metrics  *metrics.MessagingMetrics
	logger   *logging.Logger
}

// NewService wires the tracker. tenants and m may be nil (platform-only
// resolution, no metrics).
func NewService(resolver *Resolver, tenants TenantConfigSource, provider Provider, store MessageStore, m *metrics.MessagingMetrics, logger *logging.Logger) *Service {
	if resolver == nil {
		panic("messaging: resolver cannot be nil")
	}
	if provider == nil {
		panic("messaging: provider cannot be nil")
	}
	if store == nil {
		panic("messaging: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		resolver: resolver,
		tenants:  tenants,
		provider: provider,
		store:    store,
		metrics:  m,
		logger:   logger,
	}
}

// Send resolves the tenant's effective configuration, normalizes the
// recipient, dispatches through the provider, and records the accepted
// message as queued. Configuration is checked before normalization, and
// normalization before any network call, so callers get the cheapest
// possible failure. Provider rejection leaves no record behind.
func (s *Service) Send(ctx context.Context, tenantID, leadID, toRaw, body string) (*SendResult, error) {
	ctx, span := serviceTracer.Start(ctx, "messaging.send")
	defer span.End()
	span.SetAttributes(attribute.String("kitewire.tenant_id", tenantID))

	if strings.TrimSpace(tenantID) == "" {
		return nil, errors.New("messaging: tenant id required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, errors.New("messaging: body required")
	}

	var tenantCreds *CredentialSet
	if s.tenants != nil {
		var err error
		tenantCreds, err = s.tenants.ProviderConfig(ctx, tenantID)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("messaging: load tenant provider config: %w", err)
		}
	}

	eff := s.resolver.Resolve(tenantCreds)
	span.SetAttributes(attribute.String("kitewire.config_source", string(eff.Source)))
	if !eff.Usable() {
		s.metrics.ObserveOutbound("not_configured", string(eff.Source))
		s.logger.Warn("send refused: no usable provider credentials", "tenant_id", tenantID)
		return nil, ErrNotConfigured
	}

	to, err := NormalizeNumber(toRaw)
	if err != nil {
		s.metrics.ObserveOutbound("invalid_number", string(eff.Source))
		span.RecordError(err)
		return nil, err
	}

	providerMessageID, err := s.provider.Send(ctx, eff.Credentials, tenantID, to, body)
	if err != nil {
		s.metrics.ObserveOutbound("provider_rejected", string(eff.Source))
		s.logger.Error("provider rejected outbound sms", "tenant_id", tenantID, "error", err)
		span.RecordError(err)
		return nil, err
	}

	rec := &MessageRecord{
		ProviderMessageID: providerMessageID,
		TenantID:          tenantID,
		LeadID:            leadID,
		To:                to,
		Body:              body,
		Status:            StatusQueued,
	}
	if err := s.store.CreateMessage(ctx, rec); err != nil {
		// The provider already accepted the message; it is on the wire but
		// untracked. Surface the store failure without retrying the send.
		s.metrics.ObserveOutbound("store_error", string(eff.Source))
		s.logger.Error("outbound sms accepted but not recorded",
			"tenant_id", tenantID,
			"provider_message_id", providerMessageID,
			"error", err,
		)
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveOutbound("queued", string(eff.Source))
	s.logger.Info("outbound sms queued",
		"tenant_id", tenantID,
		"lead_id", leadID,
		"to", to,
		"provider_message_id", providerMessageID,
		"config_source", eff.Source,
	)
	return &SendResult{ProviderMessageID: providerMessageID, To: to, Source: eff.Source}, nil
}

// ApplyStatusUpdate reconciles a provider status report. It never fails the
// caller: webhook handlers must acknowledge the provider no matter what
// happens here, so every outcome is recorded internally instead. The
// transition itself is a single conditional write; duplicates, out-of-order
// reports, and updates to terminal messages lose the condition and become
// silent no-ops with no repeated side effects.
func (s *Service) ApplyStatusUpdate(ctx context.Context, providerMessageID, tenantID string, reported Status) {
	ctx, span := serviceTracer.Start(ctx, "messaging.apply_status_update")
	defer span.End()
	span.SetAttributes(
		attribute.String("kitewire.tenant_id", tenantID),
		attribute.String("kitewire.provider_message_id", providerMessageID),
		attribute.String("kitewire.reported_status", string(reported)),
	)

	if strings.TrimSpace(providerMessageID) == "" {
		s.metrics.ObserveCallback(string(reported), "invalid")
		s.logger.Warn("status update without provider message id dropped", "tenant_id", tenantID)
		return
	}
	if !reported.Valid() {
		// The webhook boundary maps unknown provider statuses to sent
		// before calling in; guard anyway.
		reported = StatusSent
	}

	applied, err := s.store.ConditionalUpdateStatus(ctx, providerMessageID, tenantID, reported)
	if err != nil {
		s.metrics.ObserveCallback(string(reported), "error")
		s.logger.Error("status update failed",
			"provider_message_id", providerMessageID,
			"tenant_id", tenantID,
			"status", reported,
			"error", err,
		)
		span.RecordError(err)
		return
	}
	if applied {
		s.metrics.ObserveCallback(string(reported), "applied")
		s.logger.Info("delivery status applied",
			"provider_message_id", providerMessageID,
			"tenant_id", tenantID,
			"status", reported,
		)
		return
	}

	// The condition lost: either the message is unknown or the report is a
	// duplicate/out-of-order one. Classify for the logs only; the state was
	// settled atomically above.
	if _, err := s.store.GetMessage(ctx, providerMessageID, tenantID); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			s.metrics.ObserveCallback(string(reported), "unknown")
			s.logger.Warn("status update for unknown message dropped",
				"provider_message_id", providerMessageID,
				"tenant_id", tenantID,
				"status", reported,
			)
			return
		}
		s.metrics.ObserveCallback(string(reported), "error")
		s.logger.Error("status update classification failed",
			"provider_message_id", providerMessageID,
			"error", err,
		)
		return
	}
	s.metrics.ObserveCallback(string(reported), "stale")
	s.logger.Debug("stale delivery status ignored",
		"provider_message_id", providerMessageID,
		"tenant_id", tenantID,
		"status", reported,
	)
}
