package messaging

import "context"

// MessageRecord captures the persisted state of one outbound SMS. Immutable
// after creation except for Status/UpdatedAt, which only the lifecycle
// tracker touches.
type MessageRecord struct {
	ProviderMessageID string `dynamodbav:"providerMessageId" json:"providerMessageId"`
	TenantID          string `dynamodbav:"tenantId" json:"tenantId"`
	LeadID            string `dynamodbav:"leadId,omitempty" json:"leadId,omitempty"`
	To                string `dynamodbav:"to" json:"to"`
	Body              string `dynamodbav:"body" json:"body"`
	Status            Status `dynamodbav:"status" json:"status"`
	CreatedAt         string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt         string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// MessageStore persists outbound messages keyed by (providerMessageId,
// tenantId).
type MessageStore interface {
	// CreateMessage inserts a new record; it must refuse to overwrite an
	// existing provider message id.
	CreateMessage(ctx context.Context, rec *MessageRecord) error
	// GetMessage returns ErrMessageNotFound when no record exists.
	GetMessage(ctx context.Context, providerMessageID, tenantID string) (*MessageRecord, error)
	// ConditionalUpdateStatus transitions the message to next only if its
	// current status is an allowed predecessor, as a single atomic
	// read-modify-write. It reports whether the transition was applied; a
	// failed condition (terminal, duplicate, out-of-order, or missing
	// record) is (false, nil), not an error.
	ConditionalUpdateStatus(ctx context.Context, providerMessageID, tenantID string, next Status) (bool, error)
}
