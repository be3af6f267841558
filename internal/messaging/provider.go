package messaging

import "context"

// Provider dispatches an outbound SMS through an external telephony
// provider. The wire protocol is opaque to the core: the call either yields
// a provider-assigned message id or fails. tenantID is handed through so
// the adapter can register a tenant-scoped delivery status callback with
// the provider.
type Provider interface {
	Send(ctx context.Context, creds CredentialSet, tenantID, to, body string) (providerMessageID string, err error)
}
