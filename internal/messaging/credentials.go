package messaging

import "strings"

// ConfigSource identifies which credential set a resolution selected.
type ConfigSource string

const (
	// SourceTenant means the tenant's own provider account is in effect.
	SourceTenant ConfigSource = "tenant"
	// SourcePlatform means the shared platform account is in effect.
	SourcePlatform ConfigSource = "platform"
	// SourceNone means no usable credentials exist; sends must fail fast.
	SourceNone ConfigSource = "none"
)

// CredentialSet holds one provider account. Value object: never mutated,
// only replaced wholesale.
type CredentialSet struct {
	AccountID    string
	AuthSecret   string
	SenderNumber string
}

// IsComplete reports whether all three fields are usable. A partially
// filled set is treated the same as an absent one.
func (c CredentialSet) IsComplete() bool {
	return strings.TrimSpace(c.AccountID) != "" &&
		strings.TrimSpace(c.AuthSecret) != "" &&
		strings.TrimSpace(c.SenderNumber) != ""
}

// EffectiveConfig is the outcome of tenant-over-platform resolution.
type EffectiveConfig struct {
	Credentials CredentialSet
	Source      ConfigSource
}

// Usable reports whether the resolution produced credentials a send may use.
func (e EffectiveConfig) Usable() bool {
	return e.Source != SourceNone
}

// Resolver picks the effective credential set for a tenant. The platform
// default is injected once at construction and immutable for the process
// lifetime, which keeps Resolve pure and deterministic.
type Resolver struct {
	platform CredentialSet
}

// NewResolver builds a resolver around the process-wide platform credentials.
func NewResolver(platform CredentialSet) *Resolver {
	return &Resolver{platform: platform}
}

// Resolve applies tenant-over-platform precedence. A complete tenant
// override always wins, even when the platform default is configured.
func (r *Resolver) Resolve(tenant *CredentialSet) EffectiveConfig {
	if tenant != nil && tenant.IsComplete() {
		return EffectiveConfig{Credentials: *tenant, Source: SourceTenant}
	}
	if r.platform.IsComplete() {
		return EffectiveConfig{Credentials: r.platform, Source: SourcePlatform}
	}
	return EffectiveConfig{Source: SourceNone}
}

// PlatformConfigured reports whether the shared platform account is usable.
func (r *Resolver) PlatformConfigured() bool {
	return r.platform.IsComplete()
}
