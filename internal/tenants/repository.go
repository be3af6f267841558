package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kitewire/messaging-platform/internal/messaging"
)

// ErrInvalidTenantID is returned when a tenant id is not a UUID.
var ErrInvalidTenantID = errors.New("tenants: invalid tenant id")

// PgxPool is the subset of pgxpool.Pool the repository needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists per-tenant provider credential overrides in Postgres.
type Repository struct {
	pool PgxPool
}

func NewRepository(pool PgxPool) *Repository {
	if pool == nil {
		return nil
	}
	return &Repository{pool: pool}
}

var _ messaging.TenantConfigSource = (*Repository)(nil)

// ProviderConfig returns the tenant's credential override, or nil when the
// tenant has no stored override.
func (r *Repository) ProviderConfig(ctx context.Context, tenantID string) (*messaging.CredentialSet, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTenantID, tenantID)
	}
	query := `
		SELECT account_id, auth_secret, sender_number
		FROM tenant_provider_configs
		WHERE tenant_id = $1
	`
	var creds messaging.CredentialSet
	if err := r.pool.QueryRow(ctx, query, id).Scan(&creds.AccountID, &creds.AuthSecret, &creds.SenderNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("tenants: load provider config: %w", err)
	}
	return &creds, nil
}

// UpsertProviderConfig stores or replaces the tenant's credential override
// wholesale.
func (r *Repository) UpsertProviderConfig(ctx context.Context, tenantID string, creds messaging.CredentialSet) error {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTenantID, tenantID)
	}
	query := `
		INSERT INTO tenant_provider_configs (tenant_id, account_id, auth_secret, sender_number)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			auth_secret = EXCLUDED.auth_secret,
			sender_number = EXCLUDED.sender_number,
			updated_at = now()
	`
	if _, err := r.pool.Exec(ctx, query, id, creds.AccountID, creds.AuthSecret, creds.SenderNumber); err != nil {
		return fmt.Errorf("tenants: upsert provider config: %w", err)
	}
	return nil
}

// DeleteProviderConfig removes the tenant's override so sends fall back to
// the platform default.
func (r *Repository) DeleteProviderConfig(ctx context.Context, tenantID string) error {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidTenantID, tenantID)
	}
	query := `
		DELETE FROM tenant_provider_configs
		WHERE tenant_id = $1
	`
	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("tenants: delete provider config: %w", err)
	}
	return nil
}
