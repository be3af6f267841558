package tenants

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kitewire/messaging-platform/internal/messaging"
	"github.com/kitewire/messaging-platform/pkg/logging"
)

func newCacheFixture(t *testing.T) (pgxmock.PgxPoolIface, *miniredis.Miniredis, *CachedRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cached := NewCachedRepository(NewRepository(mock), client, time.Minute, logging.New("error"))
	require.NotNil(t, cached)
	return mock, mr, cached
}

func TestCachedRepositoryReadThrough(t *testing.T) {
	mock, _, cached := newCacheFixture(t)
	tenantID := uuid.New()

	// Only one Postgres round trip expected for two reads.
	mock.ExpectQuery("SELECT account_id, auth_secret, sender_number").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "auth_secret", "sender_number"}).
			AddRow("AC123", "secret", "+15550001111"))

	want := &messaging.CredentialSet{AccountID: "AC123", AuthSecret: "secret", SenderNumber: "+15550001111"}

	creds, err := cached.ProviderConfig(context.Background(), tenantID.String())
	require.NoError(t, err)
	require.Equal(t, want, creds)

	creds, err = cached.ProviderConfig(context.Background(), tenantID.String())
	require.NoError(t, err)
	require.Equal(t, want, creds)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRepositoryNegativeCaching(t *testing.T) {
	mock, _, cached := newCacheFixture(t)
	tenantID := uuid.New()

	mock.ExpectQuery("SELECT account_id, auth_secret, sender_number").
		WithArgs(tenantID).
		WillReturnError(pgx.ErrNoRows)

	// First read misses everywhere, second is served by the no-override
	// marker without another query.
	for i := 0; i < 2; i++ {
		creds, err := cached.ProviderConfig(context.Background(), tenantID.String())
		require.NoError(t, err)
		require.Nil(t, creds)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRepositoryUpsertInvalidates(t *testing.T) {
	mock, _, cached := newCacheFixture(t)
	tenantID := uuid.New()

	mock.ExpectQuery("SELECT account_id, auth_secret, sender_number").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "auth_secret", "sender_number"}).
			AddRow("AC_old", "old", "+15550001111"))
	mock.ExpectExec("INSERT INTO tenant_provider_configs").
		WithArgs(tenantID, "AC_new", "new", "+15552223333").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT account_id, auth_secret, sender_number").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "auth_secret", "sender_number"}).
			AddRow("AC_new", "new", "+15552223333"))

	_, err := cached.ProviderConfig(context.Background(), tenantID.String())
	require.NoError(t, err)

	err = cached.UpsertProviderConfig(context.Background(), tenantID.String(), messaging.CredentialSet{
		AccountID:    "AC_new",
		AuthSecret:   "new",
		SenderNumber: "+15552223333",
	})
	require.NoError(t, err)

	creds, err := cached.ProviderConfig(context.Background(), tenantID.String())
	require.NoError(t, err)
	require.Equal(t, "AC_new", creds.AccountID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRepositoryRedisDownDegradesToPostgres(t *testing.T) {
	mock, mr, cached := newCacheFixture(t)
	tenantID := uuid.New()
	mr.Close()

	mock.ExpectQuery("SELECT account_id, auth_secret, sender_number").
		WithArgs(tenantID).
		WillReturnRows(pgxmock.NewRows([]string{"account_id", "auth_secret", "sender_number"}).
			AddRow("AC123", "secret", "+15550001111"))

	creds, err := cached.ProviderConfig(context.Background(), tenantID.String())
	require.NoError(t, err)
	require.Equal(t, "AC123", creds.AccountID)
}
