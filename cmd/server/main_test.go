package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tillclose/internal/domain"
	"github.com/iho/tillclose/internal/infrastructure/config"
	"github.com/iho/tillclose/internal/infrastructure/eventpublisher"
)

func TestSettlementConfigDefaults(t *testing.T) {
	cfg := &config.Config{CompletionPolicy: "justified"}

	sc, err := settlementConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.CompletionPolicyJustified, sc.Policy)
	assert.Equal(t, domain.DefaultDenominationSet().Len(), sc.Denominations.Len())
}

func TestSettlementConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denominations.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[denomination]]
label = "20"
value = "20"

[[denomination]]
label = "0.25"
value = "0.25"
`), 0o600))

	sc, err := settlementConfig(&config.Config{CompletionPolicy: "balanced", DenominationsFile: path})
	require.NoError(t, err)
	assert.Equal(t, domain.CompletionPolicyBalanced, sc.Policy)
	require.Equal(t, 2, sc.Denominations.Len())
	assert.Equal(t, "0.25", sc.Denominations.Items()[1].Label)
}

func TestSettlementConfigRejectsUnknownPolicy(t *testing.T) {
	_, err := settlementConfig(&config.Config{CompletionPolicy: "whatever"})
	assert.Error(t, err)
}

func TestNewSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	logSink := newSink(&config.Config{PublisherSink: config.PublisherSinkLog}, client, zerolog.Nop())
	assert.IsType(t, &eventpublisher.LogPublisher{}, logSink)

	streamSink := newSink(&config.Config{PublisherSink: config.PublisherSinkRedis, PublisherStream: "s"}, client, zerolog.Nop())
	assert.IsType(t, &eventpublisher.RedisStreamPublisher{}, streamSink)

	fallback := newSink(&config.Config{PublisherSink: config.PublisherSinkRedis}, nil, zerolog.Nop())
	assert.IsType(t, &eventpublisher.LogPublisher{}, fallback)
}

func TestOpenStoreSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := openStore(ctx, &config.Config{StoreDriver: config.StoreDriverSQLite, SQLiteDSN: ":memory:"}, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer st.close()

	assert.Equal(t, "sqlite", st.health.Name)
	require.NoError(t, st.health.Pinger.Ping(ctx))

	_, err = st.settlements.GetBySessionID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSettlementNotFound)
}

func TestOpenStoreRejectsUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), &config.Config{StoreDriver: "mongo"}, zerolog.Nop(), nil)
	assert.Error(t, err)
}
