package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/helpdeskhq/support-desk/internal/config"
)

func TestNewPostgresWithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, pg.Configured())
	assert.Nil(t, pg.PoolHandle())
	assert.Error(t, pg.Ping(context.Background()))
	pg.Close()
}

func TestNewPostgresRejectsMalformedDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"}, zap.NewNop())
	assert.ErrorContains(t, err, "parse postgres dsn")
}

func TestApplyPoolLimits(t *testing.T) {
	poolCfg, err := pgxpool.ParseConfig("postgres://app@localhost:5432/desk")
	require.NoError(t, err)
	defaults := poolCfg.MinConns

	applyPoolLimits(poolCfg, config.PostgresConfig{MaxConns: 7, ConnMaxLifeSec: 60})

	assert.EqualValues(t, 7, poolCfg.MaxConns)
	assert.Equal(t, defaults, poolCfg.MinConns)
	assert.Equal(t, "1m0s", poolCfg.MaxConnLifetime.String())
}
