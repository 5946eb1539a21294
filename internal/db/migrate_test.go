package db

import (
	"testing"

	"paper_trading/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestMigrateCreatesTables(t *testing.T) {
	gdb, err := Open("sqlite", "file:migrate_test?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))

	for _, model := range []any{&domain.User{}, &domain.PortfolioAsset{}, &domain.Transaction{}, &domain.MiningWorker{}, &domain.MiningReward{}} {
		assert.True(t, gdb.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, gdb.Migrator().HasIndex(&domain.PortfolioAsset{}, "idx_asset_user_coin"))

	// Migrating twice is harmless
	require.NoError(t, Migrate(gdb))
}
