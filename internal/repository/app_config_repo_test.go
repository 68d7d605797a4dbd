package repository

import (
	"context"
	"testing"
	"time"

	"trading-dashboard/config"
	"trading-dashboard/internal/model"
	"trading-dashboard/internal/testutil"
	"trading-dashboard/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAppConfigRepository_SetGet(t *testing.T) {
	cfg := &config.Config{Cache: config.Cache{AppConfigExpDuration: time.Minute}}
	repo := NewAppConfigRepository(cfg, cache.NewCache(time.Minute, time.Minute), testutil.NewTestDB(t))
	ctx := context.Background()

	var minutes int
	err := repo.Get(ctx, model.AppConfigSchedulerInterval, &minutes)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Set(ctx, model.AppConfigSchedulerInterval, 15, "minutes between scheduled runs"))
	require.NoError(t, repo.Get(ctx, model.AppConfigSchedulerInterval, &minutes))
	assert.Equal(t, 15, minutes)

	// the cached value must not survive an overwrite
	require.NoError(t, repo.Set(ctx, model.AppConfigSchedulerInterval, 45, ""))
	require.NoError(t, repo.Get(ctx, model.AppConfigSchedulerInterval, &minutes))
	assert.Equal(t, 45, minutes)
}
