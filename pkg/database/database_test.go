package database

import (
	"lesson_platform_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMigrateSeedsArtifactsOnce(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:seed_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var artifacts []model.LessonArtifact
	require.NoError(t, db.Order("sort_order").Find(&artifacts).Error)
	assert.Len(t, artifacts, 8)
	assert.Equal(t, "for-loops", artifacts[0].Slug)
	assert.True(t, artifacts[0].Published)
	assert.Equal(t, []string{"loop", "python"}, artifacts[0].Tags)
}
