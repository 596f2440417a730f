package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/entity"
)

func newDryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost port=5432 user=quill dbname=quill sslmode=disable",
	}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)
	return db
}

func TestSummarizeQuery_GroupsByStyle(t *testing.T) {
	db := newDryRunDB(t)
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []entity.StyleUsage
		return summarizeQuery(tx, since).Find(&rows)
	})

	assert.Contains(t, sql, `FROM "generation_usage_events"`)
	assert.Contains(t, sql, "COUNT(*) AS requests")
	assert.Contains(t, sql, "status = 'error'")
	assert.Contains(t, sql, "GROUP BY")
	assert.Contains(t, sql, "2026-01-02")
}

func TestCreate_BuildsInsert(t *testing.T) {
	db := newDryRunDB(t)
	event := &entity.GenerationUsageEvent{
		ID:       "6f1c2a59-3b0e-4c55-9a7e-8ad0f1e0c001",
		Style:    entity.StyleCreative,
		Mode:     entity.ModeContinue,
		Provider: "openai",
		Model:    "gpt-4o-mini",
		Status:   entity.GenerationSucceeded,
	}

	stmt := db.Session(&gorm.Session{DryRun: true}).Create(event).Statement
	assert.Contains(t, stmt.SQL.String(), `INSERT INTO "generation_usage_events"`)
	assert.Contains(t, stmt.Vars, entity.StyleCreative)
}

func TestGenerationUsageRepository_CreateDryRun(t *testing.T) {
	db := newDryRunDB(t).Session(&gorm.Session{DryRun: true})
	repo := NewGenerationUsageRepository(NewFromDB(db))

	err := repo.Create(context.Background(), &entity.GenerationUsageEvent{
		ID:     "6f1c2a59-3b0e-4c55-9a7e-8ad0f1e0c002",
		Style:  entity.StyleAuto,
		Mode:   entity.ModeExpand,
		Status: entity.GenerationFailed,
	})
	assert.NoError(t, err)
}

func TestDSN(t *testing.T) {
	dsn := DSN(&config.PostgresConfig{
		Host: "db", Port: 5432, User: "quill", Password: "secret", Database: "quill", SSLMode: "disable",
	})
	assert.Equal(t, "host=db port=5432 user=quill password=secret dbname=quill sslmode=disable", dsn)
}
