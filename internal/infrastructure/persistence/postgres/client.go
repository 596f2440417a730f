// Package postgres 用 GORM 持久化生成用量流水
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"quill-ai-editor/internal/config"
	"quill-ai-editor/internal/domain/entity"
	"quill-ai-editor/pkg/logger"
)

var tracer = otel.Tracer("postgres")

const pingTimeout = 5 * time.Second

// Client 持有 GORM 连接，只服务于用量流水表
type Client struct {
	db *gorm.DB
}

// gormWriter 把 GORM 的慢查询与错误日志转给 slog
type gormWriter struct{}

func (gormWriter) Printf(format string, args ...any) {
	logger.Default().Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

// DSN 拼接 key=value 形式的连接串
func DSN(cfg *config.PostgresConfig) string {
	parts := []string{
		"host=" + cfg.Host,
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Database,
		"sslmode=" + cfg.SSLMode,
	}
	return strings.Join(parts, " ")
}

// NewClient 打开连接池并 ping 一次，失败时关闭已打开的连接
func NewClient(cfg *config.PostgresConfig) (*Client, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.New(gormWriter{}, gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Client{db: db}, nil
}

// NewFromDB 包装已有的 GORM 实例
func NewFromDB(db *gorm.DB) *Client {
	return &Client{db: db}
}

// Migrate 创建或更新用量流水表
func (c *Client) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.Migrate")
	defer span.End()

	if err := c.db.WithContext(ctx).AutoMigrate(&entity.GenerationUsageEvent{}); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to migrate generation usage events: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// HealthCheck 供 /ready 探测使用
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.HealthCheck")
	defer span.End()

	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}
