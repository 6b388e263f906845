// Package audit persists the trail of order mutations off the request path.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/bloomcart/pkg/config"
	"github.com/example/bloomcart/pkg/models"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Sink stores audit entries.
type Sink interface {
	Write(ctx context.Context, entry models.AuditEntry) error
}

// auditLog is the audit_logs row.
type auditLog struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Service   string    `gorm:"size:64;not null"`
	Action    string    `gorm:"size:64;not null;index"`
	EntityID  string    `gorm:"size:64;not null;index"`
	ActorID   string    `gorm:"size:64"`
	ActorRole string    `gorm:"size:16"`
	Data      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (auditLog) TableName() string {
	return "audit_logs"
}

type MySQLSink struct {
	db *gorm.DB
}

func NewMySQLSink(cfg *config.MySQLConfig) (*MySQLSink, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.AutoMigrate(&auditLog{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return &MySQLSink{db: db}, nil
}

func (s *MySQLSink) Write(ctx context.Context, entry models.AuditEntry) error {
	row := auditLog{
		Service:   entry.Service,
		Action:    entry.Action,
		EntityID:  entry.EntityID,
		ActorID:   entry.ActorID,
		ActorRole: string(entry.ActorRole),
		CreatedAt: entry.CreatedAt,
	}
	if len(entry.Data) > 0 {
		data, err := json.Marshal(entry.Data)
		if err != nil {
			return fmt.Errorf("failed to encode audit data: %w", err)
		}
		row.Data = string(data)
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *MySQLSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// LogSink writes entries to the structured log. It is used when no database is configured.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, entry models.AuditEntry) error {
	s.logger.Info("Audit",
		zap.String("service", entry.Service),
		zap.String("action", entry.Action),
		zap.String("entity_id", entry.EntityID),
		zap.String("actor_id", entry.ActorID),
		zap.String("actor_role", string(entry.ActorRole)),
		zap.Any("data", entry.Data),
		zap.Time("created_at", entry.CreatedAt),
	)
	return nil
}
