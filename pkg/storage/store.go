package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/liabooks/cartsync/pkg/config"
	"github.com/liabooks/cartsync/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one durable key/blob pair. The cart and the removed-item ledger
// each live under a fixed key, mirroring browser localStorage semantics.
type Entry struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (Entry) TableName() string {
	return "kv_entries"
}

// Store wraps the embedded sqlite database backing durable local state.
type Store struct {
	conn *gorm.DB
}

// New opens (or creates) the sqlite file and prepares the key/value table.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(sqlite.Open(cfg.Path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening local storage: %w", err)
	}

	if err := conn.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("preparing local storage: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "local storage ready")
	}

	return &Store{conn: conn}, nil
}

// Load returns the blob stored at key, or nil when the key is absent.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := s.conn.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", key, err)
	}
	return entry.Value, nil
}

// Save upserts the blob under key.
func (s *Store) Save(ctx context.Context, key string, value []byte) error {
	entry := Entry{Key: key, Value: value}
	err := s.conn.WithContext(ctx).Save(&entry).Error
	if err != nil {
		return fmt.Errorf("saving %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob under key. Absent keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.conn.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// Close shuts down the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
