// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package checkpoint

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// checkpointRow is the single-table schema backing GormBackend.
type checkpointRow struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	ExpiresAt *time.Time
}

// GormBackend is the pluggable durable Backend, backed by gorm.io/gorm
// with the sqlite driver (gorm.io/driver/sqlite, which wraps
// github.com/mattn/go-sqlite3).
type GormBackend struct {
	db *gorm.DB
}

// OpenGormBackend opens (and migrates) a sqlite-backed checkpoint store at
// dsn, e.g. "file:checkpoints.db?cache=shared" or ":memory:".
func OpenGormBackend(dsn string) (*GormBackend, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&checkpointRow{}); err != nil {
		return nil, err
	}
	return &GormBackend{db: db}, nil
}

func (b *GormBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var row checkpointRow
	err := b.db.WithContext(ctx).First(&row, "\"key\" = ?", key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if row.ExpiresAt != nil && time.Now().After(*row.ExpiresAt) {
		return nil, ErrNotFound
	}
	return row.Value, nil
}

func (b *GormBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	row := checkpointRow{Key: key, Value: value}
	if ttl > 0 {
		exp := time.Now().Add(ttl)
		row.ExpiresAt = &exp
	}
	return b.db.WithContext(ctx).Save(&row).Error
}

func (b *GormBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Delete(&checkpointRow{}, "\"key\" = ?", key).Error
}

func (b *GormBackend) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var rows []checkpointRow
	if err := b.db.WithContext(ctx).Select("key").Where("\"key\" LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Key)
	}
	return out, nil
}

func (b *GormBackend) CompareAndSwap(ctx context.Context, key string, old, new []byte, ttl time.Duration) (bool, error) {
	var swapped bool
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row checkpointRow
		err := tx.First(&row, "\"key\" = ?", key).Error
		exists := err == nil
		if err != nil && err != gorm.ErrRecordNotFound {
			return err
		}
		matches := (!exists && old == nil) || (exists && string(row.Value) == string(old))
		if !matches {
			return nil
		}
		newRow := checkpointRow{Key: key, Value: new}
		if ttl > 0 {
			exp := time.Now().Add(ttl)
			newRow.ExpiresAt = &exp
		}
		if err := tx.Save(&newRow).Error; err != nil {
			return err
		}
		swapped = true
		return nil
	})
	return swapped, err
}
