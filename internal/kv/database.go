package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the row shape of the keyed record space.
type Entry struct {
	Key       string    `gorm:"primaryKey;size:512;column:key"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName keeps the table name stable regardless of struct renames.
func (Entry) TableName() string { return "kv_entries" }

// Database is a Store backed by a gorm-managed table, shared by every
// process pointed at the same DSN.
type Database struct {
	db *gorm.DB
}

// NewDatabase wraps an initialized gorm connection. The entries table
// must already be migrated (see db.Init).
func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var e Entry
	err := d.db.WithContext(ctx).First(&e, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return e.Value, true, nil
}

func (d *Database) Set(ctx context.Context, key string, value []byte) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (d *Database) Delete(ctx context.Context, key string) error {
	if err := d.db.WithContext(ctx).Delete(&Entry{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (d *Database) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	var entries []Entry
	if err := d.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("kv list %q: %w", prefix, err)
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}
