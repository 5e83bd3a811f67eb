package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/soft_delete"

	"github.com/gosuda/vbjson/jsonv"
)

type snapshotRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"index:idx_snapshot_name"`
	Digest    string
	Body      string
	CreatedAt int64 `gorm:"autoCreateTime:milli"`
	/* 0 false 1 true */
	Deleted soft_delete.DeletedAt `gorm:"softDelete:flag;default:0"`
}

func (snapshotRow) TableName() string {
	return "snapshots"
}

func (r snapshotRow) snapshot() Snapshot {
	return Snapshot{
		ID:        r.ID,
		Name:      r.Name,
		Digest:    r.Digest,
		Size:      len(r.Body),
		CreatedAt: time.UnixMilli(r.CreatedAt),
	}
}

// SQLStore keeps every distinct version of a document in SQLite.
type SQLStore struct {
	db *gorm.DB
}

func OpenSQL(path string) (*SQLStore, error) {
	if path == "" {
		path = "vbjson.db"
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == ":memory:" {
		// every connection would otherwise see its own empty database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}
	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) latest(ctx context.Context, name string) (*snapshotRow, error) {
	var rows []snapshotRow
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Order("id desc").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *SQLStore) Load(ctx context.Context, name string) (*jsonv.Value, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	row, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	v, err := jsonv.Parse(row.Body)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %d: %w", row.ID, err)
	}
	return v, nil
}

// Save inserts a new version unless it matches the latest one.
func (s *SQLStore) Save(ctx context.Context, name string, value *jsonv.Value) error {
	if err := checkName(name); err != nil {
		return err
	}
	digest := Digest(value)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []snapshotRow
		if err := tx.Where("name = ?", name).Order("id desc").Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) > 0 && rows[0].Digest == digest {
			return nil
		}
		row := snapshotRow{Name: name, Digest: digest, Body: value.String()}
		return tx.Create(&row).Error
	})
}

func (s *SQLStore) History(ctx context.Context, name string) ([]Snapshot, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	var rows []snapshotRow
	if err := s.db.WithContext(ctx).Where("name = ?", name).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.snapshot())
	}
	return out, nil
}

// Prune soft-deletes all but the newest keep versions of name and reports
// how many were removed.
func (s *SQLStore) Prune(ctx context.Context, name string, keep int) (int64, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}
	var ids []int64
	err := s.db.WithContext(ctx).Model(&snapshotRow{}).
		Where("name = ?", name).
		Order("id desc").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) <= keep {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("id IN ?", ids[keep:]).Delete(&snapshotRow{})
	return res.RowsAffected, res.Error
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
