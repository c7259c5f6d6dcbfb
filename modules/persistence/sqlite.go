package persistence

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/todo-service/domain/todo"
)

// todoRecord is the todos table row. Timestamps are stored as Unix
// milliseconds so the list order is a plain integer sort.
type todoRecord struct {
	ID          string `gorm:"primarykey;size:24"`
	Title       string `gorm:"size:500;not null"`
	Description string `gorm:"size:2000;not null;default:''"`
	Completed   bool   `gorm:"not null;default:false"`
	CreatedAt   int64  `gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt   int64  `gorm:"not null;autoUpdateTime:false"`
}

// TableName returns the table name for todoRecord.
func (todoRecord) TableName() string {
	return "todos"
}

func (r *todoRecord) toEntity() *todo.Todo {
	return &todo.Todo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// SQLiteStore stores todos in SQLite through GORM.
type SQLiteStore struct {
	db    *gorm.DB
	clock Clock
}

// NewSQLiteStore wraps an open database. Call Migrate before first use.
func NewSQLiteStore(db *gorm.DB, clock Clock) *SQLiteStore {
	return &SQLiteStore{db: db, clock: clock}
}

// OpenSQLite opens the database at path with GORM logging silenced.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps ":memory:"
	// databases from splitting across pool connections.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate creates or updates the todos table.
func (s *SQLiteStore) Migrate() error {
	if err := s.db.AutoMigrate(&todoRecord{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	now := s.clock.now().UnixMilli()
	rec := todoRecord{
		ID:          newID(),
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return nil, classifySQLiteError("insert todo", err)
	}
	return rec.toEntity(), nil
}

func (s *SQLiteStore) FindAll(ctx context.Context, order todo.SortOrder) ([]*todo.Todo, error) {
	clause := "created_at DESC, id DESC"
	if order == todo.OldestFirst {
		clause = "created_at ASC, id ASC"
	}

	var recs []todoRecord
	if err := s.db.WithContext(ctx).Order(clause).Find(&recs).Error; err != nil {
		return nil, classifySQLiteError("list todos", err)
	}

	todos := make([]*todo.Todo, 0, len(recs))
	for i := range recs {
		todos = append(todos, recs[i].toEntity())
	}
	return todos, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*todo.Todo, error) {
	var rec todoRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, classifySQLiteError("find todo", err)
	}
	return rec.toEntity(), nil
}

func (s *SQLiteStore) UpdateByID(ctx context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	now := s.clock.now().UnixMilli()
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Completed != nil {
		updates["completed"] = *patch.Completed
	}

	var rec todoRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current todoRecord
		if err := tx.First(&current, "id = ?", id).Error; err != nil {
			return err
		}
		updates["updated_at"] = max(now, current.UpdatedAt+1)

		if err := tx.Model(&todoRecord{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&rec, "id = ?", id).Error
	})
	if err != nil {
		return nil, classifySQLiteError("update todo", err)
	}
	return rec.toEntity(), nil
}

func (s *SQLiteStore) DeleteByID(ctx context.Context, id string) (*todo.Todo, error) {
	var rec todoRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&todoRecord{}, "id = ?", id).Error
	})
	if err != nil {
		return nil, classifySQLiteError("delete todo", err)
	}
	return rec.toEntity(), nil
}

// Ping checks that the underlying connection is usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func classifySQLiteError(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return todo.NewStoreError(todo.FailureNotFound, op, err)
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone):
		return todo.NewStoreError(todo.FailureConnectionLost, op, err)
	case errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidField):
		return todo.NewStoreError(todo.FailureValidation, op, err)
	default:
		return todo.NewStoreError(todo.FailureOther, op, err)
	}
}
