package adapter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bitechdev/ResourceSpec/pkg/logger"
)

// GormAdapter implements Adapter on a GORM handle, using table-scoped
// map operations so no Go struct per model is required.
type GormAdapter struct {
	db *gorm.DB

	mu     sync.RWMutex
	custom map[string]CustomOperation
}

// NewGormAdapter wraps an existing GORM handle.
func NewGormAdapter(db *gorm.DB) *GormAdapter {
	return &GormAdapter{db: db, custom: make(map[string]CustomOperation)}
}

// NewGormPostgresDB opens a Postgres-backed GORM handle.
func NewGormPostgresDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return db, nil
}

// NewGormSQLiteDB opens a SQLite-backed GORM handle.
func NewGormSQLiteDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// DB returns the underlying GORM handle.
func (g *GormAdapter) DB() *gorm.DB {
	return g.db
}

// EnableQueryDebug logs every SQL statement GORM executes.
func (g *GormAdapter) EnableQueryDebug() *GormAdapter {
	g.db = g.db.Debug()
	logger.Info("GORM query debug mode enabled")
	return g
}

func (g *GormAdapter) Create(ctx context.Context, params CreateParams) (Record, error) {
	record := cloneRecord(params.Data)
	if record["id"] == nil {
		record["id"] = uuid.NewString()
	}

	tx := g.db.WithContext(ctx).Table(params.Model).Create(map[string]interface{}(record))
	if tx.Error != nil {
		return nil, tx.Error
	}
	return record, nil
}

func (g *GormAdapter) FindFirst(ctx context.Context, params FindParams) (Record, error) {
	var record map[string]interface{}
	tx := g.applyFind(ctx, params).Take(&record)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	return Record(record), nil
}

func (g *GormAdapter) FindMany(ctx context.Context, params FindParams) ([]Record, error) {
	tx := g.applyFind(ctx, params)
	if params.Limit > 0 {
		tx = tx.Limit(params.Limit)
	}
	if params.Offset > 0 {
		tx = tx.Offset(params.Offset)
	}

	var rows []map[string]interface{}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

func (g *GormAdapter) Update(ctx context.Context, params UpdateParams) (Record, error) {
	tx := g.db.WithContext(ctx).Table(params.Model)
	if where, args := compileExpression(params.Where); where != "" {
		tx = tx.Where(where, args...)
	}

	tx = tx.Updates(map[string]interface{}(params.Data))
	if tx.Error != nil {
		return nil, tx.Error
	}
	if tx.RowsAffected == 0 {
		return nil, fmt.Errorf("no record matched update on model %s", params.Model)
	}

	return g.FindFirst(ctx, FindParams{Model: params.Model, Where: params.Where})
}

func (g *GormAdapter) Delete(ctx context.Context, params DeleteParams) error {
	where, args := compileExpression(params.Where)
	sql := "DELETE FROM " + quoteColumn(params.Model)
	if where != "" {
		sql += " WHERE " + where
	}
	return g.db.WithContext(ctx).Exec(sql, args...).Error
}

func (g *GormAdapter) Count(ctx context.Context, params CountParams) (int64, error) {
	tx := g.db.WithContext(ctx).Table(params.Model)
	if where, args := compileExpression(params.Where); where != "" {
		tx = tx.Where(where, args...)
	}

	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// RegisterCustomOperation adds a named operation beyond CRUD.
func (g *GormAdapter) RegisterCustomOperation(name string, fn CustomOperation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.custom[name] = fn
}

func (g *GormAdapter) ExecuteCustomOperation(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	g.mu.RLock()
	fn, ok := g.custom[name]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrCustomOperationNotFound
	}
	return fn(ctx, params)
}

func (g *GormAdapter) applyFind(ctx context.Context, params FindParams) *gorm.DB {
	tx := g.db.WithContext(ctx).Table(params.Model)
	if len(params.Select) > 0 {
		cols := make([]string, len(params.Select))
		for i, col := range params.Select {
			cols[i] = quoteColumn(col)
		}
		tx = tx.Select(cols)
	}
	if where, args := compileExpression(params.Where); where != "" {
		tx = tx.Where(where, args...)
	}
	if order := compileOrderBy(params.OrderBy); order != "" {
		tx = tx.Order(order)
	}
	for _, rel := range params.Include {
		tx = tx.Preload(rel)
	}
	return tx
}

var _ Adapter = (*GormAdapter)(nil)
var _ CustomOperator = (*GormAdapter)(nil)
