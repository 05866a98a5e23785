package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/bitechdev/ResourceSpec/pkg/logger"
)

// BunAdapter implements Adapter on a Bun database handle. Records are
// read and written as maps so resources need no Go struct per model.
type BunAdapter struct {
	db *bun.DB

	mu     sync.RWMutex
	custom map[string]CustomOperation
}

// NewBunAdapter wraps an existing Bun handle.
func NewBunAdapter(db *bun.DB) *BunAdapter {
	return &BunAdapter{db: db, custom: make(map[string]CustomOperation)}
}

// NewPostgresDB opens a Postgres connection through pgx and wraps it
// in a Bun handle.
func NewPostgresDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// NewSQLiteDB opens a SQLite database and wraps it in a Bun handle.
func NewSQLiteDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// DB returns the underlying Bun handle.
func (b *BunAdapter) DB() *bun.DB {
	return b.db
}

// EnableQueryDebug logs every SQL statement Bun executes.
func (b *BunAdapter) EnableQueryDebug() {
	b.db.AddQueryHook(&queryDebugHook{})
	logger.Info("Bun query debug mode enabled")
}

func (b *BunAdapter) Create(ctx context.Context, params CreateParams) (Record, error) {
	record := cloneRecord(params.Data)
	if record["id"] == nil {
		record["id"] = uuid.NewString()
	}

	_, err := b.db.NewInsert().
		Model(&record).
		Table(params.Model).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *BunAdapter) FindFirst(ctx context.Context, params FindParams) (Record, error) {
	var record Record
	q := b.db.NewSelect().Model(&record).Table(params.Model)
	applyBunSelect(q, params)
	q.Limit(1)

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (b *BunAdapter) FindMany(ctx context.Context, params FindParams) ([]Record, error) {
	var records []Record
	q := b.db.NewSelect().Model(&records).Table(params.Model)
	applyBunSelect(q, params)
	if params.Limit > 0 {
		q.Limit(params.Limit)
	}
	if params.Offset > 0 {
		q.Offset(params.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (b *BunAdapter) Update(ctx context.Context, params UpdateParams) (Record, error) {
	data := cloneRecord(params.Data)
	q := b.db.NewUpdate().Model(&data).Table(params.Model)
	if where, args := compileExpression(params.Where); where != "" {
		q.Where(where, args...)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, fmt.Errorf("no record matched update on model %s", params.Model)
	}

	return b.FindFirst(ctx, FindParams{Model: params.Model, Where: params.Where})
}

func (b *BunAdapter) Delete(ctx context.Context, params DeleteParams) error {
	q := b.db.NewDelete().Table(params.Model)
	if where, args := compileExpression(params.Where); where != "" {
		q.Where(where, args...)
	}
	_, err := q.Exec(ctx)
	return err
}

func (b *BunAdapter) Count(ctx context.Context, params CountParams) (int64, error) {
	q := b.db.NewSelect().Table(params.Model)
	if where, args := compileExpression(params.Where); where != "" {
		q.Where(where, args...)
	}
	count, err := q.Count(ctx)
	return int64(count), err
}

// RegisterCustomOperation adds a named operation beyond CRUD.
func (b *BunAdapter) RegisterCustomOperation(name string, fn CustomOperation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.custom[name] = fn
}

func (b *BunAdapter) ExecuteCustomOperation(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	b.mu.RLock()
	fn, ok := b.custom[name]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrCustomOperationNotFound
	}
	return fn(ctx, params)
}

func applyBunSelect(q *bun.SelectQuery, params FindParams) {
	for _, col := range params.Select {
		q.Column(col)
	}
	if where, args := compileExpression(params.Where); where != "" {
		q.Where(where, args...)
	}
	if order := compileOrderBy(params.OrderBy); order != "" {
		q.OrderExpr(order)
	}
	for _, rel := range params.Include {
		q.Relation(rel)
	}
}

type queryDebugHook struct{}

func (h *queryDebugHook) BeforeQuery(ctx context.Context, event *bun.QueryEvent) context.Context {
	return ctx
}

func (h *queryDebugHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		logger.Error("SQL query failed: %s. Error: %v", event.Query, event.Err)
	} else {
		logger.Debug("SQL query: %s", event.Query)
	}
}

var _ Adapter = (*BunAdapter)(nil)
var _ CustomOperator = (*BunAdapter)(nil)
