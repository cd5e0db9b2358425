package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"node.town/parley/etc"
	"node.town/parley/pipeline"
	"node.town/parley/transcript"
)

//go:embed db_init.sql
var sqlFS embed.FS

// Translation is one archived row.
type Translation struct {
	ID         string
	Recognized string
	Translated string
	Target     string
	SourceKind string
	CreatedAt  time.Time
}

// NewTranslation builds the row stored for a completed pair.
func NewTranslation(pair transcript.Pair, origin pipeline.Origin) Translation {
	created := pair.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return Translation{
		ID:         etc.NewFreshID(),
		Recognized: pair.Recognized,
		Translated: pair.Translated,
		Target:     pair.Target,
		SourceKind: string(origin),
		CreatedAt:  created,
	}
}

// Archive appends completed translations to Postgres. It is write-only from
// the pipeline's point of view; the session history never reads it back.
type Archive struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// Open connects to url and applies the embedded schema.
func Open(ctx context.Context, url string, logger *log.Logger) (*Archive, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	sqlFile, err := sqlFS.ReadFile("db_init.sql")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to read embedded db_init.sql: %w", err)
	}

	if _, err := pool.Exec(ctx, string(sqlFile)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to execute embedded db_init.sql: %w", err)
	}

	logger.Info("archive ready")
	return &Archive{pool: pool, logger: logger}, nil
}

func (a *Archive) Save(
	ctx context.Context,
	pair transcript.Pair,
	origin pipeline.Origin,
) error {
	row := NewTranslation(pair, origin)

	_, err := a.pool.Exec(ctx, `
		INSERT INTO translations
			(id, recognized, translated, target, source_kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, row.ID, row.Recognized, row.Translated, row.Target, row.SourceKind, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert translation: %w", err)
	}

	a.logger.Debug("archived", "id", row.ID, "target", row.Target)
	return nil
}

// Recent returns the newest n rows, newest first.
func (a *Archive) Recent(ctx context.Context, n int) ([]Translation, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, recognized, translated, target, source_kind, created_at
		FROM translations
		ORDER BY created_at DESC
		LIMIT $1
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Translation, error) {
		var t Translation
		err := row.Scan(&t.ID, &t.Recognized, &t.Translated, &t.Target, &t.SourceKind, &t.CreatedAt)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan translations: %w", err)
	}
	return out, nil
}

func (a *Archive) Close() {
	a.pool.Close()
}
