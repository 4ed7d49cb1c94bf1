package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"escape-progress-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// StageLoader loads stage set JSONB from Postgres.
type StageLoader struct {
	pool *pgxpool.Pool
}

func NewStageLoader(pool *pgxpool.Pool) *StageLoader {
	return &StageLoader{pool: pool}
}

func (l *StageLoader) LoadStageSet(ctx context.Context, link string) (domain.StageSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM stage_sets WHERE link=$1`, link).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StageSet{}, domain.ErrStageSetNotFound
	}
	if err != nil {
		return domain.StageSet{}, fmt.Errorf("load stage set: %w", err)
	}
	var set domain.StageSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return domain.StageSet{}, fmt.Errorf("unmarshal stage set: %w", err)
	}
	if set.Link == "" {
		set.Link = link
	}
	return set, nil
}
