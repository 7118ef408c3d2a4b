package admin

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads catalog information.
type Repository interface {
	Tables(ctx context.Context) ([]TableStat, error)
	Columns(ctx context.Context, table string) ([]Column, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a Postgres backed catalog reader.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Tables(ctx context.Context) ([]TableStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT relname, n_live_tup,
		       pg_total_relation_size(relid),
		       pg_size_pretty(pg_total_relation_size(relid))
		FROM pg_stat_user_tables
		WHERE schemaname = current_schema()
		ORDER BY relname`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TableStat
	for rows.Next() {
		var t TableStat
		if err := rows.Scan(&t.Name, &t.EstimatedRows, &t.TotalBytes, &t.TotalSize); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *pgRepository) Columns(ctx context.Context, table string) ([]Column, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', column_default, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.Nullable, &c.Default, &c.Position); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
