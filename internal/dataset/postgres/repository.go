// Package postgres provides Postgres-backed dataset persistence for
// deployments that import the CSV once instead of holding it in memory.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/cancerdash/internal/domain"
)

// ErrNoDataset is returned when no dataset version has been imported yet.
var ErrNoDataset = errors.New("no dataset version imported")

// Repository serves the most recently imported dataset version.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) currentVersion(ctx context.Context) (string, error) {
	const query = `SELECT version_id FROM dataset_versions ORDER BY loaded_at DESC LIMIT 1`

	var id string
	if err := r.pool.QueryRow(ctx, query).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNoDataset
		}
		return "", err
	}
	return id, nil
}

// Dimensions implements domain.Repository, preserving the source file's
// first-appearance ordering via the stored row numbers.
func (r *Repository) Dimensions(ctx context.Context) (domain.Dimensions, error) {
	version, err := r.currentVersion(ctx)
	if err != nil {
		return domain.Dimensions{}, err
	}

	dims := domain.Dimensions{}
	columns := []struct {
		name string
		dest *[]string
	}{
		{"geo", &dims.Geos},
		{"cancer_type", &dims.CancerTypes},
		{"sex", &dims.Sexes},
	}
	for _, col := range columns {
		query := fmt.Sprintf(
			`SELECT %s FROM observations WHERE version_id=$1 GROUP BY %s ORDER BY MIN(row_num)`,
			col.name, col.name)
		rows, err := r.pool.Query(ctx, query, version)
		if err != nil {
			return domain.Dimensions{}, err
		}
		for rows.Next() {
			var value string
			if err := rows.Scan(&value); err != nil {
				rows.Close()
				return domain.Dimensions{}, err
			}
			*col.dest = append(*col.dest, value)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return domain.Dimensions{}, err
		}
	}
	return dims, nil
}

// Observations implements domain.Repository.
func (r *Repository) Observations(ctx context.Context, f domain.Filter) ([]domain.Observation, error) {
	version, err := r.currentVersion(ctx)
	if err != nil {
		return nil, err
	}

	const query = `SELECT ref_date, geo, cancer_type, sex, characteristic, value, suppressed
        FROM observations
        WHERE version_id=$1
          AND ($2='' OR characteristic=$2)
          AND ($3='' OR geo=$3)
          AND ($4='' OR cancer_type=$4)
          AND (cardinality($5::text[])=0 OR sex = ANY($5::text[]))
        ORDER BY ref_date, row_num`

	sexes := f.Sexes
	if sexes == nil {
		// A nil slice would reach Postgres as a NULL array and void the predicate.
		sexes = []string{}
	}

	rows, err := r.pool.Query(ctx, query, version, f.Measure.Characteristic(), f.Geo, f.CancerType, sexes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var o domain.Observation
		var value *float64
		if err := rows.Scan(&o.RefDate, &o.Geo, &o.CancerType, &o.Sex, &o.Characteristic, &value, &o.Suppressed); err != nil {
			return nil, err
		}
		if value != nil {
			o.Value = *value
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Info implements domain.Repository.
func (r *Repository) Info(ctx context.Context) (domain.DatasetInfo, error) {
	const query = `SELECT source, row_count, loaded_at FROM dataset_versions ORDER BY loaded_at DESC LIMIT 1`

	var info domain.DatasetInfo
	if err := r.pool.QueryRow(ctx, query).Scan(&info.Source, &info.Rows, &info.LoadedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DatasetInfo{}, ErrNoDataset
		}
		return domain.DatasetInfo{}, err
	}
	return info, nil
}

// Import records a new dataset version and bulk-copies its observations
// inside a single transaction. It returns the new version id.
func (r *Repository) Import(ctx context.Context, source string, obs []domain.Observation) (string, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	versionID := uuid.NewString()
	loadedAt := time.Now().UTC()

	const insertVersion = `INSERT INTO dataset_versions (version_id, source, row_count, loaded_at)
        VALUES ($1,$2,$3,$4)`
	if _, err = tx.Exec(ctx, insertVersion, versionID, source, len(obs), loadedAt); err != nil {
		return "", err
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"observations"},
		[]string{"version_id", "row_num", "ref_date", "geo", "cancer_type", "sex", "characteristic", "value", "suppressed"},
		pgx.CopyFromSlice(len(obs), func(i int) ([]interface{}, error) {
			o := obs[i]
			var value *float64
			if !o.Suppressed {
				value = &o.Value
			}
			return []interface{}{versionID, i, o.RefDate, o.Geo, o.CancerType, o.Sex, o.Characteristic, value, o.Suppressed}, nil
		}),
	)
	if err != nil {
		return "", err
	}

	if err = tx.Commit(ctx); err != nil {
		return "", err
	}
	return versionID, nil
}
