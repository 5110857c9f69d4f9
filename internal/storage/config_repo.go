package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// PostgresConfigRepo implements ConfigRepo using PostgreSQL.
type PostgresConfigRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresConfigRepo(pool *pgxpool.Pool) *PostgresConfigRepo {
	return &PostgresConfigRepo{pool: pool}
}

func (r *PostgresConfigRepo) LoadAll(ctx context.Context) ([]*models.AffiliateConfig, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT network_id, affiliate_id, COALESCE(sub_id, ''), enabled, updated_at
		FROM affiliate_configs ORDER BY network_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load affiliate configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.AffiliateConfig
	for rows.Next() {
		var c models.AffiliateConfig
		if err := rows.Scan(&c.NetworkID, &c.AffiliateID, &c.SubID, &c.Enabled, &c.UpdatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, &c)
	}
	return configs, rows.Err()
}

func (r *PostgresConfigRepo) Get(ctx context.Context, networkID string) (*models.AffiliateConfig, error) {
	var c models.AffiliateConfig
	err := r.pool.QueryRow(ctx, `
		SELECT network_id, affiliate_id, COALESCE(sub_id, ''), enabled, updated_at
		FROM affiliate_configs WHERE network_id = $1
	`, networkID).Scan(&c.NetworkID, &c.AffiliateID, &c.SubID, &c.Enabled, &c.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get affiliate config: %w", err)
	}
	return &c, nil
}

func (r *PostgresConfigRepo) Upsert(ctx context.Context, cfg *models.AffiliateConfig) error {
	cfg.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO affiliate_configs (network_id, affiliate_id, sub_id, enabled, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		ON CONFLICT (network_id) DO UPDATE SET
			affiliate_id = EXCLUDED.affiliate_id,
			sub_id = EXCLUDED.sub_id,
			enabled = EXCLUDED.enabled,
			updated_at = EXCLUDED.updated_at
	`, cfg.NetworkID, cfg.AffiliateID, cfg.SubID, cfg.Enabled, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert affiliate config: %w", err)
	}
	return nil
}
