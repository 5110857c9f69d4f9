package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// PostgresAnalyticsRepo implements AnalyticsRepo using PostgreSQL.
// Counter rows are keyed by (product_id, product_table, network_id)
// and only ever inserted or incremented.
type PostgresAnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAnalyticsRepo(pool *pgxpool.Pool) *PostgresAnalyticsRepo {
	return &PostgresAnalyticsRepo{pool: pool}
}

func (r *PostgresAnalyticsRepo) TrackClick(ctx context.Context, key models.AnalyticsKey, affiliateURL string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO affiliate_analytics
			(product_id, product_table, network_id, affiliate_url, clicks, last_clicked_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5, $5)
		ON CONFLICT (product_id, product_table, network_id) DO UPDATE SET
			clicks = affiliate_analytics.clicks + 1,
			affiliate_url = EXCLUDED.affiliate_url,
			last_clicked_at = EXCLUDED.last_clicked_at,
			updated_at = EXCLUDED.updated_at
	`, key.ProductID, key.ProductTable, key.NetworkID, affiliateURL, at)
	if err != nil {
		return fmt.Errorf("failed to track click: %w", err)
	}
	return nil
}

func (r *PostgresAnalyticsRepo) TrackConversion(ctx context.Context, key models.AnalyticsKey, revenue float64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO affiliate_analytics
			(product_id, product_table, network_id, affiliate_url, conversions, revenue, created_at, updated_at)
		VALUES ($1, $2, $3, '', 1, $4, $5, $5)
		ON CONFLICT (product_id, product_table, network_id) DO UPDATE SET
			conversions = affiliate_analytics.conversions + 1,
			revenue = affiliate_analytics.revenue + EXCLUDED.revenue,
			updated_at = EXCLUDED.updated_at
	`, key.ProductID, key.ProductTable, key.NetworkID, revenue, at)
	if err != nil {
		return fmt.Errorf("failed to track conversion: %w", err)
	}
	return nil
}

func (r *PostgresAnalyticsRepo) Rollup(ctx context.Context, since time.Time, networkID string) ([]*models.NetworkRollup, error) {
	query := `
		SELECT network_id,
		       COUNT(*) AS total_products,
		       COALESCE(SUM(clicks), 0) AS total_clicks,
		       COALESCE(SUM(conversions), 0) AS total_conversions,
		       COALESCE(SUM(revenue), 0) AS total_revenue,
		       COALESCE(AVG(clicks), 0) AS avg_clicks
		FROM affiliate_analytics
		WHERE GREATEST(created_at, COALESCE(last_clicked_at, created_at)) > $1
	`
	args := []any{since}
	if networkID != "" {
		query += ` AND network_id = $2`
		args = append(args, networkID)
	}
	query += ` GROUP BY network_id ORDER BY total_revenue DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics rollup: %w", err)
	}
	defer rows.Close()

	var rollups []*models.NetworkRollup
	for rows.Next() {
		var ru models.NetworkRollup
		if err := rows.Scan(&ru.NetworkID, &ru.TotalProducts, &ru.TotalClicks,
			&ru.TotalConversions, &ru.TotalRevenue, &ru.AvgClicksPerProduct); err != nil {
			return nil, err
		}
		rollups = append(rollups, &ru)
	}
	return rollups, rows.Err()
}
