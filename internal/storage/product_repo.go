package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// PostgresProductRepo implements ProductRepo using PostgreSQL. Product
// tables share the four affiliate columns plus the common catalog
// columns; the table name is interpolated, so every entry point checks
// the allow-list first.
type PostgresProductRepo struct {
	pool    *pgxpool.Pool
	allowed map[string]bool
}

func NewPostgresProductRepo(pool *pgxpool.Pool, tables []string) *PostgresProductRepo {
	allowed := make(map[string]bool, len(tables))
	for _, t := range tables {
		allowed[t] = true
	}
	return &PostgresProductRepo{pool: pool, allowed: allowed}
}

func (r *PostgresProductRepo) check(table string) error {
	if !r.allowed[table] {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

func (r *PostgresProductRepo) ListUntagged(ctx context.Context, table string, limit int) ([]*models.ProductLink, error) {
	if err := r.check(table); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, affiliate_url
		FROM %s
		WHERE (affiliate_tag_applied IS NULL OR affiliate_tag_applied = FALSE)
		  AND affiliate_url IS NOT NULL AND affiliate_url <> ''
		ORDER BY id
		LIMIT $1
	`, table), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list untagged products: %w", err)
	}
	defer rows.Close()

	var links []*models.ProductLink
	for rows.Next() {
		var l models.ProductLink
		if err := rows.Scan(&l.ID, &l.SourceURL); err != nil {
			return nil, err
		}
		links = append(links, &l)
	}
	return links, rows.Err()
}

func (r *PostgresProductRepo) ApplyTagging(ctx context.Context, table string, productID int64, result *models.TaggingResult, snap *models.AppliedSnapshot) error {
	if err := r.check(table); err != nil {
		return err
	}

	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal affiliate snapshot: %w", err)
	}

	// One statement carries the URL, the network, the flag and the
	// snapshot together; a partial write here would break the tagged
	// invariant.
	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET
			original_url = $1,
			affiliate_url = $2,
			affiliate_network = $3,
			affiliate_tag_applied = TRUE,
			affiliate_config = $4
		WHERE id = $5
	`, table), result.OriginalURL, result.AffiliateURL, result.NetworkID, snapJSON, productID)
	if err != nil {
		return fmt.Errorf("failed to apply tagging to %s/%d: %w", table, productID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d not found in %s", productID, table)
	}
	return nil
}

func (r *PostgresProductRepo) ListWithAffiliate(ctx context.Context, table string, limit, offset int) ([]*models.Product, error) {
	if err := r.check(table); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, COALESCE(name, ''), COALESCE(price, 0), COALESCE(currency, ''),
		       COALESCE(image_url, ''), COALESCE(category, ''),
		       COALESCE(original_url, ''), COALESCE(affiliate_url, ''),
		       COALESCE(affiliate_network, ''), COALESCE(affiliate_tag_applied, FALSE)
		FROM %s
		WHERE affiliate_url IS NOT NULL AND affiliate_url <> ''
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`, table), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Currency, &p.ImageURL, &p.Category,
			&p.OriginalURL, &p.AffiliateURL, &p.AffiliateNetwork, &p.TagApplied); err != nil {
			return nil, err
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

func (r *PostgresProductRepo) CountAll(ctx context.Context, table string) (int, error) {
	if err := r.check(table); err != nil {
		return 0, err
	}
	var n int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *PostgresProductRepo) CountTagged(ctx context.Context, table string) (int, error) {
	if err := r.check(table); err != nil {
		return 0, err
	}
	var n int
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE affiliate_tag_applied = TRUE
	`, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tagged products: %w", err)
	}
	return n, nil
}

func (r *PostgresProductRepo) NetworkBreakdown(ctx context.Context, table string) (map[string]int, error) {
	if err := r.check(table); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT affiliate_network, COUNT(*)
		FROM %s
		WHERE affiliate_tag_applied = TRUE AND affiliate_network IS NOT NULL
		GROUP BY affiliate_network
	`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to get network breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := make(map[string]int)
	for rows.Next() {
		var network string
		var count int
		if err := rows.Scan(&network, &count); err != nil {
			return nil, err
		}
		breakdown[network] = count
	}
	return breakdown, rows.Err()
}
