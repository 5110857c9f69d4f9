package storage

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/dealpicks/affiliate-engine/internal/models"
)

// ClickHouseEventLog implements EventLog on a ClickHouse connection.
// Events are append-only; retention is handled by table TTLs on the
// ClickHouse side.
type ClickHouseEventLog struct {
	conn driver.Conn
}

func NewClickHouseEventLog(conn driver.Conn) *ClickHouseEventLog {
	return &ClickHouseEventLog{conn: conn}
}

func (l *ClickHouseEventLog) AppendClick(ctx context.Context, ev *models.ClickEvent) error {
	err := l.conn.Exec(ctx, `
		INSERT INTO affiliate_click_events
			(id, timestamp, product_id, product_table, network_id, affiliate_url,
			 ip, user_agent, geo_country, geo_region, geo_city)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Timestamp, ev.ProductID, ev.ProductTable, ev.NetworkID, ev.AffiliateURL,
		ev.IP, ev.UserAgent, ev.GeoCountry, ev.GeoRegion, ev.GeoCity)
	if err != nil {
		return fmt.Errorf("failed to append click event: %w", err)
	}
	return nil
}

func (l *ClickHouseEventLog) AppendConversion(ctx context.Context, ev *models.ConversionEvent) error {
	err := l.conn.Exec(ctx, `
		INSERT INTO affiliate_conversion_events
			(id, timestamp, product_id, product_table, network_id, revenue, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Timestamp, ev.ProductID, ev.ProductTable, ev.NetworkID, ev.Revenue, ev.Currency)
	if err != nil {
		return fmt.Errorf("failed to append conversion event: %w", err)
	}
	return nil
}
