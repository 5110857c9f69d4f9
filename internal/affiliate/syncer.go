package affiliate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// Syncer writes successful tagging results back onto product records.
// The write is one combined update; a URL updated without the applied
// flag (or vice versa) would corrupt the tagged invariant.
type Syncer struct {
	products storage.ProductRepo
	logger   *zap.Logger
	now      func() time.Time
}

func NewSyncer(products storage.ProductRepo, logger *zap.Logger) *Syncer {
	return &Syncer{
		products: products,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply persists a successful tagging result onto one product row.
// Calling it with an unsuccessful result is a programming error and is
// rejected.
func (s *Syncer) Apply(ctx context.Context, table string, productID int64, result *models.TaggingResult) error {
	if result == nil || !result.Success {
		return fmt.Errorf("refusing to persist unsuccessful tagging result for %s/%d", table, productID)
	}

	snap := &models.AppliedSnapshot{
		NetworkID:   result.NetworkID,
		NetworkName: result.NetworkName,
		ProcessedAt: s.now().Unix(),
	}

	if err := s.products.ApplyTagging(ctx, table, productID, result, snap); err != nil {
		return err
	}

	s.logger.Info("product affiliate url updated",
		zap.String("table", table),
		zap.Int64("product_id", productID),
		zap.String("network", result.NetworkID),
	)
	return nil
}
