package affiliate

import (
	"context"

	"go.uber.org/zap"

	"github.com/dealpicks/affiliate-engine/internal/metrics"
	"github.com/dealpicks/affiliate-engine/internal/models"
	"github.com/dealpicks/affiliate-engine/internal/storage"
)

// BulkService tags untagged product records in batches. Selection
// excludes rows already marked applied, so repeated runs converge
// instead of reprocessing.
type BulkService struct {
	tagger   *Tagger
	syncer   *Syncer
	products storage.ProductRepo
	tables   []string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewBulkService(tagger *Tagger, syncer *Syncer, products storage.ProductRepo, tables []string, m *metrics.Metrics, logger *zap.Logger) *BulkService {
	return &BulkService{
		tagger:   tagger,
		syncer:   syncer,
		products: products,
		tables:   tables,
		metrics:  m,
		logger:   logger,
	}
}

// Tables returns the configured product tables.
func (s *BulkService) Tables() []string {
	out := make([]string, len(s.tables))
	copy(out, s.tables)
	return out
}

// ProcessTable tags up to limit untagged records in one table. Records
// whose tagging fails (not configured, bad id) are counted as failed
// and left untagged for a later run; a persist failure likewise marks
// the record failed rather than aborting the batch, so bulk runs
// always report partial progress.
func (s *BulkService) ProcessTable(ctx context.Context, table string, limit int) (*models.BulkResult, error) {
	links, err := s.products.ListUntagged(ctx, table, limit)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulk processing table",
		zap.String("table", table),
		zap.Int("candidates", len(links)),
		zap.Int("limit", limit),
	)

	res := &models.BulkResult{Table: table, Results: make([]*models.TaggingResult, 0, len(links))}
	for _, link := range links {
		tagged := s.tagger.BuildAffiliateURL(link.SourceURL, "")
		if tagged.Success {
			if err := s.syncer.Apply(ctx, table, link.ID, tagged); err != nil {
				s.logger.Error("failed to persist tagging result",
					zap.String("table", table),
					zap.Int64("product_id", link.ID),
					zap.Error(err),
				)
				tagged.Success = false
				tagged.Error = "persist failed: " + err.Error()
			}
		}

		res.Results = append(res.Results, tagged)
		res.Processed++
		if tagged.Success {
			res.Successful++
		} else {
			res.Failed++
		}
	}

	s.metrics.RecordBulk(table, res.Successful, res.Failed)
	s.logger.Info("bulk processing finished",
		zap.String("table", table),
		zap.Int("processed", res.Processed),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// ProcessAllTables runs ProcessTable over every configured table and
// aggregates a per-table breakdown plus a grand total.
func (s *BulkService) ProcessAllTables(ctx context.Context, limit int) (*models.BulkSummary, error) {
	summary := &models.BulkSummary{Tables: make(map[string]*models.BulkResult, len(s.tables))}
	for _, table := range s.tables {
		res, err := s.ProcessTable(ctx, table, limit)
		if err != nil {
			return nil, err
		}
		summary.Tables[table] = res
		summary.TotalProcessed += res.Processed
		summary.TotalSuccessful += res.Successful
		summary.TotalFailed += res.Failed
	}
	if summary.TotalProcessed > 0 {
		summary.SuccessRate = summary.TotalSuccessful * 100 / summary.TotalProcessed
	}
	return summary, nil
}
