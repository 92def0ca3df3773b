package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-quality/pkg/logging"
	"github.com/ekaya-inc/ekaya-quality/pkg/metrics"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
	"github.com/ekaya-inc/ekaya-quality/pkg/quality"
)

// AnalyzeRequest describes one analysis pass over a datasource.
type AnalyzeRequest struct {
	DatasourceType string          `json:"datasource_type" yaml:"datasource_type" validate:"required,max=64"`
	Config         map[string]any  `json:"config" yaml:"config"`
	Tables         []string        `json:"tables,omitempty" yaml:"tables,omitempty" validate:"max=1000,dive,required,max=256"`
	Options        *QualityOptions `json:"options,omitempty" yaml:"options,omitempty"`
}

// AnalysisResult is the outcome of one pass: a report per table, sorted by
// schema and table name, and the database-level overview.
type AnalysisResult struct {
	AnalysisID     uuid.UUID               `json:"analysis_id" yaml:"analysis_id"`
	DatasourceType string                  `json:"datasource_type" yaml:"datasource_type"`
	AnalyzedAt     time.Time               `json:"analyzed_at" yaml:"analyzed_at"`
	DurationMs     int64                   `json:"duration_ms" yaml:"duration_ms"`
	Overview       models.DatabaseOverview `json:"overview" yaml:"overview"`
	Tables         []*models.QualityReport `json:"tables" yaml:"tables"`
}

// QualityService runs quality analysis passes against datasources.
type QualityService interface {
	// AnalyzeDatasource validates the merged configuration, connects, and
	// analyzes every selected table. Per-table failures become N/A reports;
	// only failures before any table is analyzed are returned as errors.
	AnalyzeDatasource(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error)

	// ListAdapters returns the datasource types compiled into this binary.
	ListAdapters() []datasource.DatasourceAdapterInfo
}

type qualityService struct {
	adapterFactory datasource.DatasourceAdapterFactory
	baseConfig     quality.Config
	maxConcurrent  int
	collector      *quality.Collector
	metrics        *metrics.Recorder
	logger         *zap.Logger
	now            func() time.Time
}

// NewQualityService creates a quality service. maxConcurrent bounds how many
// tables are analyzed at once; it is further capped by the adapter pool size.
// recorder may be nil.
func NewQualityService(
	adapterFactory datasource.DatasourceAdapterFactory,
	baseConfig quality.Config,
	maxConcurrent int,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) QualityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &qualityService{
		adapterFactory: adapterFactory,
		baseConfig:     baseConfig,
		maxConcurrent:  maxConcurrent,
		collector:      quality.NewCollector(logger),
		metrics:        recorder,
		logger:         logger.Named("quality-service"),
		now:            time.Now,
	}
}

func (s *qualityService) ListAdapters() []datasource.DatasourceAdapterInfo {
	return s.adapterFactory.ListTypes()
}

func (s *qualityService) workers(tables int) int {
	n := s.maxConcurrent
	if n < 1 {
		n = DefaultWorkerPoolConfig().MaxConcurrent
	}
	if max := s.adapterFactory.MaxConnections(); max > 0 && n > max {
		n = max
	}
	if tables > 0 && n > tables {
		n = tables
	}
	return n
}

func (s *qualityService) AnalyzeDatasource(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	done := s.metrics.AnalysisStarted()
	defer done()

	start := time.Now()
	result, err := s.analyze(ctx, req)

	dsType, outcome := req.DatasourceType, metrics.OutcomeSuccess
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedDatasource):
		// keep caller-supplied strings out of metric labels
		dsType, outcome = "unsupported", metrics.OutcomeError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = metrics.OutcomeCancelled
	case err != nil:
		outcome = metrics.OutcomeError
	}
	s.metrics.ObserveAnalysis(dsType, outcome, time.Since(start))

	return result, err
}

func (s *qualityService) analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResult, error) {
	cfg := req.Options.Apply(s.baseConfig)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := s.now()
	asOf := start.UTC()
	analysisID := uuid.New()
	logger := s.logger.With(
		zap.String("analysis_id", analysisID.String()),
		zap.String("datasource_type", req.DatasourceType),
	)

	logger.Debug("Connecting to datasource", zap.Any("config", logging.SanitizeConfig(req.Config)))

	discoverer, err := s.adapterFactory.NewSchemaDiscoverer(ctx, req.DatasourceType, req.Config)
	if err != nil {
		return nil, connectError("create schema discoverer", err)
	}
	defer discoverer.Close()

	executor, err := s.adapterFactory.NewQueryExecutor(ctx, req.DatasourceType, req.Config)
	if err != nil {
		return nil, connectError("create query executor", err)
	}
	defer executor.Close()

	introspector := NewIntrospector(discoverer, logger)
	tables, err := listTables(ctx, introspector, req.Tables, cfg.QueryTimeout)
	if err != nil {
		return nil, err
	}
	if err := loadForeignKeys(ctx, introspector, cfg.QueryTimeout); err != nil {
		logger.Warn("Foreign key discovery failed; continuing without foreign keys",
			zap.String("error", logging.SanitizeError(err)))
	}

	pool := NewWorkerPool(WorkerPoolConfig{MaxConcurrent: s.workers(len(tables))}, logger)
	byID := make(map[string]datasource.TableMetadata, len(tables))
	items := make([]WorkItem[*models.QualityReport], 0, len(tables))
	for _, t := range tables {
		id := tableKey(t.SchemaName, t.TableName)
		byID[id] = t
		items = append(items, WorkItem[*models.QualityReport]{
			ID: id,
			Execute: func(ctx context.Context) (*models.QualityReport, error) {
				return s.analyzeTable(ctx, introspector, executor, t, cfg, asOf)
			},
		})
	}

	logger.Info("Starting quality analysis",
		zap.Int("tables", len(tables)),
		zap.Int("workers", pool.MaxConcurrent()))

	results := Process(ctx, pool, items, nil)

	// Tables never dispatched because the pass was cancelled make the whole
	// result incomplete.
	if err := ctx.Err(); err != nil {
		logger.Warn("Quality analysis cancelled", zap.Error(err))
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	reports := make([]*models.QualityReport, 0, len(results))
	for _, r := range results {
		if r.Err == nil && r.Result != nil {
			s.metrics.ObserveTable(req.DatasourceType, metrics.TableAnalyzed, r.Result.Grade, r.Elapsed)
			reports = append(reports, r.Result)
			continue
		}
		s.metrics.ObserveTable(req.DatasourceType, metrics.TableFailed, models.GradeNotAvailable, r.Elapsed)
		t := byID[r.ID]
		sanitized := errors.New(logging.SanitizeError(r.Err))
		logger.Warn("Table analysis failed",
			zap.String("table", r.ID),
			zap.Duration("elapsed", r.Elapsed),
			zap.String("error", sanitized.Error()))
		reports = append(reports, quality.FailedReport(models.TableSchema{
			SchemaName: t.SchemaName,
			TableName:  t.TableName,
			RowCount:   t.RowCount,
		}, sanitized, asOf))
	}
	sortReports(reports)

	overview := quality.ComputeOverview(reports)
	elapsed := s.now().Sub(start)

	logger.Info("Quality analysis completed",
		zap.Int("tables_analyzed", overview.TablesAnalyzed),
		zap.Int("tables_failed", overview.TablesFailed),
		zap.Float64("database_score", overview.DatabaseScore),
		zap.Duration("elapsed", elapsed))

	return &AnalysisResult{
		AnalysisID:     analysisID,
		DatasourceType: req.DatasourceType,
		AnalyzedAt:     asOf,
		DurationMs:     elapsed.Milliseconds(),
		Overview:       overview,
		Tables:         reports,
	}, nil
}

// analyzeTable runs introspect, collect and analyze for one table. The whole
// unit shares one cfg.QueryTimeout deadline, so a table whose catalog or
// statistics queries hang fails on its own without holding up the pass.
func (s *qualityService) analyzeTable(
	ctx context.Context,
	introspector *Introspector,
	q quality.QueryCapability,
	table datasource.TableMetadata,
	cfg quality.Config,
	asOf time.Time,
) (*models.QualityReport, error) {
	tableCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()

	report, err := s.analyzeTableUnbounded(tableCtx, introspector, q, table, cfg, asOf)
	if err != nil {
		return nil, markTimeout(ctx, tableCtx, tableKey(table.SchemaName, table.TableName), "analyze table", err)
	}
	return report, nil
}

func (s *qualityService) analyzeTableUnbounded(
	ctx context.Context,
	introspector *Introspector,
	q quality.QueryCapability,
	table datasource.TableMetadata,
	cfg quality.Config,
	asOf time.Time,
) (*models.QualityReport, error) {
	schema, err := introspector.Introspect(ctx, table)
	if err != nil {
		return nil, err
	}
	stats, err := s.collector.CollectStatistics(ctx, schema, q, cfg)
	if err != nil {
		return nil, err
	}
	return quality.AnalyzeQuality(schema, stats, cfg, asOf)
}

func listTables(ctx context.Context, introspector *Introspector, filter []string, timeout time.Duration) ([]datasource.TableMetadata, error) {
	listCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tables, err := introspector.ListTables(listCtx, filter)
	if err != nil {
		return nil, markTimeout(ctx, listCtx, "", "discover tables", err)
	}
	return tables, nil
}

func loadForeignKeys(ctx context.Context, introspector *Introspector, timeout time.Duration) error {
	fkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := introspector.LoadForeignKeys(fkCtx); err != nil {
		return markTimeout(ctx, fkCtx, "", "discover foreign keys", err)
	}
	return nil
}

// markTimeout reports err as a timed-out DataAccessError when bounded's own
// deadline expired while parent is still live. Anything else, including
// cancellation of the pass itself, is returned unchanged.
func markTimeout(parent, bounded context.Context, table, op string, err error) error {
	if parent.Err() != nil || !errors.Is(bounded.Err(), context.DeadlineExceeded) {
		return err
	}
	var dae *apperrors.DataAccessError
	if errors.As(err, &dae) {
		timedOut := *dae
		timedOut.Timeout = true
		return &timedOut
	}
	return &apperrors.DataAccessError{Table: table, Op: op, Timeout: true, Err: err}
}

// connectError keeps configuration and unsupported-type errors as they are and
// reports anything else from an adapter factory as a failure to reach the
// datasource.
func connectError(op string, err error) error {
	if errors.Is(err, apperrors.ErrConfiguration) || errors.Is(err, apperrors.ErrUnsupportedDatasource) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return &apperrors.DataAccessError{Op: op, Err: err}
}

func sortReports(reports []*models.QualityReport) {
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].SchemaName != reports[j].SchemaName {
			return reports[i].SchemaName < reports[j].SchemaName
		}
		return reports[i].TableName < reports[j].TableName
	})
}
