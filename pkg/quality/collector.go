package quality

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-quality/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-quality/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-quality/pkg/logging"
	"github.com/ekaya-inc/ekaya-quality/pkg/models"
)

// QueryCapability is what the collector needs from a datasource: run a
// read-only query and quote identifiers for its dialect. Every adapter's
// datasource.QueryExecutor satisfies it.
type QueryCapability interface {
	Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error)
	QuoteIdentifier(name string) string
}

var _ QueryCapability = (datasource.QueryExecutor)(nil)

// Collector gathers per-column statistics with batched aggregate queries.
type Collector struct {
	logger *zap.Logger
}

// NewCollector creates a statistics collector.
func NewCollector(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger.Named("quality-collector")}
}

// CollectStatistics returns one ColumnStats per schema column, in schema order.
// Columns are aggregated in as few queries as cfg.MaxColumnsPerQuery allows.
// Any query failure is returned as *apperrors.DataAccessError; nothing is retried.
func (c *Collector) CollectStatistics(ctx context.Context, schema models.TableSchema, q QueryCapability, cfg Config) ([]models.ColumnStats, error) {
	table := schema.QualifiedName()
	if len(schema.Columns) == 0 {
		return []models.ColumnStats{}, nil
	}

	if cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.QueryTimeout)
		defer cancel()
	}

	start := time.Now()
	from := qualifiedTableRef(schema, q)
	stats := make([]models.ColumnStats, 0, len(schema.Columns))
	batch := cfg.columnsPerQuery()

	for offset := 0; offset < len(schema.Columns); offset += batch {
		end := min(offset+batch, len(schema.Columns))
		chunk := schema.Columns[offset:end]

		query := buildStatsQuery(from, chunk, q)
		result, err := q.Query(ctx, query, 1)
		if err != nil {
			return nil, c.dataAccessError(ctx, table, err)
		}
		if result == nil || len(result.Rows) == 0 {
			return nil, &apperrors.DataAccessError{
				Table: table,
				Op:    "collect statistics",
				Err:   errors.New("aggregate query returned no rows"),
			}
		}

		chunkStats, err := decodeStatsRow(result.Rows[0], chunk)
		if err != nil {
			return nil, &apperrors.DataAccessError{Table: table, Op: "decode statistics", Err: err}
		}
		stats = append(stats, chunkStats...)
	}

	if cfg.TopValues > 0 {
		for i, col := range schema.Columns {
			if !wantsTopValues(stats[i], cfg) {
				continue
			}
			top, err := c.collectTopValues(ctx, from, col, stats[i], q, cfg.TopValues)
			if err != nil {
				return nil, c.dataAccessError(ctx, table, err)
			}
			stats[i].TopValues = top
		}
	}

	c.logger.Debug("Collected column statistics",
		zap.String("table", table),
		zap.Int("columns", len(stats)),
		zap.Duration("elapsed", time.Since(start)))

	return stats, nil
}

func (c *Collector) dataAccessError(ctx context.Context, table string, err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	if timeout {
		c.logger.Warn("Statistics query timed out", zap.String("table", table))
	} else {
		c.logger.Error("Statistics query failed",
			zap.String("table", table),
			zap.String("error", logging.SanitizeError(err)))
	}
	return &apperrors.DataAccessError{
		Table:   table,
		Op:      "collect statistics",
		Timeout: timeout,
		Err:     err,
	}
}

func wantsTopValues(s models.ColumnStats, cfg Config) bool {
	if s.DistinctCount == nil || *s.DistinctCount == 0 {
		return false
	}
	return *s.DistinctCount <= cfg.topValuesMaxDistinct()
}

// collectTopValues groups a low-cardinality column and keeps the n most
// frequent values. The group count is bounded by the distinct count, so all
// groups are fetched and ordered here; ORDER BY inside the adapters' limit
// wrapper is not portable.
func (c *Collector) collectTopValues(ctx context.Context, from string, col models.ColumnDef, s models.ColumnStats, q QueryCapability, n int) ([]models.ValueFrequency, error) {
	ident := q.QuoteIdentifier(col.Name)
	query := fmt.Sprintf("SELECT %s AS val, COUNT(*) AS freq FROM %s WHERE %s IS NOT NULL GROUP BY %s",
		ident, from, ident, ident)
	result, err := q.Query(ctx, query, int(*s.DistinctCount))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	values := make([]models.ValueFrequency, 0, len(result.Rows))
	for _, row := range result.Rows {
		freq, err := lookupCount(row, "freq")
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		values = append(values, models.ValueFrequency{Value: formatValue(lookupValue(row, "val")), Count: freq})
	}
	sort.Slice(values, func(i, j int) bool {
		if values[i].Count != values[j].Count {
			return values[i].Count > values[j].Count
		}
		return values[i].Value < values[j].Value
	})
	if len(values) > n {
		values = values[:n]
	}
	return values, nil
}

// hasNumericRange reports whether MIN/MAX/AVG are collected for the column.
func hasNumericRange(col models.ColumnDef) bool {
	return columnCategory(col) == models.TypeCategoryNumeric
}

// hasDateRange reports whether MIN/MAX of the column are calendar timestamps.
func hasDateRange(col models.ColumnDef) bool {
	return columnCategory(col) == models.TypeCategoryTemporal && models.HasDateComponent(col.DataType)
}

func qualifiedTableRef(schema models.TableSchema, q QueryCapability) string {
	if schema.SchemaName == "" {
		return q.QuoteIdentifier(schema.TableName)
	}
	return q.QuoteIdentifier(schema.SchemaName) + "." + q.QuoteIdentifier(schema.TableName)
}

// buildStatsQuery builds one aggregate SELECT for a chunk of columns.
// Aliases are positional (nn_0, dc_0, min_0, max_0, avg_0) so arbitrary
// column names never have to appear as aliases. AVG runs over c * 1.0 so
// integer columns are not averaged with integer division.
func buildStatsQuery(from string, cols []models.ColumnDef, q QueryCapability) string {
	var b strings.Builder
	b.WriteString("SELECT COUNT(*) AS row_count")
	for i, col := range cols {
		ident := q.QuoteIdentifier(col.Name)
		fmt.Fprintf(&b, ", COUNT(%s) AS nn_%d", ident, i)
		if models.IsDistinctComparable(col.DataType) {
			fmt.Fprintf(&b, ", COUNT(DISTINCT %s) AS dc_%d", ident, i)
		}
		if hasDateRange(col) {
			fmt.Fprintf(&b, ", MIN(%s) AS min_%d, MAX(%s) AS max_%d", ident, i, ident, i)
		}
		if hasNumericRange(col) {
			fmt.Fprintf(&b, ", MIN(%s) AS min_%d, MAX(%s) AS max_%d, AVG(%s * 1.0) AS avg_%d", ident, i, ident, i, ident, i)
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(from)
	return b.String()
}

func decodeStatsRow(row map[string]any, cols []models.ColumnDef) ([]models.ColumnStats, error) {
	rowCount, err := lookupCount(row, "row_count")
	if err != nil {
		return nil, err
	}

	stats := make([]models.ColumnStats, 0, len(cols))
	for i, col := range cols {
		nonNull, err := lookupCount(row, fmt.Sprintf("nn_%d", i))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		s := models.ColumnStats{
			ColumnName: col.Name,
			RowCount:   rowCount,
			NullCount:  rowCount - nonNull,
		}

		if models.IsDistinctComparable(col.DataType) {
			distinct, err := lookupCount(row, fmt.Sprintf("dc_%d", i))
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			s.DistinctCount = &distinct
		}

		if hasDateRange(col) {
			s.MinTime = toTime(lookupValue(row, fmt.Sprintf("min_%d", i)))
			s.MaxTime = toTime(lookupValue(row, fmt.Sprintf("max_%d", i)))
		}
		if hasNumericRange(col) {
			s.MinValue = toFloat64(lookupValue(row, fmt.Sprintf("min_%d", i)))
			s.MaxValue = toFloat64(lookupValue(row, fmt.Sprintf("max_%d", i)))
			s.AvgValue = toFloat64(lookupValue(row, fmt.Sprintf("avg_%d", i)))
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// lookupValue finds a result column case-insensitively; some drivers fold
// unquoted aliases to upper case.
func lookupValue(row map[string]any, key string) any {
	if v, ok := row[key]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func lookupCount(row map[string]any, key string) (int64, error) {
	v := lookupValue(row, key)
	if v == nil {
		return 0, fmt.Errorf("missing %s in result", key)
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("count %d overflows int64", n)
		}
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case float32:
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(n)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// toTime converts a MIN/MAX result to a UTC time. Values that are not
// timestamps (NULL, time-of-day, unknown formats) yield nil.
func toTime(v any) *time.Time {
	var s string
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		u := t.UTC()
		return &u
	case []byte:
		s = string(t)
	case string:
		s = t
	default:
		return nil
	}

	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			u := parsed.UTC()
			return &u
		}
	}
	return nil
}

// toFloat64 converts a numeric aggregate. Drivers return decimals as text
// (mysql, mssql) or as a driver.Valuer (pgx numeric). Anything that does not
// parse as a finite number yields nil.
func toFloat64(v any) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case int16:
		f = float64(n)
	case int8:
		f = float64(n)
	case int:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case []byte:
		return parseFloat(string(n))
	case string:
		return parseFloat(n)
	case driver.Valuer:
		dv, err := n.Value()
		if err != nil {
			return nil
		}
		if _, again := dv.(driver.Valuer); again {
			return nil
		}
		return toFloat64(dv)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// formatValue renders a grouped value for display.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return fmt.Sprint(v)
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv)
		}
		return formatValue(dv)
	default:
		return fmt.Sprint(v)
	}
}
