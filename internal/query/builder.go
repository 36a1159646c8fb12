package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver"
)

// Dialects understood by the builder. The names match goqu's dialect registry.
const (
	DialectSQLite    = "sqlite3"
	DialectPostgres  = "postgres"
	DialectMySQL     = "mysql"
	DialectSQLServer = "sqlserver"
)

// bucketExpr truncates the time column to the minute, per dialect. The single
// placeholder is replaced by the quoted time column identifier.
var bucketExpr = map[string]string{
	DialectSQLite:    "STRFTIME('%Y-%m-%d %H:%M', ?)",
	DialectPostgres:  "to_char(?, 'YYYY-MM-DD HH24:MI')",
	DialectMySQL:     "DATE_FORMAT(?, '%Y-%m-%d %H:%i')",
	DialectSQLServer: "FORMAT(?, 'yyyy-MM-dd HH:mm')",
}

// Schema names the metrics table and the columns a lookup touches.
type Schema struct {
	Table       string
	HostColumn  string
	TimeColumn  string
	ValueColumn string
}

// DefaultSchema is the CPU usage table the tool was built against.
func DefaultSchema() Schema {
	return Schema{
		Table:       "CPU_USAGE",
		HostColumn:  "HOST",
		TimeColumn:  "TS",
		ValueColumn: "USAGE",
	}
}

// Statement is a fixed statement template plus its bound parameters. It can
// only be produced by a Builder, so request data never reaches the statement
// text.
type Statement struct {
	sql  string
	args []any
}

// SQL returns the statement template with dialect placeholders.
func (s Statement) SQL() string { return s.sql }

// Args returns the bound parameters in placeholder order: host, start, end.
func (s Statement) Args() []any { return s.args }

// Builder renders the lookup template once and binds each Request to it.
type Builder struct {
	dialect  string
	sql      string
	bindTime func(time.Time) any
}

// NewBuilder renders the template for dialect over schema.
//
// The template is rendered by goqu in prepared mode with sentinel values, and
// the returned argument order is checked against the order Build uses, so the
// text is fixed before any request is seen.
func NewBuilder(dialect string, schema Schema) (*Builder, error) {
	bucket, ok := bucketExpr[dialect]
	if !ok {
		return nil, fmt.Errorf("query: unsupported dialect %q", dialect)
	}
	for name, v := range map[string]string{
		"table":        schema.Table,
		"host column":  schema.HostColumn,
		"time column":  schema.TimeColumn,
		"value column": schema.ValueColumn,
	} {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("query: %s must not be empty", name)
		}
	}

	const (
		hostMark  = "\x00host"
		startMark = "\x00start"
		endMark   = "\x00end"
	)

	ts := goqu.I(schema.TimeColumn)
	bucketCol := goqu.L(bucket, ts)
	ds := goqu.Dialect(dialect).
		From(goqu.T(schema.Table)).
		Prepared(true).
		Select(
			bucketCol.As("bucket"),
			goqu.MAX(goqu.I(schema.ValueColumn)).As("max_usage"),
			goqu.MIN(goqu.I(schema.ValueColumn)).As("min_usage"),
		).
		Where(
			goqu.I(schema.HostColumn).Eq(hostMark),
			ts.Between(goqu.Range(startMark, endMark)),
		).
		GroupBy(bucketCol)

	sqlText, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("query: render template: %w", err)
	}
	want := []string{hostMark, startMark, endMark}
	if len(args) != len(want) {
		return nil, fmt.Errorf("query: template has %d parameters, want %d", len(args), len(want))
	}
	for i, a := range args {
		if s, ok := a.(string); !ok || s != want[i] {
			return nil, fmt.Errorf("query: template parameter %d out of order", i+1)
		}
	}

	b := &Builder{dialect: dialect, sql: sqlText, bindTime: bindTimeValue}
	if dialect == DialectSQLite {
		// Timestamps are stored as text in SQLite; compare in the same layout.
		b.bindTime = bindTimeText
	}
	return b, nil
}

// Dialect reports the dialect the template was rendered for.
func (b *Builder) Dialect() string { return b.dialect }

// Template returns the rendered statement text.
func (b *Builder) Template() string { return b.sql }

// Build binds r to the template.
func (b *Builder) Build(r Request) Statement {
	return Statement{
		sql:  b.sql,
		args: []any{r.Host, b.bindTime(r.Start), b.bindTime(r.End)},
	}
}

func bindTimeText(t time.Time) any  { return t.Format(TimeLayout) }
func bindTimeValue(t time.Time) any { return t }
