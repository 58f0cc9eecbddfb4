package relational

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
)

// Supported dialects for InsertSQL.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// InsertSQL builds an INSERT for table covering every converter parameter.
// Columns are the snake_case form of the parameter names, so dateTime is
// stored in date_time.
func InsertSQL(dialect, table string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", fmt.Errorf("%w: table name is required", logging.ErrInvalidConfig)
	}

	row := goqu.Record{}
	for _, p := range convert.Params {
		row[Column(p)] = goqu.L(":" + p)
	}

	query, _, err := goqu.Dialect(dialect).Insert(table).Rows(row).ToSQL()
	if err != nil {
		return "", fmt.Errorf("build insert for %q: %w", table, err)
	}
	return query, nil
}

// Column converts a parameter name to its column name.
func Column(param string) string {
	var b strings.Builder
	for i, r := range param {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
