package sqljournal

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names a supported SQL database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectMSSQL    Dialect = "mssql"
)

// ParseDialect parses a dialect name. "postgresql", "pgx" and "sqlserver"
// are accepted as aliases.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "mssql", "sqlserver":
		return DialectMSSQL, nil
	}
	return "", fmt.Errorf("sqljournal: unknown dialect %q", s)
}

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMSSQL:
		return "sqlserver"
	default:
		return string(d)
	}
}

// rebind rewrites ? placeholders into the dialect's style.
func (d Dialect) rebind(q string) string {
	var prefix string
	switch d {
	case DialectPostgres:
		prefix = "$"
	case DialectMSSQL:
		prefix = "@p"
	default:
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(prefix)
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type columnTypes struct {
	key, blob, int string
}

func (d Dialect) columnTypes() columnTypes {
	switch d {
	case DialectPostgres:
		return columnTypes{key: "TEXT", blob: "BYTEA", int: "BIGINT"}
	case DialectMySQL:
		return columnTypes{key: "VARCHAR(191)", blob: "LONGBLOB", int: "BIGINT"}
	case DialectMSSQL:
		return columnTypes{key: "NVARCHAR(191)", blob: "VARBINARY(MAX)", int: "BIGINT"}
	default:
		return columnTypes{key: "TEXT", blob: "BLOB", int: "INTEGER"}
	}
}

func (d Dialect) createTable(name, body string) string {
	if d == DialectMSSQL {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", name, name, body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, body)
}

func (d Dialect) schema(prefix string) []string {
	t := d.columnTypes()
	docs := prefix + "documents"
	meta := prefix + "meta"
	return []string{
		d.createTable(docs, fmt.Sprintf(
			"collection %[1]s NOT NULL, id %[1]s NOT NULL, data %[2]s NOT NULL, "+
				"version %[3]s NOT NULL, created %[3]s NOT NULL, pos %[3]s NOT NULL, "+
				"PRIMARY KEY (collection, id)",
			t.key, t.blob, t.int)),
		d.createTable(meta, fmt.Sprintf(
			"name %s NOT NULL PRIMARY KEY, value %s NOT NULL",
			t.key, t.int)),
	}
}
