package postgresql

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ajitpratap0/oddcollector/pkg/adapters/sqlmeta"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
	"github.com/ajitpratap0/oddcollector/pkg/filter"
)

// Repository reads catalog rows from one database.
type Repository interface {
	Schemas(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, schema string) ([]sqlmeta.Table, error)
	Close(ctx context.Context) error
}

// Opener connects a Repository for p.
type Opener func(ctx context.Context, p *Plugin) (Repository, error)

const schemasQuery = `
	SELECT schema_name
	FROM information_schema.schemata
	ORDER BY schema_name`

const tablesQuery = `
	SELECT
		t.table_name,
		t.table_type,
		COALESCE(obj_description(c.oid, 'pg_class'), ''),
		CASE WHEN c.reltuples < 0 THEN NULL ELSE c.reltuples::bigint END
	FROM information_schema.tables t
	LEFT JOIN pg_catalog.pg_namespace n ON n.nspname = t.table_schema
	LEFT JOIN pg_catalog.pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
	WHERE t.table_schema = $1
	ORDER BY t.table_name`

const columnsQuery = `
	SELECT
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		c.column_default,
		COALESCE(col_description(
			(quote_ident(c.table_schema) || '.' || quote_ident(c.table_name))::regclass,
			c.ordinal_position), '')
	FROM information_schema.columns c
	WHERE c.table_schema = $1
	ORDER BY c.table_name, c.ordinal_position`

// systemSchemas are never collected.
var systemSchemas = map[string]bool{
	"pg_toast":           true,
	"pg_internal":        true,
	"catalog_history":    true,
	"pg_catalog":         true,
	"information_schema": true,
}

// VisibleSchemas drops system and temporary schemas and those f rejects.
func VisibleSchemas(names []string, f *filter.Filter) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if systemSchemas[name] || strings.HasPrefix(name, "pg_temp_") || strings.HasPrefix(name, "pg_toast_temp_") {
			continue
		}
		if !f.IsAllowed(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// ConnString is the connection URL of p.
func ConnString(p *Plugin) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.port())),
		Path:   "/" + p.Database,
	}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	if p.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {p.SSLMode}}.Encode()
	}
	return u.String()
}

type pgRepository struct {
	conn *pgx.Conn
}

// Open connects to the database of p with pgx.
func Open(ctx context.Context, p *Plugin) (Repository, error) {
	cfg, err := pgx.ParseConfig(ConnString(p))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse connection string")
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewDataSourceError(errors.ErrorTypeConnection, err)
	}
	return &pgRepository{conn: conn}, nil
}

func (r *pgRepository) Schemas(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, schemasQuery)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query schemas")
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read schemas")
	}
	return names, nil
}

func (r *pgRepository) Tables(ctx context.Context, schema string) ([]sqlmeta.Table, error) {
	rows, err := r.conn.Query(ctx, tablesQuery, schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query tables")
	}
	defer rows.Close()

	var tables []sqlmeta.Table
	for rows.Next() {
		t := sqlmeta.Table{Schema: schema}
		if err := rows.Scan(&t.Name, &t.Type, &t.Comment, &t.Rows); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan table")
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "error reading tables")
	}

	columns, err := r.columns(ctx, schema)
	if err != nil {
		return nil, err
	}
	return sqlmeta.GroupColumns(tables, columns), nil
}

func (r *pgRepository) columns(ctx context.Context, schema string) (map[string][]sqlmeta.Column, error) {
	rows, err := r.conn.Query(ctx, columnsQuery, schema)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query columns")
	}
	defer rows.Close()

	columns := make(map[string][]sqlmeta.Column)
	for rows.Next() {
		var table string
		var c sqlmeta.Column
		if err := rows.Scan(&table, &c.Name, &c.DataType, &c.Nullable, &c.Default, &c.Comment); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan column")
		}
		columns[table] = append(columns[table], c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "error reading columns")
	}
	return columns, nil
}

func (r *pgRepository) Close(ctx context.Context) error {
	return r.conn.Close(ctx)
}
