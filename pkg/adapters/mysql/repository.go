package mysql

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"

	"github.com/ajitpratap0/oddcollector/pkg/adapters/sqlmeta"
	"github.com/ajitpratap0/oddcollector/pkg/errors"
)

// Repository reads catalog rows of one database.
type Repository interface {
	Tables(ctx context.Context) ([]sqlmeta.Table, error)
	Close() error
}

// Opener connects a Repository for p.
type Opener func(ctx context.Context, p *Plugin) (Repository, error)

const tablesQuery = `
	SELECT table_name, table_type, COALESCE(table_comment, ''), table_rows
	FROM information_schema.tables
	WHERE table_schema = ?
	ORDER BY table_name`

const columnsQuery = `
	SELECT table_name, column_name, column_type, is_nullable = 'YES', column_default, COALESCE(column_comment, '')
	FROM information_schema.columns
	WHERE table_schema = ?
	ORDER BY table_name, ordinal_position`

// DSN is the driver data source name of p.
func DSN(p *Plugin) string {
	port := p.Port
	if port == 0 {
		port = DefaultPort
	}

	cfg := driver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(p.Host, strconv.Itoa(port))
	cfg.DBName = p.Database
	cfg.User = p.User
	cfg.Passwd = p.Password
	cfg.ParseTime = true
	if !p.SSLDisabled {
		cfg.TLSConfig = "preferred"
	}
	return cfg.FormatDSN()
}

type sqlRepository struct {
	db       *sql.DB
	database string
}

// Open connects to the database of p.
func Open(ctx context.Context, p *Plugin) (Repository, error) {
	db, err := sql.Open("mysql", DSN(p))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to open mysql connection")
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.NewDataSourceError(errors.ErrorTypeConnection, err)
	}
	return &sqlRepository{db: db, database: p.Database}, nil
}

func (r *sqlRepository) Tables(ctx context.Context) ([]sqlmeta.Table, error) {
	rows, err := r.db.QueryContext(ctx, tablesQuery, r.database)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query tables")
	}
	defer rows.Close()

	var tables []sqlmeta.Table
	for rows.Next() {
		var t sqlmeta.Table
		var count sql.NullInt64
		if err := rows.Scan(&t.Name, &t.Type, &t.Comment, &count); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan table")
		}
		if count.Valid {
			t.Rows = &count.Int64
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "error reading tables")
	}

	columns, err := r.columns(ctx)
	if err != nil {
		return nil, err
	}
	return sqlmeta.GroupColumns(tables, columns), nil
}

func (r *sqlRepository) columns(ctx context.Context) (map[string][]sqlmeta.Column, error) {
	rows, err := r.db.QueryContext(ctx, columnsQuery, r.database)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to query columns")
	}
	defer rows.Close()

	columns := make(map[string][]sqlmeta.Column)
	for rows.Next() {
		var table string
		var c sqlmeta.Column
		var def sql.NullString
		if err := rows.Scan(&table, &c.Name, &c.DataType, &c.Nullable, &def, &c.Comment); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan column")
		}
		if def.Valid {
			c.Default = &def.String
		}
		columns[table] = append(columns[table], c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "error reading columns")
	}
	return columns, nil
}

func (r *sqlRepository) Close() error {
	return r.db.Close()
}
