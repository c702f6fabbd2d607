// Package mysql implements the MySQL connector on database/sql with the
// go-sql-driver/mysql driver. Each LoadData call runs in its own
// transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	driver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the MySQL connector
const ConnectorType = "mysql"

// Connector reads from and writes to one MySQL database
type Connector struct {
	*base.BaseConnector

	dsn      string
	database string
	db       *sql.DB
}

// New creates a MySQL connector from the "connection_string" credential or
// from host, port and database params plus user and password credentials
func New(cfg *config.ConnectorConfig) (*Connector, error) {
	c := &Connector{BaseConnector: base.NewBaseConnector(ConnectorType, cfg)}

	dsnCfg, err := buildConfig(c.GetConfig())
	if err != nil {
		return nil, err
	}
	c.dsn = dsnCfg.FormatDSN()
	c.database = dsnCfg.DBName
	return c, nil
}

func buildConfig(cfg *config.ConnectorConfig) (*driver.Config, error) {
	if dsn := cfg.Credential("connection_string", ""); dsn != "" {
		parsed, err := driver.ParseDSN(dsn)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "mysql: invalid connection_string")
		}
		parsed.ParseTime = true
		return parsed, nil
	}

	host := cfg.Param("host", "")
	database := cfg.Param("database", "")
	if host == "" || database == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "mysql: connection_string or host and database are required")
	}

	d := driver.NewConfig()
	d.Net = "tcp"
	d.Addr = net.JoinHostPort(host, cfg.Param("port", "3306"))
	d.DBName = database
	d.User = cfg.Credential("user", "")
	d.Passwd = cfg.Credential("password", "")
	d.ParseTime = true
	d.Timeout = cfg.Timeouts.Connection
	return d, nil
}

// Connect opens the pool and verifies it with a ping
func (c *Connector) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	db, err := sql.Open("mysql", c.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open MySQL connection")
	}

	cfg := c.GetConfig()
	db.SetMaxOpenConns(cfg.Performance.MaxConnections)
	db.SetMaxIdleConns(cfg.Performance.MaxConnections)
	db.SetConnMaxIdleTime(cfg.Timeouts.Idle)

	ctx, cancel := c.ConnectContext(ctx)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to MySQL")
	}

	c.db = db
	c.MarkConnected()
	c.GetLogger().Info("connected to MySQL", zap.String("database", c.database))
	return nil
}

// Disconnect closes the pool
func (c *Connector) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	c.MarkDisconnected()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close MySQL connection")
	}
	return nil
}

// ExtractData runs a query or reads a whole table or view
func (c *Connector) ExtractData(ctx context.Context, req core.ExtractRequest) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}

	query := req.Query
	if query == "" {
		query = "SELECT * FROM " + c.identifier(req.ObjectName)
	}
	query = base.LimitQuery(query, req.Limit)

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}

	var records []models.Record
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
		}
		rec := make(models.Record, len(columns))
		for i, col := range columns {
			rec[col] = convertValue(values[i])
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "error iterating rows")
	}
	return records, nil
}

// LoadData inserts records in one transaction with a prepared statement.
// Fields a record lacks are inserted as NULL.
func (c *Connector) LoadData(ctx context.Context, target string, records []models.Record) (int, error) {
	if !c.IsConnected() {
		return 0, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	columns := models.Columns(records)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to begin transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertStatement(c.identifier(target), columns))
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to prepare insert into "+target)
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns))
	for i, rec := range records {
		for j, col := range columns {
			args[j] = rec[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeLoad,
				fmt.Sprintf("load into %s rolled back at record %d", target, i))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to commit load into "+target)
	}
	committed = true
	return len(records), nil
}

func (c *Connector) identifier(name string) string {
	schema, object := base.SplitObjectName(name, "")
	if schema == "" {
		return quoteIdent(object)
	}
	return quoteIdent(schema) + "." + quoteIdent(object)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func insertStatement(table string, columns []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + table + " () VALUES ()"
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdent(col)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(quoted, ", "),
		base.Placeholders(len(columns), func(int) string { return "?" }))
}

// convertValue turns driver byte slices into strings
func convertValue(value interface{}) interface{} {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}
