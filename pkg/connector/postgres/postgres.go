// Package postgres implements the PostgreSQL connector on a pgx connection
// pool. Each LoadData call runs in its own transaction.
package postgres

import (
	"context"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the PostgreSQL connector
const ConnectorType = "postgres"

const defaultSchema = "public"

// Connector reads from and writes to one PostgreSQL schema
type Connector struct {
	*base.BaseConnector

	dsn    string
	schema string
	pool   *pgxpool.Pool
}

// New creates a PostgreSQL connector. The DSN comes from the
// "connection_string" credential or is assembled from host, port and
// database params plus user and password credentials.
func New(cfg *config.ConnectorConfig) (*Connector, error) {
	c := &Connector{BaseConnector: base.NewBaseConnector(ConnectorType, cfg)}
	cfg = c.GetConfig()

	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}
	c.dsn = dsn
	c.schema = cfg.Param("schema", defaultSchema)
	return c, nil
}

func buildDSN(cfg *config.ConnectorConfig) (string, error) {
	if dsn := cfg.Credential("connection_string", ""); dsn != "" {
		return dsn, nil
	}

	host := cfg.Param("host", "")
	database := cfg.Param("database", "")
	if host == "" || database == "" {
		return "", errors.New(errors.ErrorTypeConfig, "postgres: connection_string or host and database are required")
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, cfg.Param("port", "5432")),
		Path:   "/" + database,
	}
	if user := cfg.Credential("user", ""); user != "" {
		if password := cfg.Credential("password", ""); password != "" {
			u.User = url.UserPassword(user, password)
		} else {
			u.User = url.User(user)
		}
	}
	q := url.Values{}
	q.Set("sslmode", cfg.Param("sslmode", "prefer"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect creates the pool and verifies it with a ping
func (c *Connector) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	poolConfig, err := pgxpool.ParseConfig(c.dsn)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to parse connection string")
	}

	cfg := c.GetConfig()
	poolConfig.MaxConns = int32(cfg.Performance.MaxConnections)
	poolConfig.MaxConnIdleTime = cfg.Timeouts.Idle
	poolConfig.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := c.ConnectContext(ctx)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to connect to PostgreSQL")
	}

	var version string
	if err := pool.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		c.GetLogger().Debug("could not read server version", zap.Error(err))
	}

	c.pool = pool
	c.MarkConnected()
	c.GetLogger().Info("connected to PostgreSQL",
		zap.String("version", version),
		zap.String("schema", c.schema),
		zap.Int32("max_connections", poolConfig.MaxConns))
	return nil
}

// Disconnect closes the pool
func (c *Connector) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	c.pool.Close()
	c.pool = nil
	c.MarkDisconnected()
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

	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to execute query")
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var records []models.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to get row values")
		}
		rec := make(models.Record, len(columns))
		for i, v := range values {
			rec[columns[i]] = convertValue(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "error iterating rows")
	}

	c.GetLogger().Debug("extracted rows", zap.Int("count", len(records)))
	return records, nil
}

// LoadData inserts records in one transaction. Columns are the union of
// record fields; fields a record lacks are inserted as NULL.
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
	stmt := insertStatement(c.identifier(target), columns)

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to begin transaction")
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	batch := &pgx.Batch{}
	for _, rec := range records {
		args := make([]interface{}, len(columns))
		for i, col := range columns {
			args[i] = rec[col]
		}
		batch.Queue(stmt, args...)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, errors.Wrap(err, errors.ErrorTypeLoad,
				fmt.Sprintf("load into %s rolled back at record %d", target, i))
		}
	}
	if err := br.Close(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "load into "+target+" rolled back")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to commit load into "+target)
	}
	return len(records), nil
}

// identifier quotes an object name, qualifying it with the configured schema
func (c *Connector) identifier(name string) string {
	schema, object := base.SplitObjectName(name, c.schema)
	return pgx.Identifier{schema, object}.Sanitize()
}

func insertStatement(table string, columns []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + table + " DEFAULT VALUES"
	}
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pgx.Identifier{col}.Sanitize()
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(quoted, ", "),
		base.Placeholders(len(columns), func(i int) string { return fmt.Sprintf("$%d", i+1) }))
}

// convertValue maps pgx driver values onto plain Go values
func convertValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case [16]byte:
		return uuid.UUID(v).String()
	case pgtype.Numeric:
		if !v.Valid {
			return nil
		}
		return numericString(v)
	case []byte:
		return string(v)
	default:
		return v
	}
}

// numericString renders a valid NUMERIC as an exact decimal string, the same
// form the MySQL connector returns for DECIMAL columns
func numericString(n pgtype.Numeric) string {
	switch {
	case n.NaN:
		return "NaN"
	case n.InfinityModifier == pgtype.Infinity:
		return "Infinity"
	case n.InfinityModifier == pgtype.NegativeInfinity:
		return "-Infinity"
	case n.Int == nil || n.Int.Sign() == 0:
		return "0"
	}

	digits := new(big.Int).Abs(n.Int).String()
	if n.Exp >= 0 {
		digits += strings.Repeat("0", int(n.Exp))
	} else {
		scale := int(-n.Exp)
		if len(digits) <= scale {
			digits = strings.Repeat("0", scale-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-scale] + "." + digits[len(digits)-scale:]
	}
	if n.Int.Sign() < 0 {
		return "-" + digits
	}
	return digits
}
