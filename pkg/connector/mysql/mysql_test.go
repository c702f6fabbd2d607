package mysql

import (
	"context"
	"testing"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/testutil"
	driver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(creds, params map[string]string) *config.ConnectorConfig {
	cfg := config.NewConnectorConfig("my", ConnectorType)
	for k, v := range creds {
		cfg.Credentials[k] = v
	}
	for k, v := range params {
		cfg.ConnectionParams[k] = v
	}
	return cfg
}

func TestNew_DSN(t *testing.T) {
	c, err := New(newConfig(
		map[string]string{"user": "etl", "password": "secret"},
		map[string]string{"host": "db.local", "database": "crm"}))
	require.NoError(t, err)

	parsed, err := driver.ParseDSN(c.dsn)
	require.NoError(t, err)
	assert.Equal(t, "etl", parsed.User)
	assert.Equal(t, "secret", parsed.Passwd)
	assert.Equal(t, "db.local:3306", parsed.Addr)
	assert.Equal(t, "crm", parsed.DBName)
	assert.True(t, parsed.ParseTime)
	assert.Equal(t, "crm", c.database)

	c, err = New(newConfig(map[string]string{"connection_string": "root:pw@tcp(127.0.0.1:3307)/shop"}, nil))
	require.NoError(t, err)
	assert.Equal(t, "shop", c.database)

	_, err = New(newConfig(nil, map[string]string{"host": "db"}))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestStatements(t *testing.T) {
	c, err := New(newConfig(nil, map[string]string{"host": "db", "database": "crm"}))
	require.NoError(t, err)

	assert.Equal(t, "`orders`", c.identifier("orders"))
	assert.Equal(t, "`archive`.`orders`", c.identifier("archive.orders"))
	assert.Equal(t, "`we``ird`", quoteIdent("we`ird"))

	assert.Equal(t, "INSERT INTO `t` (`a`, `b`) VALUES (?, ?)", insertStatement("`t`", []string{"a", "b"}))
	assert.Equal(t, "INSERT INTO `t` () VALUES ()", insertStatement("`t`", nil))
}

func TestConvertValue(t *testing.T) {
	assert.Equal(t, "text", convertValue([]byte("text")))
	assert.Equal(t, int64(3), convertValue(int64(3)))
	assert.Nil(t, convertValue(nil))
}

func TestAddField_KeepsFirstColumnOccurrence(t *testing.T) {
	obj := core.SchemaObject{Name: "orders"}

	assert.True(t, addField(&obj, core.SchemaField{Name: "id", PrimaryKey: true}))
	assert.True(t, addField(&obj, core.SchemaField{Name: "customer_id", ForeignKey: "customers.id"}))
	assert.False(t, addField(&obj, core.SchemaField{Name: "customer_id", ForeignKey: "accounts.id"}))
	assert.True(t, addField(&obj, core.SchemaField{Name: "total"}))

	require.Len(t, obj.Fields, 3)
	assert.Equal(t, "customer_id", obj.Fields[1].Name)
	assert.Equal(t, "customers.id", obj.Fields[1].ForeignKey)
	assert.Equal(t, "total", obj.Fields[2].Name)
}

func TestNotConnected(t *testing.T) {
	c, err := New(newConfig(nil, map[string]string{"host": "db", "database": "crm"}))
	require.NoError(t, err)

	_, err = c.ExtractData(context.Background(), core.ExtractRequest{Query: "SELECT 1"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	_, err = c.LoadData(context.Background(), "t", []models.Record{{"a": 1}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

// TestRoundTrip runs against a live server when MIGRATE_TEST_MYSQL_DSN is set
func TestRoundTrip(t *testing.T) {
	dsn := testutil.IntegrationTest(t, "MIGRATE_TEST_MYSQL_DSN")
	ctx := testutil.TestContext(t)

	c, err := New(newConfig(map[string]string{"connection_string": dsn}, nil))
	require.NoError(t, err)
	require.NoError(t, c.Connect(ctx))
	defer c.Disconnect(ctx)

	_, err = c.db.ExecContext(ctx, "DROP TABLE IF EXISTS migrate_people")
	require.NoError(t, err)
	_, err = c.db.ExecContext(ctx, "CREATE TABLE migrate_people (id INT PRIMARY KEY, name VARCHAR(50)) ENGINE=InnoDB")
	require.NoError(t, err)

	n, err := c.LoadData(ctx, "migrate_people", []models.Record{{"id": 1, "name": "ann"}, {"id": 2}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.LoadData(ctx, "migrate_people", []models.Record{{"id": 3}, {"id": 1}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoad))

	records, err := c.ExtractData(ctx, core.ExtractRequest{ObjectName: "migrate_people", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	objects, err := c.GetSchema(ctx)
	require.NoError(t, err)
	obj, ok := core.FindObject(objects, "migrate_people")
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, obj.PrimaryKeys())
}
