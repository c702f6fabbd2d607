package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnector(t *testing.T, dir string, params map[string]string) *Connector {
	t.Helper()
	cfg := config.NewConnectorConfig("files", ConnectorType)
	cfg.ConnectionParams["directory"] = dir
	for k, v := range params {
		cfg.ConnectionParams[k] = v
	}
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresDirectory(t *testing.T) {
	_, err := New(config.NewConnectorConfig("files", ConnectorType))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	c := newConnector(t, filepath.Join(root, "nested", "out"), nil)
	require.NoError(t, c.Connect(ctx))
	assert.DirExists(t, filepath.Join(root, "nested", "out"))

	c = newConnector(t, filepath.Join(root, "absent"), map[string]string{"create": "false"})
	assert.True(t, errors.IsType(c.Connect(ctx), errors.ErrorTypeConnection))

	file := filepath.Join(root, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	c = newConnector(t, file, nil)
	assert.True(t, errors.IsType(c.Connect(ctx), errors.ErrorTypeConnection))
}

func TestLoadAppendsAndExtracts(t *testing.T) {
	for _, tt := range []struct {
		format, compression, file string
	}{
		{"jsonl", "", "people.jsonl"},
		{"json", "", "people.json"},
		{"jsonl", "gzip", "people.jsonl.gz"},
		{"jsonl", "zstd", "people.jsonl.zst"},
		{"json", "lz4", "people.json.lz4"},
	} {
		t.Run(tt.file, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			c := newConnector(t, dir, map[string]string{"format": tt.format, "compression": tt.compression})
			require.NoError(t, c.Connect(ctx))

			n, err := c.LoadData(ctx, "people", []models.Record{{"name": "ann"}, {"name": "bo"}})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = c.LoadData(ctx, "people", []models.Record{{"name": nil}})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			assert.FileExists(t, filepath.Join(dir, tt.file))

			records, err := c.ExtractData(ctx, core.ObjectRequest("people"))
			require.NoError(t, err)
			assert.Equal(t, []models.Record{{"name": "ann"}, {"name": "bo"}, {"name": nil}}, records)

			records, err = c.ExtractData(ctx, core.ExtractRequest{ObjectName: "people", Limit: 1})
			require.NoError(t, err)
			assert.Equal(t, []models.Record{{"name": "ann"}}, records)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temporary files must not be left behind")
		})
	}
}

func TestLoadData_CancelledLeavesFileUnchanged(t *testing.T) {
	dir := t.TempDir()
	c := newConnector(t, dir, nil)
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.LoadData(context.Background(), "people", []models.Record{{"name": "ann"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n, err := c.LoadData(ctx, "people", []models.Record{{"name": "bo"}})
	assert.Equal(t, 0, n)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoad))

	records, err := c.ExtractData(context.Background(), core.ObjectRequest("people"))
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLoadData_AppendKeepsBigIntegers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c := newConnector(t, dir, nil)
	require.NoError(t, c.Connect(ctx))

	first := models.Record{"id": int64(9007199254740993), "amount": 12.5}
	second := models.Record{"id": int64(9223372036854775807), "amount": nil}
	_, err := c.LoadData(ctx, "ledger", []models.Record{first})
	require.NoError(t, err)
	_, err = c.LoadData(ctx, "ledger", []models.Record{second})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "ledger.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":9007199254740993`)

	records, err := c.ExtractData(ctx, core.ObjectRequest("ledger"))
	require.NoError(t, err)
	assert.Equal(t, []models.Record{first, second}, records)
}

func TestLoadData_RejectsPathTargets(t *testing.T) {
	c := newConnector(t, t.TempDir(), nil)
	require.NoError(t, c.Connect(context.Background()))

	_, err := c.LoadData(context.Background(), "../escape", []models.Record{{"a": 1}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestExtractData_Errors(t *testing.T) {
	ctx := context.Background()
	c := newConnector(t, t.TempDir(), nil)

	_, err := c.ExtractData(ctx, core.ObjectRequest("people"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	require.NoError(t, c.Connect(ctx))
	_, err = c.ExtractData(ctx, core.ObjectRequest("people"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = c.ExtractData(ctx, core.ExtractRequest{Query: "x"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))
}

func TestExtractData_FindsOtherLayouts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "events.ndjson"), []byte("{\"id\":1}\n{\"id\":2}\n"), 0o644))

	c := newConnector(t, dir, map[string]string{"format": "json"})
	require.NoError(t, c.Connect(ctx))

	records, err := c.ExtractData(ctx, core.ObjectRequest("events"))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestGetSchema(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.json"), []byte(`[{"id":1,"email":"a@x.io"},{"id":2}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.jsonl"), []byte(`{"ok":true}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	c := newConnector(t, dir, nil)
	objects, err := c.GetSchema(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.True(t, c.IsConnected())

	assert.Equal(t, "a", objects[0].Name)
	assert.Equal(t, core.ObjectTypeFile, objects[0].Type)

	email, ok := objects[1].Field("email")
	require.True(t, ok)
	assert.True(t, email.Nullable)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		file string
		want string
		ok   bool
	}{
		{"people.jsonl", "people", true},
		{"people.json", "people", true},
		{"people.jsonl.gz", "people", true},
		{"people.json.zst", "people", true},
		{"people.ndjson", "people", true},
		{"people.csv", "", false},
		{".people.jsonl.123.tmp", "", false},
	}
	for _, tt := range tests {
		got, ok := objectName(tt.file)
		assert.Equal(t, tt.ok, ok, tt.file)
		assert.Equal(t, tt.want, got, tt.file)
	}
}
