// Package jsonfile implements a connector over a local directory of JSON
// files. Each object is one file named <object>.<format>[.<compression>].
// Loads rewrite the file through a temporary sibling and an atomic rename,
// so readers observe either the old or the new contents.
package jsonfile

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/nebula-migrate/pkg/compression"
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-migrate/pkg/json"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/schema"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the JSON file connector
const ConnectorType = "jsonfile"

// Connector reads and writes JSON files in one directory
type Connector struct {
	*base.BaseConnector

	dir         string
	create      bool
	format      string
	compression compression.Algorithm
	inferrer    *schema.TypeInferenceEngine
}

// New creates a JSON file connector. Params: directory (required), create
// (default true), format (jsonl or json) and compression.
func New(cfg *config.ConnectorConfig) (*Connector, error) {
	c := &Connector{BaseConnector: base.NewBaseConnector(ConnectorType, cfg)}
	cfg = c.GetConfig()

	c.dir = cfg.Param("directory", "")
	if c.dir == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "jsonfile: directory is required")
	}
	c.create = cfg.Param("create", "true") == "true"

	c.format = cfg.Param("format", jsonpool.FormatLines)
	if c.format != jsonpool.FormatLines && c.format != jsonpool.FormatArray {
		return nil, errors.Newf(errors.ErrorTypeConfig, "jsonfile: unsupported format %q", c.format)
	}

	alg, err := compression.Parse(cfg.Param("compression", ""))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "jsonfile: invalid compression")
	}
	c.compression = alg
	c.inferrer = schema.NewTypeInferenceEngine(c.GetLogger())
	return c, nil
}

// Connect checks the directory, creating it when allowed
func (c *Connector) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	info, err := os.Stat(c.dir)
	switch {
	case os.IsNotExist(err) && c.create:
		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to create directory "+c.dir)
		}
	case err != nil:
		return errors.Wrap(err, errors.ErrorTypeConnection, "cannot access directory "+c.dir)
	case !info.IsDir():
		return errors.Newf(errors.ErrorTypeConnection, "%s is not a directory", c.dir)
	}

	c.MarkConnected()
	c.GetLogger().Info("opened directory", zap.String("directory", c.dir))
	return nil
}

// Disconnect marks the session closed; no files are held open between calls
func (c *Connector) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	c.MarkDisconnected()
	return nil
}

// GetSchema reports one file object per JSON file, sorted by name
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to list "+c.dir)
	}

	files := make(map[string]string)
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := objectName(e.Name())
		if !ok {
			continue
		}
		if _, dup := files[name]; !dup {
			names = append(names, name)
		}
		files[name] = filepath.Join(c.dir, e.Name())
	}
	sort.Strings(names)

	sampleSize := c.GetConfig().Performance.SampleSize
	objects := make([]core.SchemaObject, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := readFile(files[name], sampleSize)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to sample "+name)
		}
		objects = append(objects, c.inferrer.InferObject(name, core.ObjectTypeFile, samples))
	}
	return objects, nil
}

// ExtractData reads an object's file. A missing file is ErrorTypeNotFound.
func (c *Connector) ExtractData(ctx context.Context, req core.ExtractRequest) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if req.Query != "" {
		return nil, errors.New(errors.ErrorTypeQuery, "jsonfile connector does not support queries")
	}

	path, err := c.locate(req.ObjectName)
	if err != nil {
		return nil, err
	}

	records, err := readFile(path, req.Limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read "+path)
	}
	return records, nil
}

// LoadData appends records to target. The existing contents and the new
// records are written to a temporary file which then replaces the original.
func (c *Connector) LoadData(ctx context.Context, target string, records []models.Record) (int, error) {
	if !c.IsConnected() {
		return 0, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}
	if strings.ContainsAny(target, `/\`) || target == "" {
		return 0, errors.Newf(errors.ErrorTypeInvalidArgument, "invalid object name %q", target)
	}

	path := c.pathFor(target)
	existing, err := readFile(path, 0)
	if err != nil && !os.IsNotExist(err) {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to read existing "+path)
	}

	all := make([]models.Record, 0, len(existing)+len(records))
	all = append(all, existing...)
	all = append(all, records...)

	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "load into "+target+" cancelled")
	}
	if err := c.writeAtomic(path, all); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to write "+path)
	}

	c.GetLogger().Debug("appended records",
		zap.String("file", path),
		zap.Int("records", len(records)),
		zap.Int("total", len(all)))
	return len(records), nil
}

func (c *Connector) writeAtomic(path string, records []models.Record) (err error) {
	tmp, err := os.CreateTemp(c.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	w, err := compression.NewWriter(bw, c.compression, compression.Default)
	if err != nil {
		return err
	}
	if err = jsonpool.EncodeRecords(w, records, c.format); err != nil {
		return err
	}
	if err = w.Close(); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Connector) pathFor(object string) string {
	return filepath.Join(c.dir, object+"."+c.format+compression.Extension(c.compression))
}

// locate finds the file backing object, preferring the configured layout
func (c *Connector) locate(object string) (string, error) {
	preferred := c.pathFor(object)
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeQuery, "failed to list "+c.dir)
	}
	for _, e := range entries {
		if name, ok := objectName(e.Name()); ok && name == object && !e.IsDir() {
			return filepath.Join(c.dir, e.Name()), nil
		}
	}
	return "", errors.Newf(errors.ErrorTypeNotFound, "object %s not found in %s", object, c.dir)
}

// objectName strips the format and compression suffixes from a file name
func objectName(file string) (string, bool) {
	if strings.HasPrefix(file, ".") {
		return "", false
	}
	base := file
	if ext := compression.Extension(compression.FromPath(file)); ext != "" {
		base = strings.TrimSuffix(file, ext)
	}
	for _, ext := range []string{"." + jsonpool.FormatLines, "." + jsonpool.FormatArray, ".ndjson"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext), true
		}
	}
	return "", false
}

func readFile(path string, limit int) ([]models.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := compression.NewReader(bufio.NewReader(f), compression.FromPath(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer r.Close()

	return jsonpool.DecodeRecords(r, limit)
}
