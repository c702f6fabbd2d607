// Package s3 implements an object-store connector. Every object name maps
// to a key prefix holding JSON part files; each LoadData call uploads one
// new part, so a load is visible entirely or not at all.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/compression"
	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/base"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	jsonpool "github.com/ajitpratap0/nebula-migrate/pkg/json"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/ajitpratap0/nebula-migrate/pkg/schema"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConnectorType is the registry name of the S3 connector
const ConnectorType = "s3"

// API is the subset of the S3 client the connector uses
type API interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Option configures a Connector
type Option func(*Connector)

// WithClient uses client instead of building one from the AWS config chain
func WithClient(client API) Option {
	return func(c *Connector) { c.injected = client }
}

// Connector stores records as JSON part files under bucket/prefix/object/
type Connector struct {
	*base.BaseConnector

	bucket      string
	prefix      string
	region      string
	endpoint    string
	format      string
	compression compression.Algorithm
	inferrer    *schema.TypeInferenceEngine

	injected API
	client   API
	uploader *manager.Uploader
}

// New creates an S3 connector. Params: bucket (required), prefix, region,
// endpoint (S3-compatible stores), format (jsonl or json) and compression.
// Credentials: access_key_id, secret_access_key and session_token; when
// unset the default AWS credential chain applies.
func New(cfg *config.ConnectorConfig, opts ...Option) (*Connector, error) {
	c := &Connector{BaseConnector: base.NewBaseConnector(ConnectorType, cfg)}
	cfg = c.GetConfig()

	c.bucket = cfg.Param("bucket", "")
	if c.bucket == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "s3: bucket is required")
	}
	c.prefix = strings.Trim(cfg.Param("prefix", ""), "/")
	c.region = cfg.Param("region", "us-east-1")
	c.endpoint = cfg.Param("endpoint", "")

	c.format = cfg.Param("format", jsonpool.FormatLines)
	if c.format != jsonpool.FormatLines && c.format != jsonpool.FormatArray {
		return nil, errors.Newf(errors.ErrorTypeConfig, "s3: unsupported format %q", c.format)
	}

	alg, err := compression.Parse(cfg.Param("compression", ""))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "s3: invalid compression")
	}
	c.compression = alg
	c.inferrer = schema.NewTypeInferenceEngine(c.GetLogger())

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect builds the client and checks bucket access
func (c *Connector) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return nil
	}

	ctx, cancel := c.ConnectContext(ctx)
	defer cancel()

	client := c.injected
	if client == nil {
		built, err := c.buildClient(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
		}
		client = built
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "cannot access bucket "+c.bucket)
	}

	c.client = client
	c.uploader = manager.NewUploader(client, func(u *manager.Uploader) {
		u.Concurrency = c.GetConfig().Performance.MaxConnections
	})
	c.MarkConnected()
	c.GetLogger().Info("connected to S3",
		zap.String("bucket", c.bucket),
		zap.String("prefix", c.prefix))
	return nil
}

func (c *Connector) buildClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(c.region)}

	cfg := c.GetConfig()
	if key := cfg.Credential("access_key_id", ""); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key,
				cfg.Credential("secret_access_key", ""),
				cfg.Credential("session_token", ""))))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.endpoint != "" {
			o.BaseEndpoint = aws.String(c.endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Disconnect drops the client
func (c *Connector) Disconnect(ctx context.Context) error {
	if !c.IsConnected() {
		return nil
	}
	c.client = nil
	c.uploader = nil
	c.MarkDisconnected()
	return nil
}

// GetSchema reports one prefix object per "directory" under the configured
// prefix, with fields inferred from its first part
func (c *Connector) GetSchema(ctx context.Context) ([]core.SchemaObject, error) {
	if !c.IsConnected() {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    aws.String(c.bucket),
		Prefix:    aws.String(c.rootPrefix()),
		Delimiter: aws.String("/"),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to list prefixes")
	}

	var names []string
	for _, p := range out.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(p.Prefix), c.rootPrefix()), "/")
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	sampleSize := c.GetConfig().Performance.SampleSize
	objects := make([]core.SchemaObject, 0, len(names))
	for _, name := range names {
		samples, err := c.read(ctx, name, sampleSize)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeIntrospection, "failed to sample "+name)
		}
		objects = append(objects, c.inferrer.InferObject(name, core.ObjectTypePrefix, samples))
	}
	return objects, nil
}

// ExtractData reads every part of an object in key order. Queries are not
// supported.
func (c *Connector) ExtractData(ctx context.Context, req core.ExtractRequest) ([]models.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !c.IsConnected() {
		return nil, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if req.Query != "" {
		return nil, errors.New(errors.ErrorTypeQuery, "s3 connector does not support queries")
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	records, err := c.read(ctx, req.ObjectName, req.Limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read "+req.ObjectName)
	}
	return records, nil
}

func (c *Connector) read(ctx context.Context, object string, limit int) ([]models.Record, error) {
	keys, err := c.listParts(ctx, object)
	if err != nil {
		return nil, err
	}

	var records []models.Record
	for _, key := range keys {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(records)
			if remaining <= 0 {
				break
			}
		}

		part, err := c.readPart(ctx, key, remaining)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		records = append(records, part...)
	}
	return records, nil
}

func (c *Connector) listParts(ctx context.Context, object string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.objectPrefix(object)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Connector) readPart(ctx context.Context, key string, limit int) ([]models.Record, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	r, err := compression.NewReader(out.Body, compression.FromPath(key))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return jsonpool.DecodeRecords(r, limit)
}

// LoadData uploads records as one new part of target
func (c *Connector) LoadData(ctx context.Context, target string, records []models.Record) (int, error) {
	if !c.IsConnected() {
		return 0, errors.New(errors.ErrorTypeConnection, "not connected")
	}
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := c.RequestContext(ctx)
	defer cancel()

	payload, err := jsonpool.MarshalRecords(records, c.format)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to encode records")
	}
	if c.compression != compression.None {
		payload, err = compression.Compress(payload, c.compression, compression.Default)
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to compress records")
		}
	}

	key := c.partKey(target, time.Now())
	if _, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(c.contentType()),
	}); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeLoad, "failed to upload "+key)
	}

	c.GetLogger().Debug("uploaded part",
		zap.String("key", key),
		zap.Int("records", len(records)),
		zap.Int("bytes", len(payload)))
	return len(records), nil
}

func (c *Connector) rootPrefix() string {
	if c.prefix == "" {
		return ""
	}
	return c.prefix + "/"
}

func (c *Connector) objectPrefix(object string) string {
	return c.rootPrefix() + strings.Trim(object, "/") + "/"
}

// partKey names a part so that key order follows upload order
func (c *Connector) partKey(object string, now time.Time) string {
	name := fmt.Sprintf("part-%s-%s.%s%s",
		now.UTC().Format("20060102T150405.000000000Z"),
		uuid.New().String()[:8],
		c.format,
		compression.Extension(c.compression))
	return path.Join(c.objectPrefix(object), name)
}

func (c *Connector) contentType() string {
	if c.compression != compression.None {
		return "application/octet-stream"
	}
	if c.format == jsonpool.FormatArray {
		return "application/json"
	}
	return "application/x-ndjson"
}
