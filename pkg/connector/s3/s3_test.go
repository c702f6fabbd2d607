package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory bucket covering the calls the connector makes
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	headErr error
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) HeadBucket(ctx context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[aws.ToString(in.Key)] = data
	f.mu.Unlock()
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.ToString(in.Key)]
	f.mu.Unlock()
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := aws.ToString(in.Prefix)
	delim := aws.ToString(in.Delimiter)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	seen := make(map[string]bool)

	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		rest := strings.TrimPrefix(k, prefix)
		if delim != "" {
			if i := strings.Index(rest, delim); i >= 0 {
				p := prefix + rest[:i+len(delim)]
				if !seen[p] {
					seen[p] = true
					out.CommonPrefixes = append(out.CommonPrefixes, types.CommonPrefix{Prefix: aws.String(p)})
				}
				continue
			}
		}
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, stderrors.New("multipart uploads not supported by fake")
}

func (f *fakeS3) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, stderrors.New("multipart uploads not supported by fake")
}

func (f *fakeS3) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, stderrors.New("multipart uploads not supported by fake")
}

func (f *fakeS3) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newConfig(params map[string]string) *config.ConnectorConfig {
	cfg := config.NewConnectorConfig("lake", ConnectorType)
	for k, v := range params {
		cfg.ConnectionParams[k] = v
	}
	return cfg
}

func connected(t *testing.T, fake *fakeS3, params map[string]string) *Connector {
	t.Helper()
	c, err := New(newConfig(params), WithClient(fake))
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]string
	}{
		{"missing bucket", map[string]string{}},
		{"bad format", map[string]string{"bucket": "b", "format": "csv"}},
		{"bad compression", map[string]string{"bucket": "b", "compression": "brotli"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(newConfig(tt.params))
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
		})
	}
}

func TestConnect_BucketAccessFailure(t *testing.T) {
	fake := newFakeS3()
	fake.headErr = stderrors.New("403 forbidden")

	c, err := New(newConfig(map[string]string{"bucket": "b"}), WithClient(fake))
	require.NoError(t, err)

	err = c.Connect(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
	assert.False(t, c.IsConnected())
}

func TestLoadThenExtract(t *testing.T) {
	for _, alg := range []string{"", "gzip", "zstd", "lz4", "snappy", "s2"} {
		t.Run("compression="+alg, func(t *testing.T) {
			ctx := context.Background()
			fake := newFakeS3()
			c := connected(t, fake, map[string]string{"bucket": "b", "prefix": "exports/", "compression": alg})

			n, err := c.LoadData(ctx, "people", []models.Record{{"name": "ann"}, {"name": "bo"}})
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			time.Sleep(time.Millisecond)
			n, err = c.LoadData(ctx, "people", []models.Record{{"name": nil}})
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			keys := fake.keys()
			require.Len(t, keys, 2)
			for _, k := range keys {
				assert.True(t, strings.HasPrefix(k, "exports/people/part-"), k)
			}

			records, err := c.ExtractData(ctx, core.ObjectRequest("people"))
			require.NoError(t, err)
			assert.Equal(t, []models.Record{{"name": "ann"}, {"name": "bo"}, {"name": nil}}, records)

			records, err = c.ExtractData(ctx, core.ExtractRequest{ObjectName: "people", Limit: 2})
			require.NoError(t, err)
			assert.Len(t, records, 2)
		})
	}
}

func TestLoadData_ArrayFormat(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := connected(t, fake, map[string]string{"bucket": "b", "format": "json"})

	_, err := c.LoadData(ctx, "orders", []models.Record{{"id": int64(1)}})
	require.NoError(t, err)

	keys := fake.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasSuffix(keys[0], ".json"))
	assert.Equal(t, byte('['), fake.objects[keys[0]][0])

	records, err := c.ExtractData(ctx, core.ObjectRequest("orders"))
	require.NoError(t, err)
	assert.Equal(t, []models.Record{{"id": int64(1)}}, records)
}

func TestLoadData_UploadFailureCommitsNothing(t *testing.T) {
	fake := newFakeS3()
	c := connected(t, fake, map[string]string{"bucket": "b"})
	fake.putErr = stderrors.New("slow down")

	n, err := c.LoadData(context.Background(), "people", []models.Record{{"name": "ann"}})
	assert.Equal(t, 0, n)
	assert.True(t, errors.IsType(err, errors.ErrorTypeLoad))
	assert.Empty(t, fake.keys())
}

func TestExtractData_Errors(t *testing.T) {
	ctx := context.Background()
	c, err := New(newConfig(map[string]string{"bucket": "b"}), WithClient(newFakeS3()))
	require.NoError(t, err)

	_, err = c.ExtractData(ctx, core.ObjectRequest("people"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))

	require.NoError(t, c.Connect(ctx))

	_, err = c.ExtractData(ctx, core.ExtractRequest{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = c.ExtractData(ctx, core.ExtractRequest{Query: "select *"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeQuery))

	records, err := c.ExtractData(ctx, core.ObjectRequest("empty"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestGetSchema(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	c := connected(t, fake, map[string]string{"bucket": "b", "prefix": "lake"})

	_, err := c.LoadData(ctx, "people", []models.Record{{"id": int64(1), "name": "ann"}, {"id": int64(2)}})
	require.NoError(t, err)
	_, err = c.LoadData(ctx, "accounts", []models.Record{{"active": true}})
	require.NoError(t, err)
	fake.objects["other/ignored.jsonl"] = []byte(`{"x":1}`)

	objects, err := c.GetSchema(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	assert.Equal(t, "accounts", objects[0].Name)
	assert.Equal(t, core.ObjectTypePrefix, objects[0].Type)

	people := objects[1]
	assert.Equal(t, "people", people.Name)
	name, ok := people.Field("name")
	require.True(t, ok)
	assert.True(t, name.Nullable)
	id, ok := people.Field("id")
	require.True(t, ok)
	assert.False(t, id.Nullable)
}

func TestDisconnect(t *testing.T) {
	c := connected(t, newFakeS3(), map[string]string{"bucket": "b"})
	require.NoError(t, c.Disconnect(context.Background()))
	assert.False(t, c.IsConnected())
	require.NoError(t, c.Disconnect(context.Background()))

	_, err := c.LoadData(context.Background(), "people", []models.Record{{"a": 1}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConnection))
}

func TestPartKeyAndContentType(t *testing.T) {
	c, err := New(newConfig(map[string]string{"bucket": "b", "prefix": "/raw/", "compression": "gzip"}))
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 5, time.UTC)
	key := c.partKey("orders", now)
	assert.True(t, strings.HasPrefix(key, "raw/orders/part-20240301T120000.000000005Z-"), key)
	assert.True(t, strings.HasSuffix(key, ".jsonl.gz"), key)
	assert.Equal(t, "application/octet-stream", c.contentType())

	later := c.partKey("orders", now.Add(time.Nanosecond))
	assert.Less(t, key, later)

	plain, err := New(newConfig(map[string]string{"bucket": "b"}))
	require.NoError(t, err)
	assert.Equal(t, "people/", plain.objectPrefix("people"))
	assert.Equal(t, "application/x-ndjson", plain.contentType())
}
