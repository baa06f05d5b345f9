package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 accepts PutObject calls and keeps the uploaded bodies by path.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    bool
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("<Error><Code>InternalError</Code></Error>")),
			Header:     http.Header{"Content-Type": {"application/xml"}},
			Request:    req,
		}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}, Request: req}, nil
	}
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	f.objects[req.URL.Path] = body
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(nil)),
		Header:     http.Header{"ETag": {"\"etag\""}},
		Request:    req,
	}, nil
}

func newFakeS3Sink(t *testing.T, batch int) (*S3Sink, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	cfg := S3Config{
		Bucket:          "audit-bucket",
		Region:          "us-east-1",
		Endpoint:        "https://mock.s3.local",
		Prefix:          "/planloom/",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
		BatchSize:       batch,
	}
	client, err := NewS3Client(context.Background(), cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.RetryMaxAttempts = 1
	})
	require.NoError(t, err)
	sink, err := NewS3Sink(client, cfg)
	require.NoError(t, err)
	sink.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return sink, fake
}

func TestS3Sink_FlushWritesJSONLines(t *testing.T) {
	sink, fake := newFakeS3Sink(t, 10)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, entry("a")))
	require.NoError(t, sink.Record(ctx, entry("b")))
	assert.Empty(t, fake.objects)
	assert.Equal(t, 2, sink.Pending())

	require.NoError(t, sink.Flush(ctx))
	require.Len(t, fake.objects, 1)
	assert.Zero(t, sink.Pending())

	for path, body := range fake.objects {
		assert.True(t, strings.HasPrefix(path, "/audit-bucket/planloom/2025/03/04/20250304T050607Z-"), path)
		assert.True(t, strings.HasSuffix(path, ".jsonl"), path)

		var ids []string
		sc := bufio.NewScanner(bytes.NewReader(body))
		for sc.Scan() {
			var e Entry
			require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
			ids = append(ids, e.EntityID)
		}
		assert.Equal(t, []string{"a", "b"}, ids)
	}
}

func TestS3Sink_FlushesWhenBatchFills(t *testing.T) {
	sink, fake := newFakeS3Sink(t, 2)
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, entry("a")))
	require.NoError(t, sink.Record(ctx, entry("b")))
	assert.Len(t, fake.objects, 1)
	assert.Zero(t, sink.Pending())
}

func TestS3Sink_FailedUploadKeepsBatch(t *testing.T) {
	sink, fake := newFakeS3Sink(t, 10)
	ctx := context.Background()
	fake.fail = true

	require.NoError(t, sink.Record(ctx, entry("a")))
	require.Error(t, sink.Flush(ctx))
	assert.Equal(t, 1, sink.Pending())

	fake.fail = false
	require.NoError(t, sink.Flush(ctx))
	assert.Len(t, fake.objects, 1)
}

func TestS3Sink_EmptyFlushIsNoop(t *testing.T) {
	sink, fake := newFakeS3Sink(t, 10)
	require.NoError(t, sink.Flush(context.Background()))
	assert.Empty(t, fake.objects)
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	_, err := NewS3Sink(nil, S3Config{})
	assert.Error(t, err)
}
