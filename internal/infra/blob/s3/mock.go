package s3

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewMockForTests returns a Store backed by an in-process S3 endpoint. It
// lives outside the test files so other packages can exercise the s3 driver
// without network access or credentials.
func NewMockForTests(bucket string) *Store {
	if bucket == "" {
		bucket = "growcore-archive"
	}
	rt := &mockRoundTripper{bucket: bucket, objects: map[string]mockObject{}}
	cfg := aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIAMOCK", "SECRETMOCK", ""),
		HTTPClient:  &http.Client{Transport: rt},
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return &Store{client: client, bucket: bucket, presign: s3.NewPresignClient(client)}
}

type mockObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
	etag        string
	modified    time.Time
}

type mockRoundTripper struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]mockObject
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.objectKey(req)
	switch {
	case req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2":
		return m.listResponse(req), nil
	case req.Method == http.MethodHead:
		obj, ok := m.objects[key]
		if !ok {
			return statusResponse(req, http.StatusNotFound), nil
		}
		return m.objectResponse(req, obj, false), nil
	case req.Method == http.MethodGet:
		obj, ok := m.objects[key]
		if !ok {
			return statusResponse(req, http.StatusNotFound), nil
		}
		return m.objectResponse(req, obj, true), nil
	case req.Method == http.MethodPut:
		obj := m.readObject(req)
		m.objects[key] = obj
		resp := statusResponse(req, http.StatusOK)
		resp.Header.Set("ETag", fmt.Sprintf("%q", obj.etag))
		return resp, nil
	case req.Method == http.MethodDelete:
		delete(m.objects, key)
		return statusResponse(req, http.StatusNoContent), nil
	}
	return statusResponse(req, http.StatusNotImplemented), nil
}

func (m *mockRoundTripper) objectKey(req *http.Request) string {
	path := strings.TrimPrefix(req.URL.Path, "/")
	path = strings.TrimPrefix(path, m.bucket)
	return strings.TrimPrefix(path, "/")
}

func (m *mockRoundTripper) readObject(req *http.Request) mockObject {
	var data []byte
	if req.Body != nil {
		data, _ = io.ReadAll(req.Body)
	}
	if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
		data = decodeAwsChunked(data)
	}
	metadata := map[string]string{}
	for name, vals := range req.Header {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-amz-meta-") && len(vals) > 0 {
			metadata[strings.TrimPrefix(lower, "x-amz-meta-")] = vals[0]
		}
	}
	return mockObject{
		data:        data,
		contentType: req.Header.Get("Content-Type"),
		metadata:    metadata,
		etag:        fmt.Sprintf("%x", sha256.Sum256(data)),
		modified:    time.Now().UTC(),
	}
}

func (m *mockRoundTripper) objectResponse(req *http.Request, obj mockObject, includeBody bool) *http.Response {
	resp := statusResponse(req, http.StatusOK)
	resp.Header.Set("Content-Length", strconv.Itoa(len(obj.data)))
	resp.Header.Set("ETag", fmt.Sprintf("%q", obj.etag))
	resp.Header.Set("Last-Modified", obj.modified.Format(http.TimeFormat))
	if obj.contentType != "" {
		resp.Header.Set("Content-Type", obj.contentType)
	}
	for k, v := range obj.metadata {
		resp.Header.Set("X-Amz-Meta-"+k, v)
	}
	if includeBody {
		resp.Body = io.NopCloser(bytes.NewReader(obj.data))
		resp.ContentLength = int64(len(obj.data))
	}
	return resp
}

func (m *mockRoundTripper) listResponse(req *http.Request) *http.Response {
	prefix := req.URL.Query().Get("prefix")
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", m.bucket, prefix, len(keys))
	for _, k := range keys {
		obj := m.objects[k]
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified><ETag>&quot;%s&quot;</ETag></Contents>",
			k, len(obj.data), obj.modified.UTC().Format(time.RFC3339), obj.etag)
	}
	b.WriteString("</ListBucketResult>")
	resp := statusResponse(req, http.StatusOK)
	resp.Header.Set("Content-Type", "application/xml")
	resp.Body = io.NopCloser(strings.NewReader(b.String()))
	return resp
}

func statusResponse(req *http.Request, status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}
}

// decodeAwsChunked strips the aws-chunked transfer framing the SDK applies to
// streaming uploads: hex-size lines with chunk signatures interleaved with
// the payload bytes.
func decodeAwsChunked(body []byte) []byte {
	var out []byte
	rest := body
	for {
		idx := bytes.Index(rest, []byte("\r\n"))
		if idx < 0 {
			break
		}
		header := string(rest[:idx])
		rest = rest[idx+2:]
		if semi := strings.Index(header, ";"); semi >= 0 {
			header = header[:semi]
		}
		size, err := strconv.ParseInt(strings.TrimSpace(header), 16, 64)
		if err != nil || size <= 0 {
			break
		}
		if int64(len(rest)) < size {
			break
		}
		out = append(out, rest[:size]...)
		rest = rest[size:]
		rest = bytes.TrimPrefix(rest, []byte("\r\n"))
	}
	return out
}
