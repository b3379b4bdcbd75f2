package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/imamik/edgeforge/internal/util/retry"
)

// testClient creates a Client backed by a test HTTP server.
// The handler receives real S3 XML-protocol requests.
func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)

	client := s3.New(s3.Options{
		Region:       "eu-west-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test-key", "test-secret", ""),
		Retryer:      aws.NopRetryer{},
		HTTPClient: &http.Client{
			Transport: &http.Transport{},
		},
	})

	return &Client{s3: client}, server
}

// xmlResponse is a helper to write S3-style XML responses.
func xmlResponse(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}

func TestExists_True(t *testing.T) {
	t.Parallel()

	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			gotPath = r.URL.Path
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(404)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	exists, err := client.Exists(context.Background(), "s3://mlops-bucket/packaged/model-1.0.1.tar.gz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !exists {
		t.Fatal("expected object to exist")
	}
	if gotPath != "/mlops-bucket/packaged/model-1.0.1.tar.gz" {
		t.Errorf("unexpected request path %q", gotPath)
	}
}

func TestExists_False(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	exists, err := client.Exists(context.Background(), "s3://mlops-bucket/missing.tar.gz")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Fatal("expected object to not exist")
	}
}

func TestExists_InvalidURI(t *testing.T) {
	t.Parallel()
	client := &Client{}

	_, err := client.Exists(context.Background(), "https://example.com/x")
	if err == nil {
		t.Fatal("expected error for non-s3 uri")
	}
	if !retry.IsFatal(err) {
		t.Errorf("expected a fatal error, got %v", err)
	}
}

func TestExists_ServerErrorIsTransient(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(503)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	_, err := client.Exists(context.Background(), "s3://mlops-bucket/model.tar.gz")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !retry.IsTransient(err) {
		t.Errorf("expected a transient error, got %v", err)
	}
}

func TestBucketExists_OtherError(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(403)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	_, err := client.BucketExists(context.Background(), "test-bucket")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !strings.Contains(err.Error(), "failed to check bucket test-bucket") {
		t.Errorf("unexpected error message: %v", err)
	}
	if !retry.IsFatal(err) {
		t.Errorf("expected access denied to be fatal, got %v", err)
	}
}

func TestPutObject_Success(t *testing.T) {
	t.Parallel()

	var capturedBody []byte
	var mu sync.Mutex

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			mu.Lock()
			body, _ := io.ReadAll(r.Body)
			capturedBody = body
			mu.Unlock()
			w.WriteHeader(200)
			return
		}
		w.WriteHeader(404)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	data := []byte(`{"executionId":"run-1"}`)
	err := client.PutObject(context.Background(), "state-bucket", "checkpoints/run-1.json", data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !bytes.Equal(capturedBody, data) {
		t.Errorf("expected body %q, got %q", data, capturedBody)
	}
}

func TestPutObject_Error(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xmlResponse(w, 500, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>InternalError</Code>
  <Message>Internal Error</Message>
</Error>`)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	err := client.PutObject(context.Background(), "test-bucket", "test-key", []byte("data"))
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !strings.Contains(err.Error(), "failed to put object test-key in bucket test-bucket") {
		t.Errorf("unexpected error message: %v", err)
	}
	if !retry.IsTransient(err) {
		t.Errorf("expected internal error to be transient, got %v", err)
	}
}

func TestGetObject_Success(t *testing.T) {
	t.Parallel()

	expectedData := []byte("object content here")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(expectedData)))
			w.WriteHeader(200)
			_, _ = w.Write(expectedData)
			return
		}
		w.WriteHeader(404)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	data, err := client.GetObject(context.Background(), "test-bucket", "test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(data, expectedData) {
		t.Errorf("expected %q, got %q", expectedData, data)
	}
}

func TestGetObject_NotFound(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		xmlResponse(w, 404, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>NoSuchKey</Code>
  <Message>The specified key does not exist.</Message>
</Error>`)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	_, err := client.GetObject(context.Background(), "test-bucket", "missing-key")
	if err == nil {
		t.Fatal("expected error but got nil")
	}
	if !IsNotFound(err) {
		t.Errorf("expected not found error, got %v", err)
	}
	if !retry.IsFatal(err) {
		t.Errorf("expected missing key to be fatal, got %v", err)
	}
}

func TestListObjects_Paginates(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("continuation-token") == "" {
			xmlResponse(w, 200, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <Name>state-bucket</Name>
  <Prefix>checkpoints/</Prefix>
  <IsTruncated>true</IsTruncated>
  <NextContinuationToken>page-2</NextContinuationToken>
  <Contents><Key>checkpoints/a.json</Key></Contents>
</ListBucketResult>`)
			return
		}
		xmlResponse(w, 200, `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult>
  <Name>state-bucket</Name>
  <Prefix>checkpoints/</Prefix>
  <IsTruncated>false</IsTruncated>
  <Contents><Key>checkpoints/b.json</Key></Contents>
</ListBucketResult>`)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	keys, err := client.ListObjects(context.Background(), "state-bucket", "checkpoints/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "checkpoints/a.json" || keys[1] != "checkpoints/b.json" {
		t.Errorf("unexpected keys %v", keys)
	}
}

func TestDeleteObject_Success(t *testing.T) {
	t.Parallel()

	var method string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(204)
	})

	client, server := testClient(t, handler)
	defer server.Close()

	if err := client.DeleteObject(context.Background(), "state-bucket", "checkpoints/a.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", method)
	}
}
