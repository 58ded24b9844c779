package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureVectorStoreFindsExisting(t *testing.T) {
	var created bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/vector_stores":
			_, _ = w.Write([]byte(`{"data":[{"id":"vs_old","name":"glossary"},{"id":"vs_docs","name":"docs"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/vector_stores":
			created = true
			_, _ = w.Write([]byte(`{"id":"vs_new","name":"docs"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"no route"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Sleeper: &fakeSleeper{}})
	id, err := c.EnsureVectorStore(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, "vs_docs", id)
	assert.False(t, created, "existing store must not be recreated")
}

func TestEnsureVectorStoreCreatesMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		assert.Equal(t, "docs", payload["name"])
		_, _ = w.Write([]byte(`{"id":"vs_created","name":"docs"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Sleeper: &fakeSleeper{}})
	id, err := c.EnsureVectorStore(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, "vs_created", id)
}

func TestUploadAttachDetachDelete(t *testing.T) {
	var gotAttach map[string]any
	var detached, deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "assistants", r.FormValue("purpose"))
			_, _ = w.Write([]byte(`{"id":"file-abc"}`))
		case r.Method == http.MethodPost && r.URL.Path == "/vector_stores/vs_1/files":
			_ = json.NewDecoder(r.Body).Decode(&gotAttach)
			_, _ = w.Write([]byte(`{"id":"file-abc","status":"completed"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/vector_stores/vs_1/files/file-abc":
			detached = "file-abc"
			_, _ = w.Write([]byte(`{"id":"file-abc","deleted":true}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/files/file-abc":
			deleted = "file-abc"
			_, _ = w.Write([]byte(`{"id":"file-abc","deleted":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"no route"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Sleeper: &fakeSleeper{}})
	ctx := context.Background()

	fileID, err := c.UploadFile(ctx, "item.md", []byte("content"))
	require.NoError(t, err)
	assert.Equal(t, "file-abc", fileID)

	require.NoError(t, c.AttachFile(ctx, "vs_1", fileID))
	assert.Equal(t, "file-abc", gotAttach["file_id"])

	require.NoError(t, c.DetachFile(ctx, "vs_1", fileID))
	assert.Equal(t, "file-abc", detached)

	require.NoError(t, c.DeleteFile(ctx, fileID))
	assert.Equal(t, "file-abc", deleted)
}

func TestFileStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/vector_stores/vs_1/files/file-abc", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"file-abc","status":"failed","last_error":{"message":"unsupported format"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Sleeper: &fakeSleeper{}})
	status, lastErr, err := c.FileStatus(context.Background(), "vs_1", "file-abc")
	require.NoError(t, err)
	assert.Equal(t, "failed", status)
	assert.Equal(t, "unsupported format", lastErr)
}
