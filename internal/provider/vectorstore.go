package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// vectorStore is the provider-side store object, reduced to what we use.
type vectorStore struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type vectorStoreList struct {
	Data []vectorStore `json:"data"`
}

type fileObject struct {
	ID string `json:"id"`
}

type deletionStatus struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// EnsureVectorStore returns the id of the store with the given name,
// creating it if absent. Idempotent: repeated calls converge on the same id.
func (c *Client) EnsureVectorStore(ctx context.Context, name string) (string, error) {
	resp, err := c.Request(ctx, http.MethodGet, "/vector_stores?limit=100", nil, PurposeStore)
	if err != nil {
		return "", fmt.Errorf("list vector stores: %w", err)
	}
	var list vectorStoreList
	if err := resp.Decode(&list); err != nil {
		return "", err
	}
	for _, vs := range list.Data {
		if vs.Name == name {
			return vs.ID, nil
		}
	}

	resp, err = c.Request(ctx, http.MethodPost, "/vector_stores", map[string]any{"name": name}, PurposeStore)
	if err != nil {
		return "", fmt.Errorf("create vector store %q: %w", name, err)
	}
	var created vectorStore
	if err := resp.Decode(&created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UploadFile uploads file content for assistant/vector-store use and returns
// the remote file id.
func (c *Client) UploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	upload := &FileUpload{
		Filename: filename,
		Content:  content,
		Fields:   map[string]string{"purpose": "assistants"},
	}
	resp, err := c.Request(ctx, http.MethodPost, "/files", upload, PurposeUpload)
	if err != nil {
		return "", fmt.Errorf("upload file %q: %w", filename, err)
	}
	var f fileObject
	if err := resp.Decode(&f); err != nil {
		return "", err
	}
	return f.ID, nil
}

// AttachFile adds an uploaded file to a vector store for indexing.
func (c *Client) AttachFile(ctx context.Context, storeID, fileID string) error {
	endpoint := fmt.Sprintf("/vector_stores/%s/files", url.PathEscape(storeID))
	_, err := c.Request(ctx, http.MethodPost, endpoint, map[string]any{"file_id": fileID}, PurposeStore)
	if err != nil {
		return fmt.Errorf("attach file %s to store %s: %w", fileID, storeID, err)
	}
	return nil
}

// FileStatus reports the indexing status of a file within a vector store
// (in_progress, completed, failed or cancelled) and the failure message, if
// any.
func (c *Client) FileStatus(ctx context.Context, storeID, fileID string) (string, string, error) {
	endpoint := fmt.Sprintf("/vector_stores/%s/files/%s", url.PathEscape(storeID), url.PathEscape(fileID))
	resp, err := c.Request(ctx, http.MethodGet, endpoint, nil, PurposeStore)
	if err != nil {
		return "", "", fmt.Errorf("file status %s in store %s: %w", fileID, storeID, err)
	}
	var f struct {
		Status    string `json:"status"`
		LastError *struct {
			Message string `json:"message"`
		} `json:"last_error"`
	}
	if err := resp.Decode(&f); err != nil {
		return "", "", err
	}
	var lastErr string
	if f.LastError != nil {
		lastErr = f.LastError.Message
	}
	return f.Status, lastErr, nil
}

// DetachFile removes a file from a vector store without deleting the file
// object itself.
func (c *Client) DetachFile(ctx context.Context, storeID, fileID string) error {
	endpoint := fmt.Sprintf("/vector_stores/%s/files/%s", url.PathEscape(storeID), url.PathEscape(fileID))
	_, err := c.Request(ctx, http.MethodDelete, endpoint, nil, PurposeStore)
	if err != nil {
		return fmt.Errorf("detach file %s from store %s: %w", fileID, storeID, err)
	}
	return nil
}

// DeleteFile deletes the remote file object.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	endpoint := fmt.Sprintf("/files/%s", url.PathEscape(fileID))
	resp, err := c.Request(ctx, http.MethodDelete, endpoint, nil, PurposeFiles)
	if err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	var st deletionStatus
	if err := resp.Decode(&st); err != nil {
		return err
	}
	if !st.Deleted {
		return fmt.Errorf("delete file %s: provider reported not deleted", fileID)
	}
	return nil
}
