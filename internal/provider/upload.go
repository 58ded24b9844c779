package provider

import (
	"fmt"
	"mime/multipart"
	"strings"
)

// FileUpload is the multipart payload for file-upload requests. Passing a
// *FileUpload to Request bypasses JSON encoding entirely: the body is built
// as multipart/form-data with the field parts first and the file part last.
type FileUpload struct {
	Filename string
	Content  []byte
	// Fields are plain form fields sent alongside the file,
	// e.g. {"purpose": "assistants"}.
	Fields map[string]string
}

// encode builds the multipart body and returns it with its content type
// (which carries the generated boundary).
func (u *FileUpload) encode() ([]byte, string, error) {
	if u.Filename == "" {
		return nil, "", fmt.Errorf("file upload requires a filename")
	}

	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	for name, value := range u.Fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	part, err := w.CreateFormFile("file", u.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(u.Content); err != nil {
		return nil, "", fmt.Errorf("write file content: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return []byte(buf.String()), w.FormDataContentType(), nil
}
