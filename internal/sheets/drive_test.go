package sheets

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "mimeType='application/vnd.google-apps.spreadsheet'", q.Get("q"))
		assert.Equal(t, "modifiedTime desc", q.Get("orderBy"))
		assert.Equal(t, "50", q.Get("pageSize"))
		assert.Contains(t, q.Get("fields"), "capabilities")

		w.Write([]byte(`{"files":[
			{"id":"a","name":"Khata - Shop","mimeType":"application/vnd.google-apps.spreadsheet",
			 "modifiedTime":"2026-02-01T10:00:00Z","webViewLink":"https://example.com/a",
			 "owners":[{"displayName":"Me","me":true}],
			 "capabilities":{"canEdit":true,"canComment":true}},
			{"id":"b","name":"Partner Book","shared":true,
			 "owners":[{"displayName":"Partner","me":false}],
			 "capabilities":{"canEdit":false,"canComment":true},
			 "sharingUser":{"displayName":"Partner"}}
		]}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	files, err := c.ListFiles(context.Background(), "mimeType='application/vnd.google-apps.spreadsheet'", 50)
	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "a", files[0].ID)
	assert.True(t, files[0].OwnedByMe)
	assert.True(t, files[0].CanEdit)
	assert.Equal(t, time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC), files[0].ModifiedAt)
	assert.Equal(t, "https://example.com/a", files[0].WebViewLink)

	assert.False(t, files[1].OwnedByMe)
	assert.False(t, files[1].CanEdit)
	assert.True(t, files[1].CanComment)
	assert.True(t, files[1].Shared)
	assert.Equal(t, "Partner", files[1].SharedBy)
	assert.True(t, files[1].ModifiedAt.IsZero(), "missing timestamp stays zero")
}

func TestGetFile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	_, err := c.GetFile(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateFolder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var meta fileMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "Khata Book Data", meta.Name)
		assert.Equal(t, MimeFolder, meta.MimeType)

		w.Write([]byte(`{"id":"folder1"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	id, err := c.CreateFolder(context.Background(), "Khata Book Data")
	require.NoError(t, err)
	assert.Equal(t, "folder1", id)
}

func TestCopyFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/files/doc1/copy")

		var meta fileMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "Backup - today", meta.Name)

		w.Write([]byte(`{"id":"doc1-copy"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	id, err := c.CopyFile(context.Background(), "doc1", "Backup - today")
	require.NoError(t, err)
	assert.Equal(t, "doc1-copy", id)
}

func TestRenameFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		var meta fileMetadata
		require.NoError(t, json.NewDecoder(r.Body).Decode(&meta))
		assert.Equal(t, "New Name", meta.Name)
		assert.Empty(t, meta.MimeType, "rename must not touch the type")

		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))
	require.NoError(t, c.RenameFile(context.Background(), "doc1", "New Name"))
}

func TestDeleteFile(t *testing.T) {
	var gotMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))
	require.NoError(t, c.DeleteFile(context.Background(), "doc1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

// parseMultipart splits a multipart/related request into its raw parts.
func parseMultipart(t *testing.T, r *http.Request) [][]byte {
	t.Helper()

	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	require.NoError(t, err)

	mr := multipart.NewReader(r.Body, params["boundary"])

	var parts [][]byte

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)

		data, err := io.ReadAll(part)
		require.NoError(t, err)
		parts = append(parts, data)
	}

	return parts
}

func TestUploadJSON_Create(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		parts := parseMultipart(t, r)
		require.Len(t, parts, 2)

		var meta fileMetadata
		require.NoError(t, json.Unmarshal(parts[0], &meta))
		assert.Equal(t, "khata_backup.json", meta.Name)
		assert.Equal(t, MimeJSON, meta.MimeType)
		assert.Equal(t, []string{"folder1"}, meta.Parents)

		assert.JSONEq(t, `{"k":"v"}`, string(parts[1]))

		w.Write([]byte(`{"id":"file1"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	id, err := c.UploadJSON(context.Background(), "", "khata_backup.json", "folder1", []byte(`{"k":"v"}`))
	require.NoError(t, err)
	assert.Equal(t, "file1", id)
}

func TestUploadJSON_Update(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Contains(t, r.URL.Path, "/files/file1")

		parts := parseMultipart(t, r)
		require.Len(t, parts, 2)

		var meta fileMetadata
		require.NoError(t, json.Unmarshal(parts[0], &meta))
		assert.Empty(t, meta.Parents, "updates must not re-parent the file")

		w.Write([]byte(`{"id":"file1"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	id, err := c.UploadJSON(context.Background(), "file1", "khata_backup.json", "folder1", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "file1", id)
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		w.Write([]byte(`{"version":"2.0.0"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	data, err := c.Download(context.Background(), "file1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"2.0.0"}`, string(data))
}

func TestFilePermission(t *testing.T) {
	tests := []struct {
		name string
		file File
		want Permission
	}{
		{"owner", File{OwnedByMe: true}, PermissionOwner},
		{"owner beats edit flag", File{OwnedByMe: true, CanEdit: true}, PermissionOwner},
		{"editor", File{CanEdit: true, CanComment: true}, PermissionEditor},
		{"commenter", File{CanComment: true}, PermissionCommenter},
		{"viewer", File{}, PermissionViewer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.file.Permission())
		})
	}
}

func TestFileEditable(t *testing.T) {
	assert.True(t, (&File{OwnedByMe: true}).Editable())
	assert.True(t, (&File{CanEdit: true}).Editable())
	assert.False(t, (&File{CanComment: true}).Editable())
	assert.False(t, (&File{}).Editable())
}
