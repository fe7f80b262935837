package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Well-known MIME types in the Drive API.
const (
	MimeFolder      = "application/vnd.google-apps.folder"
	MimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	MimeJSON        = "application/json"
)

// fileFields is the projection requested on every file read. Keeping one
// projection means fileResponse always decodes the same shape.
const fileFields = "id,name,mimeType,createdTime,modifiedTime,webViewLink,shared,owners(displayName,me),capabilities(canEdit,canComment),sharingUser(displayName)"

// fileResponse mirrors the Drive API file JSON.
// Unexported — callers use File via toFile() normalization.
type fileResponse struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	MimeType     string      `json:"mimeType"`
	CreatedTime  string      `json:"createdTime"`
	ModifiedTime string      `json:"modifiedTime"`
	WebViewLink  string      `json:"webViewLink"`
	Shared       bool        `json:"shared"`
	Owners       []ownerInfo `json:"owners"`
	Capabilities *capsInfo   `json:"capabilities"`
	SharingUser  *ownerInfo  `json:"sharingUser"`
}

type ownerInfo struct {
	DisplayName string `json:"displayName"`
	Me          bool   `json:"me"`
}

type capsInfo struct {
	CanEdit    bool `json:"canEdit"`
	CanComment bool `json:"canComment"`
}

type fileListResponse struct {
	Files []fileResponse `json:"files"`
}

// toFile normalizes a Drive API file response into our File type.
// Timestamps that fail to parse are left as zero values.
func (f *fileResponse) toFile() File {
	out := File{
		ID:          f.ID,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Shared:      f.Shared,
		WebViewLink: f.WebViewLink,
	}

	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		out.CreatedAt = t
	}

	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		out.ModifiedAt = t
	}

	for _, o := range f.Owners {
		if o.Me {
			out.OwnedByMe = true
		}
	}

	if f.Capabilities != nil {
		out.CanEdit = f.Capabilities.CanEdit
		out.CanComment = f.Capabilities.CanComment
	}

	if f.SharingUser != nil {
		out.SharedBy = f.SharingUser.DisplayName
	}

	return out
}

// ListFiles runs a Drive files.list query and returns the normalized files,
// ordered most recently modified first.
func (c *Client) ListFiles(ctx context.Context, query string, pageSize int) ([]File, error) {
	c.logger.Debug("listing files",
		slog.String("query", query),
		slog.Int("page_size", pageSize),
	)

	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", "files("+fileFields+")")
	params.Set("orderBy", "modifiedTime desc")
	params.Set("pageSize", fmt.Sprint(pageSize))

	resp, err := c.do(ctx, http.MethodGet, c.urls.Drive+"/files?"+params.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var flr fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&flr); err != nil {
		return nil, fmt.Errorf("sheets: decoding file list: %w", err)
	}

	files := make([]File, 0, len(flr.Files))
	for i := range flr.Files {
		files = append(files, flr.Files[i].toFile())
	}

	c.logger.Debug("listed files", slog.Int("count", len(files)))

	return files, nil
}

// GetFile fetches metadata for one file by ID.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	u := fmt.Sprintf("%s/files/%s?fields=%s",
		c.urls.Drive, url.PathEscape(fileID), url.QueryEscape(fileFields))

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var fr fileResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("sheets: decoding file response: %w", err)
	}

	file := fr.toFile()

	return &file, nil
}

// fileMetadata is the request body for file creation and update calls.
type fileMetadata struct {
	Name     string   `json:"name,omitempty"`
	MimeType string   `json:"mimeType,omitempty"`
	Parents  []string `json:"parents,omitempty"`
}

// CreateFolder creates a folder with the given name and returns its ID.
func (c *Client) CreateFolder(ctx context.Context, name string) (string, error) {
	c.logger.Info("creating folder", slog.String("name", name))

	body, err := json.Marshal(fileMetadata{Name: name, MimeType: MimeFolder})
	if err != nil {
		return "", fmt.Errorf("sheets: encoding folder metadata: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.urls.Drive+"/files?fields=id", contentTypeJSON, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("sheets: decoding folder response: %w", err)
	}

	return created.ID, nil
}

// CopyFile copies a file under a new name and returns the copy's ID.
func (c *Client) CopyFile(ctx context.Context, fileID, newName string) (string, error) {
	c.logger.Info("copying file",
		slog.String("file_id", fileID),
		slog.String("new_name", newName),
	)

	body, err := json.Marshal(fileMetadata{Name: newName})
	if err != nil {
		return "", fmt.Errorf("sheets: encoding copy metadata: %w", err)
	}

	u := fmt.Sprintf("%s/files/%s/copy?fields=id", c.urls.Drive, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodPost, u, contentTypeJSON, body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var copied struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&copied); err != nil {
		return "", fmt.Errorf("sheets: decoding copy response: %w", err)
	}

	return copied.ID, nil
}

// RenameFile updates a file's name.
func (c *Client) RenameFile(ctx context.Context, fileID, newName string) error {
	c.logger.Info("renaming file",
		slog.String("file_id", fileID),
		slog.String("new_name", newName),
	)

	body, err := json.Marshal(fileMetadata{Name: newName})
	if err != nil {
		return fmt.Errorf("sheets: encoding rename metadata: %w", err)
	}

	u := fmt.Sprintf("%s/files/%s", c.urls.Drive, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodPatch, u, contentTypeJSON, body)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

// DeleteFile permanently removes a file or folder.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.logger.Info("deleting file", slog.String("file_id", fileID))

	u := fmt.Sprintf("%s/files/%s", c.urls.Drive, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodDelete, u, "", nil)
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}

// UploadJSON uploads JSON content as a Drive file via a multipart request.
// When fileID is empty a new file named name is created under parentID;
// otherwise the existing file's content is replaced. Returns the file ID.
func (c *Client) UploadJSON(ctx context.Context, fileID, name, parentID string, content []byte) (string, error) {
	meta := fileMetadata{Name: name, MimeType: MimeJSON}
	if fileID == "" {
		meta.Parents = []string{parentID}
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("sheets: encoding upload metadata: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeMultipartBody(mw, metaJSON, content); err != nil {
		return "", err
	}

	method := http.MethodPost
	u := c.urls.Upload + "/files?uploadType=multipart"

	if fileID != "" {
		method = http.MethodPatch
		u = fmt.Sprintf("%s/files/%s?uploadType=multipart", c.urls.Upload, url.PathEscape(fileID))
	}

	c.logger.Info("uploading file content",
		slog.String("name", name),
		slog.Bool("update", fileID != ""),
	)

	contentType := "multipart/related; boundary=" + mw.Boundary()

	resp, err := c.do(ctx, method, u, contentType, buf.Bytes())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return "", fmt.Errorf("sheets: decoding upload response: %w", err)
	}

	return uploaded.ID, nil
}

// writeMultipartBody writes the two-part metadata + media body of a
// multipart upload.
func writeMultipartBody(mw *multipart.Writer, metaJSON, content []byte) error {
	metaHeader := make(map[string][]string)
	metaHeader["Content-Type"] = []string{contentTypeJSON}

	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return fmt.Errorf("sheets: creating metadata part: %w", err)
	}

	if _, err := part.Write(metaJSON); err != nil {
		return fmt.Errorf("sheets: writing metadata part: %w", err)
	}

	mediaHeader := make(map[string][]string)
	mediaHeader["Content-Type"] = []string{contentTypeJSON}

	part, err = mw.CreatePart(mediaHeader)
	if err != nil {
		return fmt.Errorf("sheets: creating media part: %w", err)
	}

	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("sheets: writing media part: %w", err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("sheets: finalizing multipart body: %w", err)
	}

	return nil
}

// Download returns the raw content of a file.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	c.logger.Debug("downloading file", slog.String("file_id", fileID))

	u := fmt.Sprintf("%s/files/%s?alt=media", c.urls.Drive, url.PathEscape(fileID))

	resp, err := c.do(ctx, http.MethodGet, u, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheets: reading download body: %w", err)
	}

	return data, nil
}
