package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mahipat62/khata-book/internal/sheets"
)

// DriveClient is the remote file surface the engine needs.
type DriveClient interface {
	ListFiles(ctx context.Context, query string, pageSize int) ([]sheets.File, error)
	CreateFolder(ctx context.Context, name string) (string, error)
	UploadJSON(ctx context.Context, fileID, name, parentID string, content []byte) (string, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// ErrNoBackup is returned by Load when no remote backup file exists yet.
var ErrNoBackup = errors.New("backup: no remote backup found")

// Engine stores and retrieves the backup envelope in a dedicated remote
// folder. The folder and the backup file are each created on first use and
// reused afterwards, so repeated saves update a single file in place.
type Engine struct {
	client   DriveClient
	appName  string
	folder   string
	fileName string
	logger   *slog.Logger

	nowFunc func() time.Time
}

// NewEngine creates an Engine writing fileName inside folderName.
func NewEngine(client DriveClient, appName, folderName, fileName string, logger *slog.Logger) *Engine {
	return &Engine{
		client:   client,
		appName:  appName,
		folder:   folderName,
		fileName: fileName,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// Container returns the ID of the backup folder, creating it when absent.
// When duplicates exist the most recently modified one wins.
func (e *Engine) Container(ctx context.Context) (string, error) {
	query := fmt.Sprintf(
		"mimeType='%s' and trashed=false and name='%s'",
		sheets.MimeFolder, e.folder,
	)

	found, err := e.client.ListFiles(ctx, query, 10)
	if err != nil {
		return "", fmt.Errorf("backup: looking up folder: %w", err)
	}

	if len(found) > 0 {
		return found[0].ID, nil
	}

	id, err := e.client.CreateFolder(ctx, e.folder)
	if err != nil {
		return "", fmt.Errorf("backup: creating folder: %w", err)
	}

	e.logger.Info("backup folder created", slog.String("folder_id", id))

	return id, nil
}

// Save wraps payload in an envelope and writes it to the remote backup
// file, creating folder and file as needed. Returns the file ID.
func (e *Engine) Save(ctx context.Context, payload any) (string, error) {
	content, err := Export(e.appName, payload, e.nowFunc())
	if err != nil {
		return "", err
	}

	folderID, err := e.Container(ctx)
	if err != nil {
		return "", err
	}

	existingID, err := e.findFile(ctx, folderID)
	if err != nil {
		return "", err
	}

	fileID, err := e.client.UploadJSON(ctx, existingID, e.fileName, folderID, content)
	if err != nil {
		return "", fmt.Errorf("backup: uploading: %w", err)
	}

	e.logger.Info("backup saved",
		slog.String("file_id", fileID),
		slog.Int("bytes", len(content)),
	)

	return fileID, nil
}

// Load downloads and parses the remote backup envelope. Returns ErrNoBackup
// when neither the folder nor the file exists yet.
func (e *Engine) Load(ctx context.Context) (*Envelope, error) {
	folderID, err := e.Container(ctx)
	if err != nil {
		return nil, err
	}

	fileID, err := e.findFile(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if fileID == "" {
		return nil, ErrNoBackup
	}

	raw, err := e.client.Download(ctx, fileID)
	if err != nil {
		if errors.Is(err, sheets.ErrNotFound) {
			return nil, ErrNoBackup
		}

		return nil, fmt.Errorf("backup: downloading: %w", err)
	}

	return Import(raw)
}

// findFile returns the ID of the backup file inside folderID, or "" when it
// does not exist.
func (e *Engine) findFile(ctx context.Context, folderID string) (string, error) {
	query := fmt.Sprintf(
		"name='%s' and '%s' in parents and trashed=false",
		e.fileName, folderID,
	)

	found, err := e.client.ListFiles(ctx, query, 10)
	if err != nil {
		return "", fmt.Errorf("backup: looking up file: %w", err)
	}

	if len(found) == 0 {
		return "", nil
	}

	return found[0].ID, nil
}
