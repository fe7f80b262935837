// Package store maps logical records onto row ranges of a backing document
// and tracks a per-document sync state. Every mutation finishes with a full
// reload: the store never merges rows locally, so the remote document stays
// the single source of truth even under concurrent external edits. The cost
// is one full read per mutation, acceptable at ledger scale.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mahipat62/khata-book/internal/kvstore"
	"github.com/mahipat62/khata-book/internal/schema"
	"github.com/mahipat62/khata-book/internal/sheets"
)

// dataRange spans every data column of the records tab.
const dataRange = schema.RecordsTab + "!A:Z"

// headerRowIndex is the 1-based row of the header within the records tab.
const headerRowIndex = 1

// APIClient is the slice of the sheets client the store consumes.
type APIClient interface {
	ReadRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	UpdateRange(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error
	AppendRange(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error
	SpreadsheetMeta(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error)
	CreateSpreadsheet(ctx context.Context, title string, tabs []sheets.TabSpec) (*sheets.Spreadsheet, error)
	DeleteRows(ctx context.Context, spreadsheetID string, tabID, startRow, endRow int64) error
	FormatHeaderRow(ctx context.Context, spreadsheetID string, tabID int64) error
	ListFiles(ctx context.Context, query string, pageSize int) ([]sheets.File, error)
	GetFile(ctx context.Context, fileID string) (*sheets.File, error)
	CopyFile(ctx context.Context, fileID, newName string) (string, error)
	RenameFile(ctx context.Context, fileID, newName string) error
	DeleteFile(ctx context.Context, fileID string) error
}

// SyncState tracks where a loaded document stands relative to the remote.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncSyncing
	SyncSynced
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncSyncing:
		return "syncing"
	case SyncSynced:
		return "synced"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// Record is a view over one row of the backing document: column name to
// cell value, plus the row's 1-based position within the grid (header row
// included in the numbering).
type Record struct {
	Fields   map[string]string
	Position int64
}

// documentState is the in-memory snapshot for one loaded document. On a
// failed operation the previous records are kept as the last-known-good
// snapshot.
type documentState struct {
	title   string
	tabID   int64
	schema  schema.Schema
	headers []string
	records []Record
	sync    SyncState
	lastErr string
}

// Store is the record-store CRUD engine.
type Store struct {
	client   APIClient
	resolver *schema.Resolver
	kv       kvstore.Store
	prefix   string
	logger   *slog.Logger

	mu    sync.Mutex
	docs  map[string]*documentState
	books []Book
}

// New creates a Store. prefix is the document name prefix used when
// creating and discovering books. kv persists the linked-document list.
func New(client APIClient, resolver *schema.Resolver, kv kvstore.Store, prefix string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		client:   client,
		resolver: resolver,
		kv:       kv,
		prefix:   prefix,
		logger:   logger,
		docs:     make(map[string]*documentState),
	}
}

// List reads the document's metadata, resolves its schema, and loads the
// full data range. On success the in-memory snapshot is replaced and the
// sync state becomes synced; on failure the state becomes error and the
// previous snapshot is left untouched.
func (s *Store) List(ctx context.Context, documentID string) ([]Record, error) {
	s.setSync(documentID, SyncSyncing)

	records, err := s.load(ctx, documentID)
	if err != nil {
		s.setError(documentID, err)
		return nil, err
	}

	s.setSync(documentID, SyncSynced)

	return records, nil
}

// load performs the actual metadata + schema + data read and refreshes the
// document snapshot.
func (s *Store) load(ctx context.Context, documentID string) ([]Record, error) {
	meta, err := s.client.SpreadsheetMeta(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: reading document metadata: %w", err)
	}

	sch, err := s.resolver.Resolve(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: resolving schema: %w", err)
	}

	rows, err := s.client.ReadRange(ctx, documentID, dataRange)
	if err != nil {
		return nil, fmt.Errorf("store: reading data range: %w", err)
	}

	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}

	// The header row is ground truth for value positions. A diverged stored
	// schema is replaced by header inference and logged.
	aligned, alignErr := schema.Align(sch, headers)
	if alignErr != nil {
		s.logger.Warn("stored schema diverges from header row, using headers",
			slog.String("document_id", documentID),
			slog.Int("schema_columns", len(sch)),
			slog.Int("header_columns", len(headers)),
		)
	}

	sch = aligned

	keys := headers
	if len(keys) == 0 {
		keys = sch.Names()
	}

	var dataRows [][]string
	if len(rows) > 1 {
		dataRows = rows[1:]
	}

	records := make([]Record, 0, len(dataRows))
	for offset, row := range dataRows {
		fields := make(map[string]string, len(keys))

		for i, key := range keys {
			if i < len(row) {
				fields[key] = row[i]
			} else {
				fields[key] = ""
			}
		}

		records = append(records, Record{
			Fields:   fields,
			Position: int64(headerRowIndex + 1 + offset),
		})
	}

	s.mu.Lock()
	doc := s.ensureLocked(documentID)
	doc.title = meta.Title
	doc.tabID = recordsTabID(meta)
	doc.schema = sch
	doc.headers = headers
	doc.records = records
	s.mu.Unlock()

	s.logger.Debug("loaded document",
		slog.String("document_id", documentID),
		slog.Int("records", len(records)),
	)

	return records, nil
}

// Add projects fields onto the schema's column order (missing fields become
// the empty string), appends one row after the last occupied row, then
// reloads. The reload — not a local merge — is what makes the new row
// visible.
func (s *Store) Add(ctx context.Context, documentID string, fields map[string]string) error {
	s.setSync(documentID, SyncSyncing)

	sch, err := s.schemaFor(ctx, documentID)
	if err != nil {
		s.setError(documentID, err)
		return err
	}

	row := projectRow(sch, fields)

	if err := s.client.AppendRange(ctx, documentID, dataRange, [][]string{row}); err != nil {
		err = fmt.Errorf("store: appending record: %w", err)
		s.setError(documentID, err)

		return err
	}

	return s.reload(ctx, documentID)
}

// Update overwrites exactly the row at position, spanning all schema
// columns, then reloads.
func (s *Store) Update(ctx context.Context, documentID string, position int64, fields map[string]string) error {
	if position <= headerRowIndex {
		return fmt.Errorf("store: row position %d is not a data row", position)
	}

	s.setSync(documentID, SyncSyncing)

	sch, err := s.schemaFor(ctx, documentID)
	if err != nil {
		s.setError(documentID, err)
		return err
	}

	row := projectRow(sch, fields)
	a1 := fmt.Sprintf("%s!A%d:%s%d", schema.RecordsTab, position, columnLetter(len(sch)), position)

	if err := s.client.UpdateRange(ctx, documentID, a1, [][]string{row}); err != nil {
		err = fmt.Errorf("store: updating record at row %d: %w", position, err)
		s.setError(documentID, err)

		return err
	}

	return s.reload(ctx, documentID)
}

// Delete structurally removes the row at position — subsequent rows shift
// up one — then reloads.
func (s *Store) Delete(ctx context.Context, documentID string, position int64) error {
	if position <= headerRowIndex {
		return fmt.Errorf("store: row position %d is not a data row", position)
	}

	s.setSync(documentID, SyncSyncing)

	meta, err := s.client.SpreadsheetMeta(ctx, documentID)
	if err != nil {
		err = fmt.Errorf("store: reading document metadata: %w", err)
		s.setError(documentID, err)

		return err
	}

	if err := s.client.DeleteRows(ctx, documentID, recordsTabID(meta), position-1, position); err != nil {
		err = fmt.Errorf("store: deleting record at row %d: %w", position, err)
		s.setError(documentID, err)

		return err
	}

	return s.reload(ctx, documentID)
}

// reload runs the post-mutation full refresh and finalizes the sync state.
func (s *Store) reload(ctx context.Context, documentID string) error {
	if _, err := s.load(ctx, documentID); err != nil {
		s.setError(documentID, err)
		return err
	}

	s.setSync(documentID, SyncSynced)

	return nil
}

// schemaFor resolves the schema a mutation projects against, preferring the
// loaded snapshot. The header row stays ground truth even when no snapshot
// exists: the resolved schema is aligned against the live headers before any
// row is written, so a diverged stored schema can never dictate value
// positions.
func (s *Store) schemaFor(ctx context.Context, documentID string) (schema.Schema, error) {
	var sch schema.Schema

	s.mu.Lock()
	if doc, ok := s.docs[documentID]; ok && len(doc.schema) > 0 {
		sch = doc.schema
	}
	s.mu.Unlock()

	if sch == nil {
		resolved, err := s.resolver.Resolve(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("store: resolving schema: %w", err)
		}

		sch = resolved
	}

	headers, err := s.resolver.Headers(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: reading header row: %w", err)
	}

	aligned, alignErr := schema.Align(sch, headers)
	if alignErr != nil {
		s.logger.Warn("stored schema diverges from header row, using headers",
			slog.String("document_id", documentID),
			slog.Int("schema_columns", len(sch)),
			slog.Int("header_columns", len(headers)),
		)
	}

	return aligned, nil
}

// Records returns the last loaded snapshot for a document.
func (s *Store) Records(documentID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[documentID]; ok {
		return doc.records
	}

	return nil
}

// Schema returns the schema of the last loaded snapshot, or nil.
func (s *Store) Schema(documentID string) schema.Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[documentID]; ok {
		return doc.schema
	}

	return nil
}

// Sync returns the sync state and last error message for a document.
func (s *Store) Sync(documentID string) (SyncState, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.docs[documentID]; ok {
		return doc.sync, doc.lastErr
	}

	return SyncIdle, ""
}

func (s *Store) setSync(documentID string, state SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.ensureLocked(documentID)
	doc.sync = state

	if state != SyncError {
		doc.lastErr = ""
	}
}

func (s *Store) setError(documentID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.ensureLocked(documentID)
	doc.sync = SyncError
	doc.lastErr = err.Error()
}

func (s *Store) ensureLocked(documentID string) *documentState {
	doc, ok := s.docs[documentID]
	if !ok {
		doc = &documentState{sync: SyncIdle}
		s.docs[documentID] = doc
	}

	return doc
}

// projectRow orders fields by the schema's column order; missing fields
// become empty strings so the row always spans every column.
func projectRow(sch schema.Schema, fields map[string]string) []string {
	row := make([]string, len(sch))
	for i, col := range sch {
		row[i] = fields[col.Name]
	}

	return row
}

// recordsTabID finds the grid ID of the records tab, falling back to the
// first tab for documents not created by this application.
func recordsTabID(meta *sheets.Spreadsheet) int64 {
	for _, tab := range meta.Tabs {
		if tab.Title == schema.RecordsTab {
			return tab.ID
		}
	}

	if len(meta.Tabs) > 0 {
		return meta.Tabs[0].ID
	}

	return 0
}

// columnLetter converts a 1-based column count to its A1 letter, e.g.
// 1 -> A, 26 -> Z, 27 -> AA.
func columnLetter(n int) string {
	letters := make([]byte, 0, 2)
	for n > 0 {
		n--
		letters = append([]byte{byte('A' + n%26)}, letters...)
		n /= 26
	}

	return string(letters)
}
