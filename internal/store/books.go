package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mahipat62/khata-book/internal/kvstore"
	"github.com/mahipat62/khata-book/internal/schema"
	"github.com/mahipat62/khata-book/internal/sheets"
)

// Book is the read-only document descriptor used for listing and choosing
// documents.
type Book struct {
	ID         string
	Name       string
	IsOwner    bool
	Permission sheets.Permission
	SharedBy   string
	ModifiedAt time.Time
	Linked     bool
	URL        string
}

// keyLinkedBooks is the durable key holding externally linked document IDs.
const keyLinkedBooks = "khata_linked_books"

// Drive query page sizes, matching the scale the discovery queries expect.
const (
	ownListPageSize    = 100
	sharedListPageSize = 50
)

// linkedFetchLimit bounds concurrent metadata fetches for linked documents.
const linkedFetchLimit = 4

func toBook(f *sheets.File, linked bool) Book {
	return Book{
		ID:         f.ID,
		Name:       f.Name,
		IsOwner:    f.OwnedByMe,
		Permission: f.Permission(),
		SharedBy:   f.SharedBy,
		ModifiedAt: f.ModifiedAt,
		Linked:     linked,
		URL:        f.WebViewLink,
	}
}

// ListBooks enumerates every book reachable by the current identity: owned
// and shared documents matching the configured name prefix, documents
// shared with the user regardless of name, and explicitly linked documents.
// Results are deduplicated by ID and ordered most recently modified first.
func (s *Store) ListBooks(ctx context.Context) ([]Book, error) {
	linked, err := s.LinkedIDs()
	if err != nil {
		return nil, err
	}

	linkedSet := make(map[string]bool, len(linked))
	for _, id := range linked {
		linkedSet[id] = true
	}

	prefixQuery := fmt.Sprintf(
		"mimeType='%s' and trashed=false and name contains '%s'",
		sheets.MimeSpreadsheet, s.prefix,
	)

	named, err := s.client.ListFiles(ctx, prefixQuery, ownListPageSize)
	if err != nil {
		return nil, fmt.Errorf("store: listing books: %w", err)
	}

	sharedQuery := fmt.Sprintf(
		"mimeType='%s' and trashed=false and sharedWithMe=true",
		sheets.MimeSpreadsheet,
	)

	shared, err := s.client.ListFiles(ctx, sharedQuery, sharedListPageSize)
	if err != nil {
		return nil, fmt.Errorf("store: listing shared books: %w", err)
	}

	linkedFiles, err := s.fetchLinked(ctx, linked)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)

	var books []Book

	appendFiles := func(files []sheets.File) {
		for i := range files {
			f := &files[i]
			if seen[f.ID] {
				continue
			}

			seen[f.ID] = true
			books = append(books, toBook(f, linkedSet[f.ID]))
		}
	}

	appendFiles(named)
	appendFiles(shared)
	appendFiles(linkedFiles)

	slices.SortFunc(books, func(a, b Book) int {
		return b.ModifiedAt.Compare(a.ModifiedAt)
	})

	s.mu.Lock()
	s.books = books
	s.mu.Unlock()

	s.logger.Debug("listed books", slog.Int("count", len(books)))

	return books, nil
}

// fetchLinked resolves metadata for explicitly linked documents. Fetches
// run concurrently but bounded; a linked document that can no longer be
// fetched (revoked access, deletion) is skipped with a warning rather than
// failing the whole listing.
func (s *Store) fetchLinked(ctx context.Context, ids []string) ([]sheets.File, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	files := make([]*sheets.File, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkedFetchLimit)

	for i, id := range ids {
		i, id := i, id

		g.Go(func() error {
			f, err := s.client.GetFile(gctx, id)
			if err != nil {
				s.logger.Warn("could not fetch linked book",
					slog.String("document_id", id),
					slog.String("error", err.Error()),
				)

				return nil
			}

			files[i] = f

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store: fetching linked books: %w", err)
	}

	out := make([]sheets.File, 0, len(files))
	for _, f := range files {
		if f != nil {
			out = append(out, *f)
		}
	}

	return out, nil
}

// Books returns the last fetched listing without a network round-trip.
func (s *Store) Books() []Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.books
}

// CreateBook creates a new book: a records tab with a frozen, styled header
// row, a hidden settings tab, and the schema persisted to the configuration
// cell. Finishes with a listing refresh. Returns the new document ID.
func (s *Store) CreateBook(ctx context.Context, name string, cols schema.Schema) (string, error) {
	if len(cols) == 0 {
		cols = schema.Default()
	}

	if err := cols.Validate(); err != nil {
		return "", err
	}

	title := fmt.Sprintf("%s - %s", s.prefix, name)

	created, err := s.client.CreateSpreadsheet(ctx, title, []sheets.TabSpec{
		{Title: schema.RecordsTab, FrozenTop: true},
		{Title: schema.SettingsTab, Hidden: true},
	})
	if err != nil {
		return "", fmt.Errorf("store: creating book: %w", err)
	}

	headerCell := schema.RecordsTab + "!A1"
	if err := s.client.UpdateRange(ctx, created.ID, headerCell, [][]string{cols.Names()}); err != nil {
		return "", fmt.Errorf("store: writing header row: %w", err)
	}

	if err := s.client.FormatHeaderRow(ctx, created.ID, recordsTabID(created)); err != nil {
		// Styling is cosmetic; the book is usable without it.
		s.logger.Warn("header formatting failed",
			slog.String("document_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.resolver.Persist(ctx, created.ID, cols); err != nil {
		// Non-fatal: inference from the header row recovers the schema.
		s.logger.Warn("persisting schema failed, inference will apply",
			slog.String("document_id", created.ID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.ListBooks(ctx); err != nil {
		s.logger.Warn("refreshing book listing failed",
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("book created",
		slog.String("document_id", created.ID),
		slog.String("title", title),
	)

	return created.ID, nil
}

// RenameBook renames the whole document and refreshes the listing.
func (s *Store) RenameBook(ctx context.Context, documentID, newName string) error {
	if err := s.client.RenameFile(ctx, documentID, newName); err != nil {
		return fmt.Errorf("store: renaming book: %w", err)
	}

	if _, err := s.ListBooks(ctx); err != nil {
		return err
	}

	return nil
}

// DuplicateBook copies the whole document, refreshes the listing, and
// returns the copy's ID. An empty newName gets a timestamped default.
func (s *Store) DuplicateBook(ctx context.Context, documentID, newName string) (string, error) {
	if newName == "" {
		newName = "Backup - " + time.Now().UTC().Format(time.RFC3339)
	}

	copyID, err := s.client.CopyFile(ctx, documentID, newName)
	if err != nil {
		return "", fmt.Errorf("store: duplicating book: %w", err)
	}

	if _, err := s.ListBooks(ctx); err != nil {
		return "", err
	}

	return copyID, nil
}

// RemoveBook deletes the whole document, drops local state for it, and
// refreshes the listing.
func (s *Store) RemoveBook(ctx context.Context, documentID string) error {
	if err := s.client.DeleteFile(ctx, documentID); err != nil {
		return fmt.Errorf("store: removing book: %w", err)
	}

	s.resolver.Invalidate(documentID)

	s.mu.Lock()
	delete(s.docs, documentID)
	s.mu.Unlock()

	if _, err := s.ListBooks(ctx); err != nil {
		return err
	}

	return nil
}

// LinkedIDs returns the persisted list of externally linked document IDs.
func (s *Store) LinkedIDs() ([]string, error) {
	raw, err := s.kv.Get(keyLinkedBooks)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("store: decoding linked book list: %w", err)
	}

	return ids, nil
}

// Link adds a document ID to the linked list. Linking an already linked
// document is a no-op.
func (s *Store) Link(documentID string) error {
	ids, err := s.LinkedIDs()
	if err != nil {
		return err
	}

	if slices.Contains(ids, documentID) {
		return nil
	}

	return s.saveLinked(append(ids, documentID))
}

// Unlink removes a document ID from the linked list.
func (s *Store) Unlink(documentID string) error {
	ids, err := s.LinkedIDs()
	if err != nil {
		return err
	}

	filtered := slices.DeleteFunc(ids, func(id string) bool { return id == documentID })

	return s.saveLinked(filtered)
}

func (s *Store) saveLinked(ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("store: encoding linked book list: %w", err)
	}

	return s.kv.Set(keyLinkedBooks, string(data))
}
