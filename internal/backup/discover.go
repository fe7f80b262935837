package backup

import (
	"context"
	"fmt"
	"slices"

	"github.com/mahipat62/khata-book/internal/schema"
	"github.com/mahipat62/khata-book/internal/sheets"
)

// SheetReader reads document metadata, structure, and cell data during
// import.
type SheetReader interface {
	GetFile(ctx context.Context, fileID string) (*sheets.File, error)
	SpreadsheetMeta(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error)
	ReadRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
}

// Candidate is a document offered for import, regardless of whether the
// application created it.
type Candidate struct {
	ID         string
	Name       string
	Permission sheets.Permission
	SharedBy   string
	URL        string
}

// Editable reports whether the current identity may modify the document.
func (c Candidate) Editable() bool {
	return c.Permission == sheets.PermissionOwner || c.Permission == sheets.PermissionEditor
}

// ImportedTab holds the raw cell data of one tab.
type ImportedTab struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// ImportResult is the full read of one document: the resolved column model,
// every data tab, and whether the caller may write the document back.
type ImportResult struct {
	Schema   schema.Schema
	Tabs     []ImportedTab
	Editable bool
}

// candidatePageSize bounds the discovery queries.
const candidatePageSize = 100

// ListCandidates enumerates spreadsheets usable as import sources: all
// documents the identity owns, plus shared documents when includeShared is
// set. No name filter applies; any spreadsheet qualifies.
func ListCandidates(ctx context.Context, client DriveClient, includeShared bool) ([]Candidate, error) {
	ownQuery := fmt.Sprintf("mimeType='%s' and trashed=false", sheets.MimeSpreadsheet)

	files, err := client.ListFiles(ctx, ownQuery, candidatePageSize)
	if err != nil {
		return nil, fmt.Errorf("backup: listing documents: %w", err)
	}

	if includeShared {
		sharedQuery := fmt.Sprintf(
			"mimeType='%s' and trashed=false and sharedWithMe=true",
			sheets.MimeSpreadsheet,
		)

		shared, err := client.ListFiles(ctx, sharedQuery, candidatePageSize)
		if err != nil {
			return nil, fmt.Errorf("backup: listing shared documents: %w", err)
		}

		files = append(files, shared...)
	}

	seen := make(map[string]bool)

	var out []Candidate

	for i := range files {
		f := &files[i]
		if seen[f.ID] {
			continue
		}

		seen[f.ID] = true
		out = append(out, Candidate{
			ID:         f.ID,
			Name:       f.Name,
			Permission: f.Permission(),
			SharedBy:   f.SharedBy,
			URL:        f.WebViewLink,
		})
	}

	return out, nil
}

// ImportDocument reads every visible data tab of a document along with the
// resolved column model (stored configuration cell preferred, header
// inference otherwise). Settings tabs are skipped. The first row of each tab
// is treated as its header row.
func ImportDocument(ctx context.Context, reader SheetReader, resolver *schema.Resolver, documentID string) (*ImportResult, error) {
	file, err := reader.GetFile(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("backup: reading document access: %w", err)
	}

	sch, err := resolver.Resolve(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("backup: resolving document schema: %w", err)
	}

	meta, err := reader.SpreadsheetMeta(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("backup: reading document structure: %w", err)
	}

	var tabs []ImportedTab

	for _, tab := range meta.Tabs {
		if tab.Title == schema.SettingsTab {
			continue
		}

		rows, err := reader.ReadRange(ctx, documentID, tab.Title+"!A:Z")
		if err != nil {
			return nil, fmt.Errorf("backup: reading tab %q: %w", tab.Title, err)
		}

		imported := ImportedTab{Title: tab.Title}
		if len(rows) > 0 {
			imported.Headers = slices.Clone(rows[0])
			imported.Rows = rows[1:]
		}

		tabs = append(tabs, imported)
	}

	return &ImportResult{
		Schema:   sch,
		Tabs:     tabs,
		Editable: file.Editable(),
	}, nil
}
