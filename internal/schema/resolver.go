package schema

import (
	"context"
	"log/slog"
	"sync"
)

// RangeClient is the slice of the API client the resolver needs. Defined at
// the consumer; the sheets client satisfies it.
type RangeClient interface {
	ReadRange(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	UpdateRange(ctx context.Context, spreadsheetID, a1Range string, values [][]string) error
}

// Resolver obtains the column model for a document, preferring the stored
// configuration cell over header inference. Resolved schemas are cached in
// memory per document.
type Resolver struct {
	client RangeClient
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]Schema
}

// NewResolver creates a resolver over the given range client.
func NewResolver(client RangeClient, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	return &Resolver{
		client: client,
		logger: logger,
		cache:  make(map[string]Schema),
	}
}

// Resolve returns the column model for documentID. Resolution order:
// cached schema, stored configuration cell, header-row inference, built-in
// default for documents with no header row.
func (r *Resolver) Resolve(ctx context.Context, documentID string) (Schema, error) {
	r.mu.Lock()
	if cached, ok := r.cache[documentID]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	if stored := r.readStored(ctx, documentID); stored != nil {
		r.put(documentID, stored)
		return stored, nil
	}

	headers, err := r.Headers(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if len(headers) == 0 {
		s := Default()
		r.put(documentID, s)
		r.logger.Debug("document has no header row, using default schema",
			slog.String("document_id", documentID),
		)

		return s, nil
	}

	s := InferAll(headers)
	r.put(documentID, s)
	r.logger.Debug("inferred schema from headers",
		slog.String("document_id", documentID),
		slog.Int("columns", len(s)),
	)

	return s, nil
}

// readStored attempts the reserved configuration cell. Any failure — a
// missing settings tab, a malformed payload — just means "no stored
// schema"; older documents created before the settings tab existed are a
// normal case.
func (r *Resolver) readStored(ctx context.Context, documentID string) Schema {
	rows, err := r.client.ReadRange(ctx, documentID, ConfigRange)
	if err != nil {
		r.logger.Debug("no readable configuration cell",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)

		return nil
	}

	if len(rows) == 0 || len(rows[0]) < 2 || rows[0][0] != ConfigMarker {
		return nil
	}

	s, err := Parse(rows[0][1])
	if err != nil {
		r.logger.Warn("stored schema unparseable, falling back to inference",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)

		return nil
	}

	return s
}

// Headers reads the document's header row.
func (r *Resolver) Headers(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.client.ReadRange(ctx, documentID, HeaderRange)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	return rows[0], nil
}

// Persist serializes the schema into the reserved configuration cell and
// refreshes the cache. Callers treat failures as non-fatal: inference from
// the header row remains available on the next read.
func (r *Resolver) Persist(ctx context.Context, documentID string, s Schema) error {
	serialized, err := s.Marshal()
	if err != nil {
		return err
	}

	if err := r.client.UpdateRange(ctx, documentID, ConfigRange, [][]string{{ConfigMarker, serialized}}); err != nil {
		return err
	}

	r.put(documentID, s)

	return nil
}

// Align reconciles a resolved schema with the live header row. The header
// row is ground truth for value positions: on column-count divergence the
// returned schema is re-inferred from the headers and ErrMismatch is
// reported so the caller can log the repair.
func Align(s Schema, headers []string) (Schema, error) {
	if len(headers) == 0 || len(s) == len(headers) {
		return s, nil
	}

	return InferAll(headers), ErrMismatch
}

// Invalidate drops the cached schema for a document. Called after document
// deletion or external modification.
func (r *Resolver) Invalidate(documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.cache, documentID)
}

func (r *Resolver) put(documentID string, s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache[documentID] = s
}
