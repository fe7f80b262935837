package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRangeClient serves canned ranges and records writes.
type fakeRangeClient struct {
	ranges map[string][][]string // key: docID + "|" + a1Range
	errs   map[string]error

	reads  []string
	writes map[string][][]string
}

func newFakeRangeClient() *fakeRangeClient {
	return &fakeRangeClient{
		ranges: make(map[string][][]string),
		errs:   make(map[string]error),
		writes: make(map[string][][]string),
	}
}

func (f *fakeRangeClient) key(docID, a1 string) string { return docID + "|" + a1 }

func (f *fakeRangeClient) ReadRange(_ context.Context, docID, a1 string) ([][]string, error) {
	k := f.key(docID, a1)
	f.reads = append(f.reads, k)

	if err, ok := f.errs[k]; ok {
		return nil, err
	}

	return f.ranges[k], nil
}

func (f *fakeRangeClient) UpdateRange(_ context.Context, docID, a1 string, values [][]string) error {
	k := f.key(docID, a1)
	if err, ok := f.errs[k]; ok {
		return err
	}

	f.writes[k] = values

	return nil
}

func TestResolve_PrefersStoredConfig(t *testing.T) {
	client := newFakeRangeClient()

	stored := Schema{{Name: "Custom", Type: TypeNumber}}
	raw, err := stored.Marshal()
	require.NoError(t, err)

	client.ranges[client.key("doc1", ConfigRange)] = [][]string{{ConfigMarker, raw}}
	// A header row also exists but must not be consulted.
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Date", "Amount"}}

	r := NewResolver(client, nil)

	s, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, stored, s)
}

func TestResolve_FallsBackToInference(t *testing.T) {
	client := newFakeRangeClient()
	// No settings tab at all: the config read fails.
	client.errs[client.key("doc1", ConfigRange)] = errors.New("range not found")
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Date", "Amount", "Paid"}}

	r := NewResolver(client, nil)

	s, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount", "Paid"}, s.Names())
	assert.Equal(t, TypeDate, s[0].Type)
	assert.Equal(t, TypeNumber, s[1].Type)
	assert.Equal(t, TypeBoolean, s[2].Type)
}

func TestResolve_MalformedConfigFallsBack(t *testing.T) {
	client := newFakeRangeClient()
	client.ranges[client.key("doc1", ConfigRange)] = [][]string{{ConfigMarker, "not json"}}
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Amount"}}

	r := NewResolver(client, nil)

	s, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, TypeNumber, s[0].Type)
}

func TestResolve_WrongMarkerIgnored(t *testing.T) {
	client := newFakeRangeClient()
	client.ranges[client.key("doc1", ConfigRange)] = [][]string{{"SOMETHING_ELSE", "{}"}}
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Notes"}}

	r := NewResolver(client, nil)

	s, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, RoleDescription, s[0].Role)
}

func TestResolve_EmptyDocumentUsesDefault(t *testing.T) {
	client := newFakeRangeClient()
	client.errs[client.key("doc1", ConfigRange)] = errors.New("range not found")
	// Header read succeeds but the row is empty.

	r := NewResolver(client, nil)

	s, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestResolve_Caches(t *testing.T) {
	client := newFakeRangeClient()
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Amount"}}

	r := NewResolver(client, nil)

	_, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)

	readsAfterFirst := len(client.reads)

	_, err = r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, readsAfterFirst, len(client.reads), "second resolve must be served from cache")
}

func TestPersist_WritesConfigCellAndCaches(t *testing.T) {
	client := newFakeRangeClient()
	r := NewResolver(client, nil)

	s := Schema{{Name: "Amount", Type: TypeNumber, Role: RoleAmount}}
	require.NoError(t, r.Persist(context.Background(), "doc1", s))

	written := client.writes[client.key("doc1", ConfigRange)]
	require.Len(t, written, 1)
	require.Len(t, written[0], 2)
	assert.Equal(t, ConfigMarker, written[0][0])

	parsed, err := Parse(written[0][1])
	require.NoError(t, err)
	assert.Equal(t, s, parsed)

	// Subsequent resolves hit the cache, no reads needed.
	resolved, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Equal(t, s, resolved)
	assert.Empty(t, client.reads)
}

func TestInvalidate_DropsCache(t *testing.T) {
	client := newFakeRangeClient()
	client.ranges[client.key("doc1", HeaderRange)] = [][]string{{"Amount"}}

	r := NewResolver(client, nil)

	_, err := r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)

	r.Invalidate("doc1")

	_, err = r.Resolve(context.Background(), "doc1")
	require.NoError(t, err)
	assert.Greater(t, len(client.reads), 2, "invalidation forces a re-read")
}
