package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.URL.Path, "/spreadsheets/doc1/values/")

		json.NewEncoder(w).Encode(valueRange{
			Range:  "Records!A1:B3",
			Values: [][]string{{"Date", "Amount"}, {"2026-01-01", "40"}},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	rows, err := c.ReadRange(context.Background(), "doc1", "Records!A:Z")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Date", "Amount"}, {"2026-01-01", "40"}}, rows)
}

func TestReadRange_EmptyRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// The API omits "values" entirely for an empty range.
		w.Write([]byte(`{"range":"Records!A1:Z1"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	rows, err := c.ReadRange(context.Background(), "doc1", "Records!1:1")
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestUpdateRange(t *testing.T) {
	var gotBody valueRange

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "USER_ENTERED", r.URL.Query().Get("valueInputOption"))
		assert.Equal(t, contentTypeJSON, r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	err := c.UpdateRange(context.Background(), "doc1", "Records!A2:B2", [][]string{{"2026-01-01", "45"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2026-01-01", "45"}}, gotBody.Values)
}

func TestAppendRange(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, staticToken("tok"))

	err := c.AppendRange(context.Background(), "doc1", "Records!A:Z", [][]string{{"x"}})
	require.NoError(t, err)

	assert.Contains(t, gotPath, ":append")
	assert.Equal(t, []string{"USER_ENTERED"}, gotQuery["valueInputOption"])
	assert.Equal(t, []string{"INSERT_ROWS"}, gotQuery["insertDataOption"])
}
