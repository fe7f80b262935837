// Package schema derives and persists the typed column model for a document.
// A stored configuration cell takes precedence; header-based inference is
// the fallback, and a built-in default covers empty documents.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Column types.
const (
	TypeText    = "text"
	TypeNumber  = "number"
	TypeDate    = "date"
	TypeBoolean = "boolean"
	TypeSelect  = "select"
)

// Suggested column roles produced by inference. Roles refine a type with a
// ledger meaning; they never change how values are positioned in rows.
const (
	RoleAmount      = "amount"
	RoleCredit      = "credit"
	RoleDebit       = "debit"
	RoleParty       = "party"
	RoleDescription = "description"
)

// Reserved document locations.
const (
	// RecordsTab holds the data grid; its first row is the header.
	RecordsTab = "Records"
	// SettingsTab is the hidden tab carrying the configuration cell.
	SettingsTab = "_Settings"
	// ConfigMarker is the first cell of the reserved configuration row.
	ConfigMarker = "COLUMN_CONFIG"

	// ConfigRange is the reserved two-cell configuration row.
	ConfigRange = SettingsTab + "!A1:B1"
	// HeaderRange addresses the header row of the data grid.
	HeaderRange = RecordsTab + "!1:1"
)

// ErrMismatch reports that a stored schema and the document's header row
// disagree on column count. The header row is ground truth; callers recover
// by re-inferring from headers.
var ErrMismatch = errors.New("schema: header row and stored schema diverge")

// Column is one entry of the ordered, typed column model.
type Column struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Role     string   `json:"role,omitempty"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// Schema is the ordered column model. Column order defines row-cell order.
type Schema []Column

// Default returns the built-in ledger schema used for documents created by
// this application and for documents whose header row is empty.
func Default() Schema {
	return Schema{
		{Name: "Date", Type: TypeDate, Required: true},
		{Name: "Person Name", Type: TypeText, Role: RoleParty, Required: true},
		{Name: "Description", Type: TypeText, Role: RoleDescription},
		{Name: "Amount", Type: TypeNumber, Role: RoleAmount, Required: true},
		{Name: "Type", Type: TypeSelect, Options: []string{"Credit", "Debit"}, Required: true},
		{Name: "Paid", Type: TypeBoolean, Required: true},
		{Name: "Notes", Type: TypeText},
	}
}

// Names returns the column names in order — the header row projection.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}

	return names
}

// Validate checks structural invariants: at least one column, and unique
// names within the schema.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.New("schema: no columns")
	}

	seen := make(map[string]struct{}, len(s))
	for _, col := range s {
		if col.Name == "" {
			return errors.New("schema: column with empty name")
		}

		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("schema: duplicate column name %q", col.Name)
		}

		seen[col.Name] = struct{}{}
	}

	return nil
}

// Marshal serializes the schema for the configuration cell.
func (s Schema) Marshal() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("schema: encoding: %w", err)
	}

	return string(data), nil
}

// Parse decodes a configuration-cell payload. An empty or invalid payload
// is an error; callers fall back to inference.
func Parse(raw string) (Schema, error) {
	var s Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("schema: decoding stored schema: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}
