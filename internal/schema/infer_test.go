package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		header   string
		wantType string
		wantRole string
	}{
		// Date patterns win over everything else.
		{"Date", TypeDate, ""},
		{"Txn Date", TypeDate, ""},
		{"Payment Time", TypeDate, ""},
		{"Date Paid", TypeDate, ""},

		// Number patterns beat boolean: "Amount Paid" contains both
		// "amount" and "paid" and must classify as number.
		{"Amount", TypeNumber, RoleAmount},
		{"Amount Paid", TypeNumber, RoleAmount},
		{"Credit", TypeNumber, RoleCredit},
		{"Debit Amount", TypeNumber, RoleDebit},
		{"Unit Price", TypeNumber, ""},
		{"Total Cost", TypeNumber, ""},
		{"Quantity", TypeNumber, ""},

		// Boolean patterns.
		{"Paid", TypeBoolean, ""},
		{"Is Active", TypeBoolean, ""},
		{"Completed", TypeBoolean, ""},
		{"Status", TypeBoolean, ""},

		// Party and description refine text.
		{"Person Name", TypeText, RoleParty},
		{"Customer", TypeText, RoleParty},
		{"Vendor", TypeText, RoleParty},
		{"Description", TypeText, RoleDescription},
		{"Notes", TypeText, RoleDescription},
		{"Remarks", TypeText, RoleDescription},

		// No pattern: plain text, no role.
		{"Category", TypeText, ""},
		{"", TypeText, ""},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			col := Infer(tt.header)
			assert.Equal(t, tt.header, col.Name)
			assert.Equal(t, tt.wantType, col.Type, "type for %q", tt.header)
			assert.Equal(t, tt.wantRole, col.Role, "role for %q", tt.header)
		})
	}
}

func TestInfer_CaseInsensitive(t *testing.T) {
	assert.Equal(t, TypeDate, Infer("DATE").Type)
	assert.Equal(t, TypeNumber, Infer("aMoUnT").Type)
	assert.Equal(t, TypeBoolean, Infer("PAID").Type)
}

func TestInfer_UnicodeNormalization(t *testing.T) {
	// Decomposed "é" (e + combining acute) must classify the same as the
	// composed form once NFC normalization applies.
	composed := "Crédit"            // U+00E9
	decomposed := "Crédit"    // e + U+0301

	assert.Equal(t, Infer(composed).Type, Infer(decomposed).Type)
}

func TestInferAll_PreservesOrder(t *testing.T) {
	headers := []string{"Date", "Person Name", "Amount", "Paid"}
	s := InferAll(headers)

	assert.Equal(t, headers, s.Names())
	assert.Equal(t, TypeDate, s[0].Type)
	assert.Equal(t, TypeText, s[1].Type)
	assert.Equal(t, TypeNumber, s[2].Type)
	assert.Equal(t, TypeBoolean, s[3].Type)
}
