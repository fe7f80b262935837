package schema

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// inference pattern tables. Evaluated strictly in this precedence:
// date -> number -> boolean -> party -> description -> text. The order is
// load-bearing: "Amount Paid" must classify as number before the boolean
// "paid" pattern is ever consulted. Changing it silently reclassifies
// existing documents.
var (
	datePatterns = []string{"date", "time"}

	numberPatterns = []struct {
		token string
		role  string
	}{
		{"credit", RoleCredit},
		{"debit", RoleDebit},
		{"amount", RoleAmount},
		{"price", ""},
		{"cost", ""},
		{"total", ""},
		{"rate", ""},
		{"quantity", ""},
		{"number", ""},
	}

	booleanPatterns = []string{"paid", "active", "completed", "done", "received", "pending", "status"}

	partyPatterns = []string{"name", "party", "customer", "vendor"}

	descriptionPatterns = []string{"description", "detail", "remark", "note"}
)

// Infer classifies a single header token into a Column. This is a
// best-effort classifier, not a guarantee — ambiguous headers default to
// plain text. Matching is case-insensitive substring over the NFC-normalized
// header, so composed and decomposed spellings classify identically.
func Infer(header string) Column {
	lower := strings.ToLower(norm.NFC.String(header))

	for _, token := range datePatterns {
		if strings.Contains(lower, token) {
			return Column{Name: header, Type: TypeDate}
		}
	}

	for _, pattern := range numberPatterns {
		if strings.Contains(lower, pattern.token) {
			return Column{Name: header, Type: TypeNumber, Role: pattern.role}
		}
	}

	for _, token := range booleanPatterns {
		if strings.Contains(lower, token) {
			return Column{Name: header, Type: TypeBoolean}
		}
	}

	for _, token := range partyPatterns {
		if strings.Contains(lower, token) {
			return Column{Name: header, Type: TypeText, Role: RoleParty}
		}
	}

	for _, token := range descriptionPatterns {
		if strings.Contains(lower, token) {
			return Column{Name: header, Type: TypeText, Role: RoleDescription}
		}
	}

	return Column{Name: header, Type: TypeText}
}

// InferAll classifies every header token, preserving order.
func InferAll(headers []string) Schema {
	s := make(Schema, 0, len(headers))
	for _, header := range headers {
		s = append(s, Infer(header))
	}

	return s
}
