package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	require.NoError(t, s.Validate())
	assert.Equal(t,
		[]string{"Date", "Person Name", "Description", "Amount", "Type", "Paid", "Notes"},
		s.Names(),
	)

	// The Type column is constrained to the two ledger entry kinds.
	var typeCol *Column
	for i := range s {
		if s[i].Name == "Type" {
			typeCol = &s[i]
		}
	}

	require.NotNil(t, typeCol)
	assert.Equal(t, TypeSelect, typeCol.Type)
	assert.Equal(t, []string{"Credit", "Debit"}, typeCol.Options)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schema
		wantErr bool
	}{
		{"valid", Schema{{Name: "A", Type: TypeText}, {Name: "B", Type: TypeNumber}}, false},
		{"empty", Schema{}, true},
		{"empty name", Schema{{Name: "", Type: TypeText}}, true},
		{"duplicate name", Schema{{Name: "A"}, {Name: "A"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshalParse_RoundTrip(t *testing.T) {
	original := Default()

	raw, err := original.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not json")
	assert.Error(t, err)

	_, err = Parse("[]")
	assert.Error(t, err, "empty schema fails validation")
}

func TestAlign(t *testing.T) {
	stored := Schema{
		{Name: "Date", Type: TypeDate},
		{Name: "Amount", Type: TypeNumber, Role: RoleAmount},
	}

	t.Run("matching count keeps stored schema", func(t *testing.T) {
		aligned, err := Align(stored, []string{"Date", "Amount"})
		require.NoError(t, err)
		assert.Equal(t, stored, aligned)
	})

	t.Run("no header row keeps stored schema", func(t *testing.T) {
		aligned, err := Align(stored, nil)
		require.NoError(t, err)
		assert.Equal(t, stored, aligned)
	})

	t.Run("divergence re-infers from headers", func(t *testing.T) {
		headers := []string{"Date", "Amount", "Paid"}

		aligned, err := Align(stored, headers)
		assert.ErrorIs(t, err, ErrMismatch)
		assert.Equal(t, headers, aligned.Names())
		assert.Equal(t, TypeBoolean, aligned[2].Type)
	})
}
