package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimdex/heimdex-annotator/internal/domain"
)

var foulSchema = []FieldSchema{
	{Name: "team", Type: FieldSelect, Required: true, Options: []string{"Home", "Away"}},
	{Name: "player", Type: FieldText, Required: true},
	{Name: "minute", Type: FieldNumber},
	{Name: "penalty", Type: FieldCheckbox},
}

func TestCoerceFields_Valid(t *testing.T) {
	got, err := CoerceFields(foulSchema, map[string]any{
		"team":    "Home",
		"player":  "Nine",
		"minute":  "42.5",
		"penalty": "on",
		"extra":   "dropped",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"team":    "Home",
		"player":  "Nine",
		"minute":  42.5,
		"penalty": true,
	}, got)
}

func TestCoerceFields_MissingRequired(t *testing.T) {
	_, err := CoerceFields(foulSchema, map[string]any{"team": "Home", "player": "  "})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Equal(t, "player", ve.Errors[0].Field)
}

func TestCoerceFields_TypeErrors(t *testing.T) {
	testCases := []struct {
		desc  string
		raw   map[string]any
		field string
	}{
		{desc: "bad option", raw: map[string]any{"team": "Visitors", "player": "x"}, field: "team"},
		{desc: "bad number", raw: map[string]any{"team": "Home", "player": "x", "minute": "soon"}, field: "minute"},
		{desc: "bad checkbox", raw: map[string]any{"team": "Home", "player": "x", "penalty": []int{1}}, field: "penalty"},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			_, err := CoerceFields(foulSchema, tC.raw)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tC.field, ve.Errors[0].Field)
		})
	}
}

func TestCoerceFields_CheckboxDefaultsFalse(t *testing.T) {
	got, err := CoerceFields([]FieldSchema{{Name: "flag", Type: FieldCheckbox}}, nil)
	require.NoError(t, err)
	assert.Equal(t, false, got["flag"])
}

func TestCoerceFields_RequiredCheckbox(t *testing.T) {
	schema := []FieldSchema{{Name: "confirmed", Type: FieldCheckbox, Required: true}}

	_, err := CoerceFields(schema, map[string]any{"confirmed": false})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := CoerceFields(schema, map[string]any{"confirmed": true})
	require.NoError(t, err)
	assert.Equal(t, true, got["confirmed"])
}

func TestCoerceFields_JSONNumber(t *testing.T) {
	got, err := CoerceFields([]FieldSchema{{Name: "n", Type: FieldNumber}}, map[string]any{"n": json.Number("7")})
	require.NoError(t, err)
	assert.Equal(t, 7.0, got["n"])
}

func TestCoerceFields_NumberAsText(t *testing.T) {
	got, err := CoerceFields([]FieldSchema{{Name: "shirt", Type: FieldText}}, map[string]any{"shirt": 10.0})
	require.NoError(t, err)
	assert.Equal(t, "10", got["shirt"])
}
