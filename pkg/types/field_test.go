package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldInfoArrayFieldIndices(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		want    string
	}{
		{name: "no indices", indices: nil, want: ""},
		{name: "single index", indices: []int{4}, want: "4"},
		{name: "several indices keep order", indices: []int{3, 1, 2}, want: "3,1,2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FieldInfo{FieldID: 1, ArrayFieldIndices: tt.indices}
			assert.Equal(t, tt.want, f.ArrayFieldIndicesString())
			assert.Equal(t, len(tt.indices) > 0, f.IsArrayField())

			parsed, err := ParseArrayFieldIndices(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.indices, parsed)
		})
	}
}

func TestParseArrayFieldIndicesRejectsGarbage(t *testing.T) {
	_, err := ParseArrayFieldIndices("1,x")
	assert.Error(t, err)
}

func TestFieldTypeSQLType(t *testing.T) {
	tests := []struct {
		ft   FieldType
		want string
	}{
		{FieldTypeChar, "TEXT"},
		{FieldTypeText, "TEXT"},
		{FieldTypeDate, "TEXT"},
		{FieldTypeTime, "TEXT"},
		{FieldTypeLong, "INTEGER"},
		{FieldTypeShort, "INTEGER"},
		{FieldTypeBoolean, "INTEGER"},
		{FieldTypeVarCatalog, "INTEGER"},
		{FieldTypeFixCatalog, "INTEGER"},
		{FieldTypeFloat, "REAL"},
	}
	for _, tt := range tests {
		t.Run(tt.ft.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ft.SQLType())
		})
	}
}

func TestFieldTypeJSON(t *testing.T) {
	var f FieldInfo
	require.NoError(t, json.Unmarshal([]byte(`{"infoAreaId":"KP","fieldId":7,"fieldType":"K","ucat":12}`), &f))
	assert.Equal(t, FieldTypeVarCatalog, f.Type)
	assert.Equal(t, 12, f.VarCatalog)
	assert.Equal(t, "F7", f.ColumnName())

	out, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"fieldType":"K"`)

	err = json.Unmarshal([]byte(`{"fieldType":"KK"}`), &f)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestFieldInfoParticipants(t *testing.T) {
	assert.True(t, FieldInfo{Attributes: FieldAttrParticipants | FieldAttrHidden}.IsParticipantsField())
	assert.False(t, FieldInfo{Attributes: FieldAttrReadOnly}.IsParticipantsField())
}
