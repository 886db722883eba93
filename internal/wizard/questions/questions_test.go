package questions

import (
	"testing"

	"divorce-wizard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedSchemas(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	assert.Equal(t, models.AllClaims, r.Claims())

	for _, claim := range r.Claims() {
		schema, err := r.JSONSchema(claim)
		require.NoError(t, err, claim)
		assert.Equal(t, draft07, schema["$schema"])
		assert.Equal(t, "object", schema["type"])
	}
}

func TestLoad_SharedGroupsHaveIdenticalShape(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	find := func(claim models.ClaimType, name string) Field {
		fields, err := r.Fields(claim)
		require.NoError(t, err)
		for _, f := range fields {
			if f.Name == name {
				return f
			}
		}
		t.Fatalf("%s has no field %s", claim, name)
		return Field{}
	}

	custody := find(models.ClaimCustody, "children")
	alimony := find(models.ClaimAlimony, "children")
	property := find(models.ClaimProperty, "children")

	assert.Equal(t, TypeRepeater, custody.Type)
	assert.Equal(t, "children", custody.SharedKey)
	assert.Equal(t, custody.Fields, alimony.Fields)
	assert.Equal(t, custody.Fields, property.Fields)
	require.NotNil(t, property.DependsOn)
	assert.Equal(t, "hasChildren", property.DependsOn.Field)

	paths, err := r.Paths(models.ClaimProperty)
	require.NoError(t, err)
	assert.Contains(t, paths, "children.idNumber")
	assert.Contains(t, paths, "apartments.address")
	assert.Contains(t, paths, "debts.amount")
}

func TestCompile_Errors(t *testing.T) {
	shared := map[string]Field{
		"children": {Name: "children", Type: TypeRepeater, Fields: []Field{{Name: "name", Type: TypeText}}},
	}

	tests := []struct {
		name    string
		claims  []ClaimSchema
		shared  map[string]Field
		wantErr error
	}{
		{
			name: "unknown shared key",
			claims: []ClaimSchema{{Claim: models.ClaimCustody, Fields: []Field{
				{Name: "pets", Type: TypeShared, SharedKey: "pets"},
			}}},
			shared:  shared,
			wantErr: ErrUnknownSharedKey,
		},
		{
			name: "duplicate after shared expansion",
			claims: []ClaimSchema{{Claim: models.ClaimCustody, Fields: []Field{
				{Name: "children", Type: TypeText},
				{Name: "children", Type: TypeShared, SharedKey: "children"},
			}}},
			shared:  shared,
			wantErr: ErrDuplicateField,
		},
		{
			name: "duplicate nested name",
			claims: []ClaimSchema{{Claim: models.ClaimProperty, Fields: []Field{
				{Name: "apartments", Type: TypeRepeater, Fields: []Field{
					{Name: "address", Type: TypeText},
					{Name: "address", Type: TypeText},
				}},
			}}},
			wantErr: ErrDuplicateField,
		},
		{
			name:    "unknown claim",
			claims:  []ClaimSchema{{Claim: "pets"}},
			wantErr: ErrUnknownClaim,
		},
		{
			name: "select without options",
			claims: []ClaimSchema{{Claim: models.ClaimCustody, Fields: []Field{
				{Name: "arrangement", Type: TypeSelect},
			}}},
			wantErr: ErrInvalidDefinition,
		},
		{
			name:   "nested shared reference in a group",
			claims: nil,
			shared: map[string]Field{
				"outer": {Name: "outer", Type: TypeGroup, Fields: []Field{{Name: "inner", Type: TypeShared, SharedKey: "children"}}},
			},
			wantErr: ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.claims, tt.shared)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompile_ResolvedGroupsAreCopies(t *testing.T) {
	shared := map[string]Field{
		"children": {Name: "children", Type: TypeRepeater, Fields: []Field{{Name: "name", Type: TypeText}}},
	}
	claims := []ClaimSchema{
		{Claim: models.ClaimCustody, Fields: []Field{{Name: "children", Type: TypeShared, SharedKey: "children", Label: "kids"}}},
	}

	r, err := Compile(claims, shared)
	require.NoError(t, err)

	fields, err := r.Fields(models.ClaimCustody)
	require.NoError(t, err)
	fields[0].Fields[0].Name = "mutated"

	group, ok := r.SharedGroup("children")
	require.True(t, ok)
	assert.Equal(t, "name", group.Fields[0].Name)
	assert.Equal(t, "kids", fields[0].Label)
}

func TestJSONSchema_ConditionalRequired(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	schema, err := r.JSONSchema(models.ClaimDivorce)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"marriageCity", "marriageType", "reasons"}, schema["required"])

	allOf, ok := schema["allOf"].([]interface{})
	require.True(t, ok)
	require.Len(t, allOf, 1)
	cond := allOf[0].(map[string]interface{})
	ifPart := cond["if"].(map[string]interface{})
	assert.Equal(t, []string{"reconciliationAttempted"}, ifPart["required"])
	thenPart := cond["then"].(map[string]interface{})
	assert.Equal(t, []string{"reconciliationDetails"}, thenPart["required"])
}

func TestRegistry_UnknownClaim(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	_, err = r.Fields("pets")
	assert.ErrorIs(t, err, ErrUnknownClaim)
}
