package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompiler_Validate(t *testing.T) {
	compiler := NewCompilerWithCache(64)

	schema := `{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`

	err := compiler.Validate(schema, map[string]interface{}{"name": "test"})
	assert.NoError(t, err)

	err = compiler.Validate(schema, map[string]interface{}{})
	assert.Error(t, err)

	// Second validation hits the compiled-schema cache
	err = compiler.Validate(schema, map[string]interface{}{"name": "again"})
	assert.NoError(t, err)
}

func TestValidatePublishRequestBody(t *testing.T) {
	compiler := NewCompilerWithCache(64)

	valid := []byte(`{
		"name": "Publish to team",
		"targetFolder": "team",
		"resources": [
			{"sourceUrl": "conversations/bucket1/Demo", "targetUrl": "conversations/public/team/Demo"}
		],
		"rules": [
			{"source": "Department", "function": "EQUAL", "targets": ["Sales"]}
		]
	}`)
	require.NoError(t, compiler.ValidateJSON(PublishRequestSchema, valid))

	missingName := []byte(`{"targetFolder": "team", "resources": []}`)
	assert.Error(t, compiler.ValidateJSON(PublishRequestSchema, missingName))

	badFunction := []byte(`{
		"name": "x", "targetFolder": "team",
		"resources": [{"targetUrl": "conversations/public/team/Demo"}],
		"rules": [{"source": "Department", "function": "LIKE", "targets": []}]
	}`)
	assert.Error(t, compiler.ValidateJSON(PublishRequestSchema, badFunction))

	notJSON := []byte(`{`)
	assert.Error(t, compiler.ValidateJSON(PublishRequestSchema, notJSON))
}
