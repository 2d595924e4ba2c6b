package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiler compiles JSON Schemas and validates wire payloads against
// them. Compiled schemas are cached so request validation does not
// recompile per call.
type Compiler struct {
	compiler *js.Compiler
	cache    *expirable.LRU[string, *js.Schema]
}

// NewCompilerWithCache creates a new compiler with cache
func NewCompilerWithCache(maxSize int) *Compiler {
	c := js.NewCompiler()
	c.ExtractAnnotations = true

	return &Compiler{
		compiler: c,
		cache:    expirable.NewLRU[string, *js.Schema](maxSize, nil, time.Hour),
	}
}

func (c *Compiler) key(schema string) string {
	sum := sha256.Sum256([]byte(schema))
	return hex.EncodeToString(sum[:])
}

func (c *Compiler) compiled(schema string) (*js.Schema, error) {
	key := c.key(schema)
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}

	resourceURL := fmt.Sprintf("mem://schema/%s.json", key[:16])
	if err := c.compiler.AddResource(resourceURL, bytes.NewReader([]byte(schema))); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	compiled, err := c.compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	c.cache.Add(key, compiled)
	return compiled, nil
}

// Validate checks a decoded JSON value against a schema document.
func (c *Compiler) Validate(schema string, value interface{}) error {
	compiled, err := c.compiled(schema)
	if err != nil {
		return err
	}
	if err := compiled.Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateJSON checks raw JSON bytes against a schema document.
func (c *Compiler) ValidateJSON(schema string, raw []byte) error {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return c.Validate(schema, value)
}

// PublishRequestSchema is the wire contract for publish/unpublish
// request bodies. Identifier segments arrive percent-encoded; decoding
// happens after validation, at the api boundary.
const PublishRequestSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"targetFolder": {"type": "string"},
		"entityIds": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"folderIds": {
			"type": "array",
			"items": {"type": "string", "minLength": 1}
		},
		"links": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["url"],
				"properties": {
					"url": {"type": "string", "minLength": 1}
				}
			}
		},
		"rules": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["source", "function", "targets"],
				"properties": {
					"source": {"type": "string", "minLength": 1},
					"function": {"enum": ["TRUE", "FALSE", "EQUAL", "CONTAIN", "REGEX"]},
					"targets": {
						"type": "array",
						"items": {"type": "string"}
					}
				}
			}
		}
	}
}`
