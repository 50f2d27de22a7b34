package server

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/avelis/receiptlens/internal/common"
)

// maxBodyBytes caps request bodies well above the largest receipt text.
const maxBodyBytes = 1 << 20

// Request schemas are JSON-Schema (draft 2020-12 subset) kept as generic
// maps and compiled once at startup.
var (
	uploadSchema = mustCompile("upload.json", uploadSchemaMap())

	batchSchema = mustCompile("batch.json", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 100,
				"items":    uploadSchemaMap(),
			},
		},
		"required": []string{"items"},
	})

	patchSchema = mustCompile("patch.json", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"minProperties":        1,
		"properties": map[string]any{
			"vendor":           map[string]any{"type": "string", "minLength": 1},
			"transaction_date": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"amount":           map[string]any{"type": "number", "minimum": 0.0},
			"category":         map[string]any{"type": "string", "minLength": 1},
		},
	})

	querySchema = mustCompile("query.json", map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"keyword":        map[string]any{"type": "string"},
			"pattern":        map[string]any{"type": "string"},
			"min_amount":     map[string]any{"type": "number"},
			"max_amount":     map[string]any{"type": "number"},
			"from_date":      map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"to_date":        map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"sort_field":     map[string]any{"type": "string"},
			"sort_algorithm": map[string]any{"type": "string"},
			"direction":      map[string]any{"type": "string"},
			"aggregate":      map[string]any{"type": "boolean"},
			"window":         map[string]any{"type": "integer", "minimum": 0.0},
		},
	})
)

func uploadSchemaMap() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"raw_text":     map[string]any{"type": "string", "minLength": 1},
			"manual_label": map[string]any{"type": "string"},
		},
		"required": []string{"raw_text"},
	}
}

func mustCompile(name string, schemaMap map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		panic(err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(err)
	}
	return schema
}

// decodeBody validates the JSON body against the schema, then decodes it
// into out. Validation runs on the generic document first, so violations
// report the schema path instead of a Go decoding error.
func decodeBody(c *gin.Context, schema *jsonschema.Schema, out any) error {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		return common.NewAppError("BAD_BODY", "failed to read request body", common.ErrInvalidInput)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return common.NewAppError("BAD_JSON", "request body is not valid JSON", common.ErrInvalidInput)
	}
	if err := schema.Validate(doc); err != nil {
		return common.NewAppError("SCHEMA_VIOLATION", err.Error(), common.ErrValidation)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return common.NewAppError("BAD_JSON", "request body does not match the expected shape", common.ErrInvalidInput)
	}
	return nil
}
