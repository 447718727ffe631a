package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ruleFileSchema describes the shape of lade.yaml after YAML decoding.
const ruleFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": ["object", "null"],
  "additionalProperties": {
    "type": "object",
    "properties": {
      ".": { "$ref": "#/definitions/ruleConfig" }
    },
    "additionalProperties": { "$ref": "#/definitions/secret" }
  },
  "definitions": {
    "reference": { "type": ["string", "number", "boolean"] },
    "secret": {
      "oneOf": [
        { "$ref": "#/definitions/reference" },
        {
          "type": "object",
          "additionalProperties": {
            "oneOf": [{ "$ref": "#/definitions/reference" }, { "type": "null" }]
          }
        }
      ]
    },
    "ruleConfig": {
      "type": "object",
      "properties": {
        "file": { "type": "string" },
        "1password_service_account": { "$ref": "#/definitions/secret" }
      },
      "additionalProperties": false
    }
  }
}`

var ruleFileSchemaLoader = gojsonschema.NewStringLoader(ruleFileSchema)

// validateRuleFile checks the decoded rule file against ruleFileSchema and
// reports every violation at once.
func validateRuleFile(doc any) error {
	data, err := json.Marshal(jsonValue(doc))
	if err != nil {
		return fmt.Errorf("failed to convert rules to JSON: %w", err)
	}

	result, err := gojsonschema.Validate(ruleFileSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return fmt.Errorf("schema validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// jsonValue rewrites YAML-decoded values so they marshal as JSON. Mapping
// keys that are not strings use their printed form.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = jsonValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = jsonValue(item)
		}
		return out
	default:
		return val
	}
}
