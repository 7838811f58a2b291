package receipt

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Wire schema for SignedReceipt. additionalProperties is false so a document
// with stray keys (or a renamed hash field) is rejected before any
// cryptographic check runs.
const wireSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": [
    "version", "timestamp", "session_id", "agent_id",
    "prompt_hash", "response_hash", "scores",
    "prev_receipt_hash", "receipt_hash", "signature", "metadata"
  ],
  "additionalProperties": false,
  "properties": {
    "version":           {"type": "string", "minLength": 1},
    "timestamp":         {"type": "string", "minLength": 1},
    "session_id":        {"type": "string", "minLength": 1},
    "agent_id":          {"type": ["string", "null"]},
    "prompt_hash":       {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "response_hash":     {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "scores":            {"type": "object", "additionalProperties": {"type": "number"}},
    "prev_receipt_hash": {"type": ["string", "null"], "pattern": "^[0-9a-f]{64}$"},
    "receipt_hash":      {"type": "string", "pattern": "^[0-9a-f]{64}$"},
    "signature":         {"type": "string", "pattern": "^[0-9a-f]{128}$"},
    "metadata":          {"type": "object"},
    "prompt_content":    true,
    "response_content":  true
  }
}`

var wireSchema = jsonschema.MustCompileString("signed_receipt.schema.json", wireSchemaJSON)

func validateWire(data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("receipt: not valid JSON: %w", err)
	}
	if err := wireSchema.Validate(doc); err != nil {
		return fmt.Errorf("receipt: wire form invalid: %w", err)
	}
	return nil
}
