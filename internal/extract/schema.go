package extract

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/prodex-cli/internal/model"
)

// claimsSchema is the strict shape the model must return. Any mismatch
// fails the parse and triggers the one-retry policy; there is no
// best-effort field scraping.
const claimsSchema = `{
  "type": "object",
  "required": ["claims"],
  "properties": {
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["property_name", "value", "confidence_percent", "source_indices"],
        "properties": {
          "property_name": {"type": "string", "minLength": 1},
          "value": {"type": "string"},
          "confidence_percent": {"type": "integer", "minimum": 0, "maximum": 100},
          "source_indices": {
            "type": "array",
            "items": {"type": "integer", "minimum": 0},
            "minItems": 1
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString("claims.json", claimsSchema)

type claimsEnvelope struct {
	Claims []model.ExtractedPropertyClaim `json:"claims"`
}

// parseClaims validates and decodes the model's response. numSources bounds
// the permissible source indices: a claim citing an index outside the batch
// is a schema violation, not a value to be silently dropped.
func parseClaims(raw string, numSources int) ([]model.ExtractedPropertyClaim, error) {
	cleaned := stripFences(raw)

	var generic any
	if err := json.Unmarshal([]byte(cleaned), &generic); err != nil {
		return nil, eris.Wrap(err, "extract: response is not valid json")
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, eris.Wrap(err, "extract: response violates claims schema")
	}

	var env claimsEnvelope
	if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
		return nil, eris.Wrap(err, "extract: decode claims")
	}

	for _, c := range env.Claims {
		for _, idx := range c.SourceIndices {
			if idx < 0 || idx >= numSources {
				return nil, eris.Errorf("extract: claim for %q cites source index %d outside 0..%d",
					c.PropertyName, idx, numSources-1)
			}
		}
	}
	return env.Claims, nil
}

// stripFences removes a surrounding markdown code fence if present. Models
// occasionally wrap JSON despite instructions; the content inside is still
// subject to full schema validation.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
