package prompts

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// promptsSchema constrains the on-disk prompts file: a JSON array of
// {name, content} objects with non-empty names. Unknown extra fields are
// rejected so typos in hand-edited files surface as load errors instead of
// silently dropped prompts.
const promptsSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "content"],
    "additionalProperties": false,
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "content": {"type": "string"}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("prompts.schema.json", promptsSchema)

// validatePrompts checks raw file contents against the prompts schema.
func validatePrompts(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return compiledSchema.Validate(doc)
}
