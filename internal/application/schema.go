package application

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// groupCommandSchema accepts only arrays of objects carrying exactly the
// string keys device, command and value.
const groupCommandSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "device": {"type": "string"},
      "command": {"type": "string"},
      "value": {"type": "string"}
    },
    "required": ["device", "command", "value"],
    "additionalProperties": false
  }
}`

func compileGroupSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString("https://smart-home-bot.local/schemas/group-command.json", groupCommandSchema)
	if err != nil {
		return nil, fmt.Errorf("compiling group command schema: %w", err)
	}
	return schema, nil
}
