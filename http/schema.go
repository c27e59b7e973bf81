package http

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// facilitatorRequestSchema validates /verify and /settle request bodies
// before they reach JSON decoding, so malformed requests fail with a precise
// message instead of a zero-valued struct.
const facilitatorRequestSchema = `{
	"type": "object",
	"required": ["x402Version", "paymentHeader", "paymentRequirements"],
	"properties": {
		"x402Version": {"type": "integer", "minimum": 1},
		"paymentHeader": {"type": "string", "minLength": 1},
		"paymentRequirements": {
			"type": "object",
			"required": ["scheme", "network", "maxAmountRequired", "payTo"],
			"properties": {
				"scheme": {"type": "string", "minLength": 1},
				"network": {"type": "string", "minLength": 1},
				"maxAmountRequired": {"type": "string", "pattern": "^[0-9]+$"},
				"payTo": {"type": "string", "minLength": 1},
				"asset": {"type": "string"},
				"resource": {"type": "string"},
				"maxTimeoutSeconds": {"type": "integer", "minimum": 0}
			}
		}
	}
}`

var requestSchema = gojsonschema.NewStringLoader(facilitatorRequestSchema)

// validateFacilitatorRequest checks a raw request body against the schema
// and returns a joined description of every violation.
func validateFacilitatorRequest(body []byte) error {
	result, err := gojsonschema.Validate(requestSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}
	messages := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		messages = append(messages, violation.String())
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}
