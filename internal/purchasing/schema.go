package purchasing

import (
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce   sync.Once
	createSchema *jsonschema.Schema
)

// CreateRequestSchema returns the JSON schema of the creation payload.
func CreateRequestSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		var v CreateRequest
		createSchema = reflector.Reflect(v)
		createSchema.Title = "Create purchase order"
	})
	return createSchema
}
