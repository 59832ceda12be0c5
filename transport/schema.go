package transport

import (
	"github.com/xeipuuv/gojsonschema"

	"github.com/jrobhoward/rustbridge/rberr"
)

// SchemaValidator validates a decoded JSON payload against a manifest-
// declared schema reference before the dispatcher calls the handler. A
// handle with no schemas configured skips validation entirely; this is
// an optional add-on, never a requirement.
type SchemaValidator struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaValidator compiles one JSON Schema document per type tag. A
// malformed schema document is a configuration error, not a per-request
// one: it surfaces immediately so a bad manifest fails fast at handle
// construction rather than on the first matching request.
func NewSchemaValidator(schemaDocsByTag map[string]string) (*SchemaValidator, *rberr.Error) {
	if len(schemaDocsByTag) == 0 {
		return &SchemaValidator{}, nil
	}
	compiled := make(map[string]*gojsonschema.Schema, len(schemaDocsByTag))
	for tag, doc := range schemaDocsByTag {
		loader := gojsonschema.NewStringLoader(doc)
		schema, err := gojsonschema.NewSchema(loader)
		if err != nil {
			return nil, rberr.Wrapf(rberr.CodeConfigError, "invalid json schema for type %q", err, tag)
		}
		compiled[tag] = schema
	}
	return &SchemaValidator{schemas: compiled}, nil
}

// Validate checks payload against the schema registered for typeTag, if
// any. A tag with no registered schema always passes.
func (v *SchemaValidator) Validate(typeTag string, payload []byte) *rberr.Error {
	if v == nil || v.schemas == nil {
		return nil
	}
	schema, ok := v.schemas[typeTag]
	if !ok {
		return nil
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return rberr.Wrap(rberr.CodeSerializationError, "schema validation failed to run", err)
	}
	if !result.Valid() {
		msg := "payload does not match declared schema"
		if errs := result.Errors(); len(errs) > 0 {
			msg = errs[0].String()
		}
		return rberr.New(rberr.CodeSerializationError, msg)
	}
	return nil
}
