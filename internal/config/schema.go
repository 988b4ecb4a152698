package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://twlint.dev/schema/config.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("adding embedded schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// validate checks a raw configuration map against the embedded schema.
func validate(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so values have the types the validator expects
	// (durations become integers, TOML integers become json.Number).
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decoding configuration: %w", err)
	}
	return sch.Validate(inst)
}
