package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBaseURL = "https://realmcore.local/schemas/"

// Validator checks inbound payloads against the embedded per-event schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	var names []string
	for _, e := range entries {
		name := e.Name()
		b, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		names = append(names, name)
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", name, err)
		}
		v.schemas[strings.TrimSuffix(name, ".schema.json")] = s
	}
	return v, nil
}

// Known reports whether event has a schema.
func (v *Validator) Known(event string) bool {
	_, ok := v.schemas[event]
	return ok
}

// Validate checks env.Data. Events without a schema pass; routing decides
// what to do with them.
func (v *Validator) Validate(env Envelope) error {
	s, ok := v.schemas[env.Event]
	if !ok {
		return nil
	}
	var doc any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &doc); err != nil {
			return fmt.Errorf("%s: %w", env.Event, err)
		}
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", env.Event, err)
	}
	return nil
}
