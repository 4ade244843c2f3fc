package mapdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema describes the fixture format for editors and validators.
func Schema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}

	schema := reflector.ReflectFromType(reflect.TypeOf(Map{}))
	if schema == nil {
		return nil, fmt.Errorf("failed to reflect map schema")
	}
	schema.Title = "Node Graph Map Fixture"
	schema.Description = "Waypoints, static solids and brush entities a node graph is built from."
	return schema, nil
}

// WriteSchema writes the indented schema to outPath, creating its directory.
func WriteSchema(outPath string) error {
	schema, err := Schema()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	return nil
}
