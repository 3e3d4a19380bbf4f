package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kranzdev/streampipe/pkg/perror"
)

// Parse decodes a PipelineSpec from r and validates it. Callers that
// already trust the source (e.g. embedded test fixtures) may skip
// Validate and call yaml.Unmarshal directly, but Parse is the normal
// entry point.
func Parse(r io.Reader) (*PipelineSpec, error) {
	var spec PipelineSpec
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&spec); err != nil {
		return nil, perror.New(perror.KindValidation, "", fmt.Errorf("decode pipeline spec: %w", err))
	}
	if err := Validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}
