package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"classmix/solver"
)

// LoadParams overlays a YAML document on the default parameters. Keys
// missing from the document keep their default; unknown keys are rejected.
func LoadParams(r io.Reader) (solver.Params, error) {
	p := solver.DefaultParams
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return p, fmt.Errorf("failed to parse params: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// LoadParamsFile reads path, or returns the defaults when path is empty.
func LoadParamsFile(path string) (solver.Params, error) {
	if path == "" {
		return solver.DefaultParams, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return solver.DefaultParams, err
	}
	defer f.Close()
	return LoadParams(f)
}

// MergeJSON applies stored per-cohort overrides on top of base.
func MergeJSON(base solver.Params, overrides []byte) (solver.Params, error) {
	p := base
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &p); err != nil {
			return base, fmt.Errorf("%w: %v", solver.ErrInvalidParams, err)
		}
	}
	if err := p.Validate(); err != nil {
		return base, err
	}
	return p, nil
}
