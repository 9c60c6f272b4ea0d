package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrManifest marks every manifest loading failure. Callers treat it as fatal.
var ErrManifest = errors.New("invalid manifest")

// LoadManifest reads the ordered list of copy directives from path.
//
// .json files are decoded with encoding/json, anything else with yaml.v3.
// Unknown fields, a non-list document, and directives without a source or
// target are all rejected: a manifest either loads completely or not at all.
func LoadManifest(path string) ([]Directive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrManifest, path, err)
	}

	// A pointer distinguishes "null" and empty documents from an empty list.
	var list *[]Directive
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrManifest, path, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: %s: trailing data after the directive list", ErrManifest, path)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrManifest, path, err)
		}
	}
	if list == nil {
		return nil, fmt.Errorf("%w: %s: expected a list of directives", ErrManifest, path)
	}
	directives := *list

	for i, d := range directives {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %w", ErrManifest, path, i, err)
		}
	}
	return directives, nil
}

func (d Directive) validate() error {
	switch {
	case strings.TrimSpace(d.Source) == "":
		return errors.New("source is required")
	case strings.TrimSpace(d.Target) == "":
		return errors.New("target is required")
	case filepath.IsAbs(d.Source):
		return fmt.Errorf("source %q must be relative to the dotfiles directory", d.Source)
	case filepath.Clean(d.Source) == ".." || strings.HasPrefix(filepath.Clean(d.Source), "../"):
		return fmt.Errorf("source %q escapes the dotfiles directory", d.Source)
	case !filepath.IsAbs(d.Target) && d.Target != "~" && !strings.HasPrefix(d.Target, "~/"):
		return fmt.Errorf("target %q must be absolute or start with ~/", d.Target)
	}
	for i, c := range d.PreCopy {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("pre_copy[%d] is empty", i)
		}
	}
	for i, c := range d.PostCopy {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("post_copy[%d] is empty", i)
		}
	}
	return nil
}
