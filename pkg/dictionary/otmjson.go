package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotOTM is wrapped by every validation failure.
var ErrNotOTM = errors.New("not an OTM-JSON document")

// ValidationError describes the first structural problem found in a document.
type ValidationError struct {
	// Index is the offending word position, or -1 for document-level problems.
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("otm-json: %s", e.Reason)
	}
	return fmt.Sprintf("otm-json: word %d: %s", e.Index, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrNotOTM }

// Load decodes and validates an OTM-JSON document.
func Load(r io.Reader) (*Dictionary, error) {
	var doc struct {
		Words *[]Word    `json:"words"`
		Meta  Metadata   `json:"meta"`
		ZpDIC *ZpDICInfo `json:"zpdic"`
	}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode otm-json: %w", err)
	}
	if doc.Words == nil {
		return nil, &ValidationError{Index: -1, Reason: "missing words array"}
	}
	d := &Dictionary{Words: *doc.Words, Meta: doc.Meta, ZpDIC: doc.ZpDIC}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadFile reads a .json OTM-JSON file.
func LoadFile(path string) (*Dictionary, error) {
	if !strings.HasSuffix(path, ".json") {
		return nil, fmt.Errorf("load %s: filename must end with .json", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return d, nil
}

// Validate checks the invariants every word must satisfy.
func (d *Dictionary) Validate() error {
	if d.Words == nil {
		return &ValidationError{Index: -1, Reason: "missing words array"}
	}
	for i, w := range d.Words {
		if w.Entry.Form == "" {
			return &ValidationError{Index: i, Reason: fmt.Sprintf("entry %d has an empty form", w.Entry.ID)}
		}
		for j, r := range w.Relations {
			if r.Entry.Form == "" {
				return &ValidationError{Index: i, Reason: fmt.Sprintf("relation %d of %q has an empty form", j, w.Entry.Form)}
			}
		}
	}
	return nil
}

// Save writes d as two-space indented OTM-JSON without HTML escaping.
func (d *Dictionary) Save(w io.Writer) error {
	doc := *d
	if doc.Words == nil {
		doc.Words = []Word{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode otm-json: %w", err)
	}
	return nil
}

// SaveFile writes d to path, creating parent directories.
func (d *Dictionary) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}
