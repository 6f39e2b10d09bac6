package jbovlaste

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// RawStore loads decoded exports, caching them as JSON next to the XML.
type RawStore struct {
	XMLDir  string
	JSONDir string
	Logger  *slog.Logger
}

// XMLPath is where the export of lang is expected.
func (s *RawStore) XMLPath(lang string) string {
	return filepath.Join(s.XMLDir, XMLName(lang))
}

// JSONPath is the cache file of lang.
func (s *RawStore) JSONPath(lang string) string {
	return filepath.Join(s.JSONDir, "jbo-"+lang+".json")
}

// XMLName is the export file name of lang.
func XMLName(lang string) string {
	return "jbo-" + lang + "-xml.xml"
}

// Load returns the valsi of lang from the JSON cache, decoding the XML export
// and writing the cache when it is missing.
func (s *RawStore) Load(lang string) ([]Valsi, error) {
	if err := CheckLang(lang); err != nil {
		return nil, err
	}
	logger := s.logger().With(slog.String("lang", lang))

	cache := s.JSONPath(lang)
	data, err := os.ReadFile(cache)
	switch {
	case err == nil:
		var valsis []Valsi
		if err := json.Unmarshal(data, &valsis); err != nil {
			return nil, fmt.Errorf("decode %s: %w", cache, err)
		}
		logger.Info("loaded cache", slog.String("path", cache), slog.Int("valsi", len(valsis)))
		return valsis, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", cache, err)
	}

	src := s.XMLPath(lang)
	logger.Info("cache missing, decoding export", slog.String("path", src))
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	valsis, err := ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	if err := s.save(cache, valsis); err != nil {
		return nil, err
	}
	logger.Info("wrote cache", slog.String("path", cache), slog.Int("valsi", len(valsis)))
	return valsis, nil
}

func (s *RawStore) save(path string, valsis []Valsi) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(valsis, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}

func (s *RawStore) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
