package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	magerr "github.com/mag-gateway/mag/internal/errors"
)

// FileName is the policy document's file name inside the state directory.
const FileName = "policy.json"

// Path returns the policy file path under the hidden state directory.
func Path(stateDir string) string {
	return filepath.Join(stateDir, FileName)
}

// LoadOrCreate loads the policy document from stateDir, writing the default
// document first when none exists. Parse or validation failure is a
// configuration error; the caller is expected to treat it as fatal.
func LoadOrCreate(stateDir string) (*Document, error) {
	path := Path(stateDir)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("creating default policy document")
		if err := Save(stateDir, Default()); err != nil {
			return nil, magerr.Configuration("policy.create_default", err)
		}
	}

	doc, err := parseFile(path)
	if err != nil {
		return nil, magerr.Configuration("policy.load", fmt.Errorf("%s: %w", path, err))
	}
	return doc, nil
}

// Save validates and writes the document to stateDir. The write replaces
// the previous document atomically via rename.
func Save(stateDir string, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("policy validation failed: %w", err)
	}
	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}
	data = append(data, '\n')

	path := Path(stateDir)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func parseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var doc Document
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	if doc.Tools == nil {
		return nil, fmt.Errorf("missing 'tools' section")
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("policy validation failed: %w", err)
	}
	return &doc, nil
}
