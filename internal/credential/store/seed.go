package store

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"certguard/internal/credential/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// DefaultSeed returns the built-in issued credentials.
func DefaultSeed() ([]models.CredentialRecord, error) {
	return ParseSeed(bytes.NewReader(defaultSeed))
}

// LoadSeedFile reads seed records from a YAML file.
func LoadSeedFile(path string) ([]models.CredentialRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// ParseSeed decodes a YAML list of records, normalizing and validating each.
func ParseSeed(r io.Reader) ([]models.CredentialRecord, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var records []models.CredentialRecord
	if err := dec.Decode(&records); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i := range records {
		records[i] = records[i].Normalize()
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("seed record %d (%s): %w", i, records[i].CertificateID, err)
		}
	}
	return records, nil
}
