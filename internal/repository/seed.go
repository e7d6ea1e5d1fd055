package repository

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"

	"github.com/notifyhub/supplytrack/internal/domain"
)

// SeedFile is the YAML fixture format: raw records grouped by kind. The kind
// of each record is taken from its section.
type SeedFile struct {
	Shipments []domain.RawEntity `yaml:"shipments"`
	Orders    []domain.RawEntity `yaml:"orders"`
	Samples   []domain.RawEntity `yaml:"samples"`
}

// LoadSeedFile reads and normalizes a fixture file.
func LoadSeedFile(filename string) ([]*domain.TrackedEntity, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes YAML fixture data and normalizes every record.
func ParseSeed(data []byte) ([]*domain.TrackedEntity, error) {
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	sections := []struct {
		kind domain.Kind
		raw  []domain.RawEntity
	}{
		{domain.KindShipment, seed.Shipments},
		{domain.KindOrder, seed.Orders},
		{domain.KindSample, seed.Samples},
	}

	var out []*domain.TrackedEntity
	for _, s := range sections {
		for i, raw := range s.raw {
			raw.Kind = s.kind
			e, err := domain.Normalize(raw)
			if err != nil {
				return nil, fmt.Errorf("%ss[%d]: %w", s.kind, i, err)
			}
			out = append(out, e)
		}
	}
	return out, nil
}
