package resource

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var seedsYAML []byte

type seedEntry struct {
	ResourceType string         `yaml:"resource_type"`
	ResourceID   string         `yaml:"resource_id"`
	Payload      map[string]any `yaml:"payload"`
}

// SeedRecords returns the built-in sample resources. The seeding step
// inserts them when the table is empty; their embedding starts unset and
// is populated by the same run's backfill loop.
func SeedRecords() ([]Record, error) {
	var entries []seedEntry
	if err := yaml.Unmarshal(seedsYAML, &entries); err != nil {
		return nil, fmt.Errorf("parse seed manifest: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		payload, err := NewPayload(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("seed %s/%s: %w", e.ResourceType, e.ResourceID, err)
		}
		records = append(records, NewRecord(e.ResourceType, e.ResourceID, payload))
	}
	return records, nil
}
