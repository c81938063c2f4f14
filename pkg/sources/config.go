// Package sources reads configured and registered Azure DevOps sources.
package sources

import (
	"fmt"

	"github.com/mattsolo1/grove-workitems/pkg/devops"
	"github.com/mattsolo1/grove-workitems/pkg/models"
	"github.com/mitchellh/mapstructure"
)

// Decode reads the `sources` config value, a list of maps, into validated
// source configs.
func Decode(raw any) ([]models.SourceConfig, error) {
	if raw == nil {
		return []models.SourceConfig{}, nil // No sources configured
	}

	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("sources config is not a list")
	}

	configs := make([]models.SourceConfig, 0, len(entries))
	names := make(map[string]int, len(entries))
	for i, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("sources entry %d is not a map", i)
		}

		var cfg models.SourceConfig
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("create decoder: %w", err)
		}
		if err := decoder.Decode(entry); err != nil {
			return nil, fmt.Errorf("failed to decode sources entry %d: %w", i, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("sources entry %d: %w", i, err)
		}
		if prev, dup := names[cfg.Name]; dup {
			return nil, fmt.Errorf("sources entry %d: name %q is already used by entry %d", i, cfg.Name, prev)
		}
		names[cfg.Name] = i
		configs = append(configs, cfg)
	}

	return configs, nil
}

// Merge appends the registered sources to the configured ones. A registered
// source whose name is also configured is shadowed by the configured one.
// Configured names are unique, see Decode.
func Merge(configured, registered []models.SourceConfig) []models.SourceConfig {
	configuredNames := make(map[string]bool, len(configured))
	for _, c := range configured {
		configuredNames[c.Name] = true
	}

	merged := make([]models.SourceConfig, 0, len(configured)+len(registered))
	merged = append(merged, configured...)
	for _, r := range registered {
		if configuredNames[r.Name] {
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Build turns source configs into sources, failing on the first invalid one.
func Build(configs []models.SourceConfig) ([]devops.Source, error) {
	out := make([]devops.Source, 0, len(configs))
	for _, c := range configs {
		s, err := c.Source()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", c.Name, err)
		}
		out = append(out, s)
	}
	return out, nil
}
