package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newscollector/internal/core"
)

// TierDef is one entry of the manifest's tier-definition block.
type TierDef struct {
	Description     string  `yaml:"description"`
	BaseCredibility int     `yaml:"base_credibility"`
	Weight          float64 `yaml:"weight"`
}

// Manifest is the declarative source document loaded at startup. Sources
// are kept in declaration order; unknown fields are ignored.
type Manifest struct {
	Tiers   map[core.Tier]TierDef
	Sources []core.Source
}

// rawManifest matches the YAML document shape. The sources block is decoded
// through a yaml.Node so the declaration order of the id -> source mapping
// survives into Manifest.Sources.
type rawManifest struct {
	Tiers   map[core.Tier]TierDef `yaml:"tiers"`
	Sources yaml.Node             `yaml:"sources"`
}

// LoadManifest reads and parses the source manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses a YAML source manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	manifest := &Manifest{Tiers: raw.Tiers}

	if raw.Sources.Kind != 0 {
		if raw.Sources.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("manifest sources block must be a mapping of id to source")
		}
		// MappingNode content alternates key, value.
		for i := 0; i+1 < len(raw.Sources.Content); i += 2 {
			id := raw.Sources.Content[i].Value
			source := core.Source{Active: true}
			if err := raw.Sources.Content[i+1].Decode(&source); err != nil {
				return nil, fmt.Errorf("failed to decode source %q: %w", id, err)
			}
			source.ID = id
			applyTierDefaults(&source, manifest.Tiers)
			manifest.Sources = append(manifest.Sources, source)
		}
	}

	return manifest, nil
}

// applyTierDefaults backfills source fields from the tier-definition block.
func applyTierDefaults(source *core.Source, tiers map[core.Tier]TierDef) {
	if source.Tier == "" {
		source.Tier = core.Tier2
	}
	if source.BaseCredibility == 0 {
		if def, ok := tiers[source.Tier]; ok {
			source.BaseCredibility = def.BaseCredibility
		}
	}
}
