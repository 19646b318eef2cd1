package entity

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CodeRange is an inclusive range of numeric GeoIdentifiers.
type CodeRange struct {
	Low  int64 `yaml:"low"`
	High int64 `yaml:"high"`
}

// Contains reports whether n lies within the range.
func (r CodeRange) Contains(n int64) bool {
	return n >= r.Low && n <= r.High
}

// Policy is the aggregate-detection table used by Classify.
type Policy struct {
	ContinentNames       []string    `yaml:"continent_names"`
	ExactAggregateNames  []string    `yaml:"exact_aggregate_names"`
	AggregatePatterns    []string    `yaml:"aggregate_patterns"`
	RegionCodeExclusions []CodeRange `yaml:"region_code_exclusions"`
	WorldName            string      `yaml:"world_name"`
}

// DefaultPolicy returns the M49 continents, sub-regions and statistical
// groupings published alongside FAOSTAT country data.
func DefaultPolicy() Policy {
	return Policy{
		ContinentNames: []string{"Africa", "Americas", "Asia", "Europe", "Oceania"},
		ExactAggregateNames: []string{
			"World",
			"Eastern Africa", "Middle Africa", "Northern Africa", "Southern Africa", "Western Africa",
			"Northern America", "Central America", "Caribbean", "South America",
			"Central Asia", "Eastern Asia", "Southern Asia", "South-eastern Asia", "Western Asia",
			"Eastern Europe", "Northern Europe", "Southern Europe", "Western Europe",
			"Australia and New Zealand", "Melanesia", "Micronesia", "Polynesia",
			"European Union (27)", "European Union (28)",
			"Least Developed Countries", "Land Locked Developing Countries",
			"Small Island Developing States", "Low Income Food Deficit Countries",
			"Net Food Importing Developing Countries",
		},
		AggregatePatterns: []string{
			"(total)",
			"European Union",
			"Developing",
			"Least Developed",
			"Land Locked",
			"Small Island",
			"Net Food Importing",
			"Low Income",
			"SIDS",
			"Annex I",
		},
		RegionCodeExclusions: []CodeRange{
			{Low: 0, High: 3},
			{Low: 900, High: 999},
		},
		WorldName: "World",
	}
}

// LoadPolicy reads a policy from YAML. Lists left empty in the file keep the
// defaults so a file can override only what it names.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "entity: read policy %s", path)
	}

	var wrapper struct {
		Classify Policy `yaml:"classify"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Policy{}, eris.Wrap(err, "entity: parse policy")
	}

	p := wrapper.Classify
	def := DefaultPolicy()
	if len(p.ContinentNames) == 0 {
		p.ContinentNames = def.ContinentNames
	}
	if len(p.ExactAggregateNames) == 0 {
		p.ExactAggregateNames = def.ExactAggregateNames
	}
	if len(p.AggregatePatterns) == 0 {
		p.AggregatePatterns = def.AggregatePatterns
	}
	if len(p.RegionCodeExclusions) == 0 {
		p.RegionCodeExclusions = def.RegionCodeExclusions
	}
	if p.WorldName == "" {
		p.WorldName = def.WorldName
	}
	for _, r := range p.RegionCodeExclusions {
		if r.Low > r.High {
			return Policy{}, eris.Errorf("entity: exclusion range %d-%d is inverted", r.Low, r.High)
		}
	}
	return p, nil
}
