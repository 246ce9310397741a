package ingestion

import (
	"strings"

	"github.com/moldex-io/moldex/pkg/errors"
)

// ColumnMapping maps a CSV column name to a target property name. The
// reserved target "smiles" identifies the structure column; every other
// target must be a known PropertyDefinition name or a "custom_"-prefixed
// name, per spec §4.4 phase 3.
type ColumnMapping map[string]string

const smilesTarget = "smiles"

// aliasGroups pairs a target property name with the column-name substrings
// that suggest it, mirroring the heuristic match rules from spec §4.4
// phase 2 (mw, logp, log p, mp, ic50, ...).
var aliasGroups = []struct {
	target   string
	contains []string
}{
	{"molecular_weight", []string{"weight", "mw"}},
	{"logp", []string{"logp", "log_p", "log p"}},
	{"solubility", []string{"solubility", "sol"}},
	{"tpsa", []string{"tpsa", "polar surface", "surface area"}},
	{"melting_point", []string{"mp", "melting"}},
	{"ic50", []string{"ic50", "ic_50", "ic 50"}},
	{"ec50", []string{"ec50", "ec_50", "ec 50"}},
}

var smilesColumnNames = []string{"smiles", "structure", "molecule", "mol", "smi", "canonical_smiles"}

// PropertyCatalog exposes the known PropertyDefinition names and display
// names used to build mapping suggestions. The Molecule Store's
// PropertyDefinition repository backs this in a wired deployment.
type PropertyCatalog interface {
	Names() []string
	DisplayName(name string) string
}

// SuggestMapping proposes a ColumnMapping for headers against catalog,
// per spec §4.4 phase 2: case-insensitive match against common SMILES
// column aliases first, PropertyDefinition name/display_name second, then
// numeric column-name heuristics for the remaining unmapped columns.
func SuggestMapping(headers []string, catalog PropertyCatalog) ColumnMapping {
	suggestion := make(ColumnMapping)
	lower := make(map[string]string, len(headers))
	for _, h := range headers {
		lower[strings.ToLower(strings.TrimSpace(h))] = h
	}

	for _, name := range smilesColumnNames {
		if col, ok := lower[name]; ok {
			suggestion[col] = smilesTarget
			break
		}
	}

	if catalog != nil {
		for _, name := range catalog.Names() {
			if name == smilesTarget {
				continue
			}
			display := strings.ToLower(catalog.DisplayName(name))
			if col, ok := lower[display]; ok {
				if _, taken := suggestion[col]; !taken {
					suggestion[col] = name
				}
				continue
			}
			if col, ok := lower[strings.ToLower(name)]; ok {
				if _, taken := suggestion[col]; !taken {
					suggestion[col] = name
				}
			}
		}
	}

	for _, h := range headers {
		if _, mapped := suggestion[h]; mapped {
			continue
		}
		hl := strings.ToLower(h)
		for _, group := range aliasGroups {
			if containsAny(hl, group.contains) {
				suggestion[h] = group.target
				break
			}
		}
	}

	return suggestion
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Validate checks m against headers and knownTargets per spec §4.4 phase 3:
// every mapped column must exist in headers, no column may repeat, smiles
// must be targeted at least once, and every target must be a known
// PropertyDefinition name or a custom_-prefixed name.
func (m ColumnMapping) Validate(headers []string, knownTargets map[string]bool) error {
	headerSet := make(map[string]int, len(headers))
	for _, h := range headers {
		headerSet[h]++
	}
	for h, count := range headerSet {
		if count > 1 {
			return errors.InvalidParam("duplicate CSV column name: " + h)
		}
	}

	hasSMILES := false
	for col, target := range m {
		if _, ok := headerSet[col]; !ok {
			return errors.InvalidParam("column mapping references unknown CSV column: " + col)
		}
		if target == smilesTarget {
			hasSMILES = true
			continue
		}
		if strings.HasPrefix(target, "custom_") {
			continue
		}
		if knownTargets != nil && !knownTargets[target] {
			return errors.InvalidParam("column mapping target is not a known property: " + target)
		}
	}
	if !hasSMILES {
		return errors.InvalidParam("column mapping must target smiles at least once")
	}
	return nil
}
