package models

import "strings"

var kindSynonyms = map[string]DatasetKind{
	"material":   KindMaterial,
	"energy":     KindEnergy,
	"energie":    KindEnergy,
	"waste":      KindWaste,
	"abfall":     KindWaste,
	"emissions":  KindEmissions,
	"emissionen": KindEmissions,
}

// NormalizeKind maps free-text kind input to a canonical DatasetKind.
// Matching ignores case and surrounding whitespace; unknown or empty input
// yields KindMaterial.
func NormalizeKind(raw string) DatasetKind {
	if k, ok := kindSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return k
	}
	return KindMaterial
}

// ParsePhase maps free-text stage input to a Phase, defaulting to
// PhaseProduction.
func ParsePhase(raw string) Phase {
	return Phase(strings.ToLower(strings.TrimSpace(raw))).OrDefault()
}
