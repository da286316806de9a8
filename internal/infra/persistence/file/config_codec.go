package file

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"growcore/pkg/domain"
)

// Wire layout written on save. Week keys travel as strings; the standard
// library sorts map keys, keeping saved files diff-friendly.
type configFile struct {
	ActiveSchemeName string                  `json:"active_scheme_name"`
	Schemes          map[string]configScheme `json:"schemes"`
	DefaultEcFactors map[string]float64      `json:"default_ec_factors"`
}

type configScheme struct {
	Fertilizers map[string]configFertilizer `json:"fertilizer_data"`
	EcCurve     map[string]float64          `json:"ec_values"`
}

type configFertilizer struct {
	Schedule map[string]float64 `json:"schedule"`
	EcFactor float64            `json:"ec_contribution_factor"`
}

// Tolerant mirror used on load: numeric fields stay raw so one bad entry is
// dropped with a diagnostic instead of failing the whole file.
type rawScheme struct {
	Fertilizers map[string]rawFertilizer   `json:"fertilizer_data"`
	EcCurve     map[string]json.RawMessage `json:"ec_values"`
}

type rawFertilizer struct {
	Schedule map[string]json.RawMessage `json:"schedule"`
	EcFactor json.RawMessage            `json:"ec_contribution_factor"`
}

// decodeConfig reads either configuration variant. The multi-scheme layout is
// detected by its "schemes" key, the legacy flat layout by "fertilizer_data".
// Missing structural keys for the detected variant are fatal.
func decodeConfig(data []byte, diags *[]Diagnostic) (map[string]domain.Scheme, domain.Settings, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("parse: %w", err)
	}
	if _, ok := top["schemes"]; ok {
		return decodeMultiScheme(top, diags)
	}
	if _, ok := top["fertilizer_data"]; ok {
		return decodeFlat(top, diags)
	}
	return nil, domain.Settings{}, domain.ErrConfigKey{Key: "schemes"}
}

func decodeMultiScheme(top map[string]json.RawMessage, diags *[]Diagnostic) (map[string]domain.Scheme, domain.Settings, error) {
	for _, key := range []string{"active_scheme_name", "schemes", "default_ec_factors"} {
		if _, ok := top[key]; !ok {
			return nil, domain.Settings{}, domain.ErrConfigKey{Key: key}
		}
	}
	var active string
	if err := json.Unmarshal(top["active_scheme_name"], &active); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("active_scheme_name: %w", err)
	}
	var rawSchemes map[string]rawScheme
	if err := json.Unmarshal(top["schemes"], &rawSchemes); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("schemes: %w", err)
	}
	var rawDefaults map[string]json.RawMessage
	if err := json.Unmarshal(top["default_ec_factors"], &rawDefaults); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("default_ec_factors: %w", err)
	}

	schemes := make(map[string]domain.Scheme, len(rawSchemes))
	for name, raw := range rawSchemes {
		scheme := domain.Scheme{
			Name:        name,
			Fertilizers: make(map[string]domain.FertilizerDefinition, len(raw.Fertilizers)),
			EcCurve:     weekValues(fmt.Sprintf("scheme %q ec_values", name), raw.EcCurve, diags),
		}
		for fertName, rawFert := range raw.Fertilizers {
			section := fmt.Sprintf("scheme %q fertilizer %q", name, fertName)
			scheme.Fertilizers[fertName] = domain.FertilizerDefinition{
				Name:     fertName,
				Schedule: weekValues(section, rawFert.Schedule, diags),
				EcFactor: ecFactorValue(section, rawFert.EcFactor, diags),
			}
		}
		schemes[name] = scheme
	}

	defaults := make(map[string]float64, len(rawDefaults))
	for key, raw := range rawDefaults {
		var value float64
		if err := json.Unmarshal(raw, &value); err != nil {
			*diags = append(*diags, Diagnostic{File: configFileName,
				Detail: fmt.Sprintf("default_ec_factors: dropping %q: value is not numeric", key)})
			continue
		}
		defaults[key] = value
	}
	return schemes, domain.Settings{ActiveSchemeName: active, DefaultEcFactors: defaults}, nil
}

// decodeFlat migrates the legacy single-scheme layout: the top-level
// fertilizer tables become one scheme with zero EC contribution factors and
// the built-in default factors are seeded.
func decodeFlat(top map[string]json.RawMessage, diags *[]Diagnostic) (map[string]domain.Scheme, domain.Settings, error) {
	for _, key := range []string{"fertilizer_data", "ec_values"} {
		if _, ok := top[key]; !ok {
			return nil, domain.Settings{}, domain.ErrConfigKey{Key: key}
		}
	}
	var rawFertilizers map[string]map[string]json.RawMessage
	if err := json.Unmarshal(top["fertilizer_data"], &rawFertilizers); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("fertilizer_data: %w", err)
	}
	var rawCurve map[string]json.RawMessage
	if err := json.Unmarshal(top["ec_values"], &rawCurve); err != nil {
		return nil, domain.Settings{}, fmt.Errorf("ec_values: %w", err)
	}

	scheme := domain.Scheme{
		Name:        domain.LegacySchemeName,
		Fertilizers: make(map[string]domain.FertilizerDefinition, len(rawFertilizers)),
		EcCurve:     weekValues("ec_values", rawCurve, diags),
	}
	for name, rawSchedule := range rawFertilizers {
		scheme.Fertilizers[name] = domain.FertilizerDefinition{
			Name:     name,
			Schedule: weekValues(fmt.Sprintf("fertilizer %q", name), rawSchedule, diags),
		}
	}
	*diags = append(*diags, Diagnostic{File: configFileName,
		Detail: fmt.Sprintf("legacy single-scheme layout: migrated to scheme %q", scheme.Name)})
	settings := domain.Settings{
		ActiveSchemeName: scheme.Name,
		DefaultEcFactors: domain.StarterEcFactors(),
	}
	return map[string]domain.Scheme{scheme.Name: scheme}, settings, nil
}

// weekValues converts string week keys to a schedule table, dropping entries
// whose key is not a positive integer or whose value is not numeric.
func weekValues(section string, raw map[string]json.RawMessage, diags *[]Diagnostic) map[int]float64 {
	table := make(map[int]float64, len(raw))
	for key, rawValue := range raw {
		week, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || week < 1 {
			*diags = append(*diags, Diagnostic{File: configFileName,
				Detail: fmt.Sprintf("%s: dropping week %q: not a positive integer", section, key)})
			continue
		}
		var value float64
		if err := json.Unmarshal(rawValue, &value); err != nil {
			*diags = append(*diags, Diagnostic{File: configFileName,
				Detail: fmt.Sprintf("%s: dropping week %q: value is not numeric", section, key)})
			continue
		}
		table[week] = value
	}
	return table
}

func ecFactorValue(section string, raw json.RawMessage, diags *[]Diagnostic) float64 {
	if len(raw) == 0 {
		return 0
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		*diags = append(*diags, Diagnostic{File: configFileName,
			Detail: fmt.Sprintf("%s: ec_contribution_factor is not numeric, using 0", section)})
		return 0
	}
	return value
}

func weekKeys(table map[int]float64) map[string]float64 {
	out := make(map[string]float64, len(table))
	for week, value := range table {
		out[strconv.Itoa(week)] = value
	}
	return out
}

// encodeConfig always writes the multi-scheme layout.
func encodeConfig(schemes map[string]domain.Scheme, settings domain.Settings) ([]byte, error) {
	cfg := configFile{
		ActiveSchemeName: settings.ActiveSchemeName,
		Schemes:          make(map[string]configScheme, len(schemes)),
		DefaultEcFactors: settings.DefaultEcFactors,
	}
	if cfg.DefaultEcFactors == nil {
		cfg.DefaultEcFactors = map[string]float64{}
	}
	for name, scheme := range schemes {
		out := configScheme{
			Fertilizers: make(map[string]configFertilizer, len(scheme.Fertilizers)),
			EcCurve:     weekKeys(scheme.EcCurve),
		}
		for fertName, def := range scheme.Fertilizers {
			out.Fertilizers[fertName] = configFertilizer{
				Schedule: weekKeys(def.Schedule),
				EcFactor: def.EcFactor,
			}
		}
		cfg.Schemes[name] = out
	}
	return json.MarshalIndent(cfg, "", "  ")
}
