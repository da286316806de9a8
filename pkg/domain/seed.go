package domain

// Built-in starter data for fresh installations: the substrate feeding plan
// the application originally shipped with, covering weeks 1 through 20.

// StarterSchemeName is the name of the scheme created by Bootstrap.
const StarterSchemeName = "substrate"

// LegacySchemeName is the scheme name assigned when a flat single-scheme
// configuration file is migrated to the multi-scheme layout.
const LegacySchemeName = "default"

// Named default EC contribution factors in µS/cm per ml/L.
const (
	EcFactorGrowth = 478.0
	EcFactorBloom  = 430.0
)

const starterWeeks = 20

// starterTable fills weeks 1..len(early) from the slice and plateaus the
// remaining weeks up to starterWeeks at the given value.
func starterTable(early []float64, plateau float64) map[int]float64 {
	table := make(map[int]float64, starterWeeks)
	for i, value := range early {
		table[i+1] = value
	}
	for week := len(early) + 1; week <= starterWeeks; week++ {
		table[week] = plateau
	}
	return table
}

// StarterEcFactors returns the named EC factor presets for the growth and
// bloom products.
func StarterEcFactors() map[string]float64 {
	return map[string]float64{
		"growth": EcFactorGrowth,
		"bloom":  EcFactorBloom,
	}
}

// StarterScheme returns the built-in substrate scheme with its six products
// and EC target curve. Each call returns an independent copy.
func StarterScheme() Scheme {
	fertilizers := map[string]FertilizerDefinition{
		"CalMag - Substrate - Prevention": {
			Name:     "CalMag - Substrate - Prevention",
			Schedule: starterTable([]float64{0.3, 0.3, 0.3, 0.4, 0.4, 0.5, 0.6, 0.7, 0.8}, 0.8),
		},
		"CalMag - Substrate - Correction": {
			Name:     "CalMag - Substrate - Correction",
			Schedule: starterTable([]float64{0.5, 0.5, 0.5, 0.6, 0.6, 0.8, 0.8, 1.0, 1.1}, 1.2),
		},
		"GreenHome Wachstumsduenger - Substrate": {
			Name:     "GreenHome Wachstumsduenger - Substrate",
			Schedule: starterTable([]float64{2.0, 2.27, 2.54, 2.81, 3.08, 3.35, 3.62, 3.89, 4.16}, 4.45),
			EcFactor: EcFactorGrowth,
		},
		"GreenHome Bluetenduenger - Substrate": {
			Name:     "GreenHome Bluetenduenger - Substrate",
			Schedule: starterTable([]float64{3.0, 3.33, 3.67, 4.0, 4.33, 4.67, 5.0, 5.33, 5.67}, 6.0),
			EcFactor: EcFactorBloom,
		},
		"Fish-Mix (5-1-4) - Substrate": {
			Name:     "Fish-Mix (5-1-4) - Substrate",
			Schedule: starterTable([]float64{0, 2, 2, 2, 3, 3, 4}, 4),
		},
		"Root-Juice": {
			Name:     "Root-Juice",
			Schedule: starterTable(nil, 4),
		},
	}
	return Scheme{
		Name:        StarterSchemeName,
		Fertilizers: fertilizers,
		EcCurve: starterTable([]float64{
			0.4, 0.6, 0.7, 0.9, 1.0, 1.2, 1.4, 1.5, 1.6,
			1.6, 1.7, 1.7, 1.8, 1.8, 1.9, 1.9, 1.9,
		}, 2.0),
	}
}

// StarterSettings returns the repository settings matching StarterScheme.
func StarterSettings() Settings {
	return Settings{
		ActiveSchemeName: StarterSchemeName,
		DefaultEcFactors: StarterEcFactors(),
	}
}
