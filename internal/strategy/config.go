package strategy

import "time"

// Config agrupa la configuración de los tres detectores.
type Config struct {
	MeanReversion       MeanReversionConfig
	ResolutionArbitrage ResolutionArbitrageConfig
	CorrelationLag      CorrelationLagConfig
}

// MeanReversionConfig controla el detector de reversión a la media.
type MeanReversionConfig struct {
	MoveThreshold      float64       // |Δ| mínimo para emitir (0.10 = 10 pp)
	Lookback           time.Duration // ventana del baseline
	EdgeFloor          float64       // se resta de |Δ| para el edge
	EdgeCap            float64
	ReferenceOvershoot float64 // overshoot que da confianza máxima
	MaxConfidence      float64
}

// ResolutionArbitrageConfig controla el detector de arbitraje de resolución.
type ResolutionArbitrageConfig struct {
	Window        time.Duration // solo mercados que cierran antes de Window
	AmbiguityBand float64       // |p − 0.5| < band
	EdgeScale     float64
	EdgeCap       float64
	MaxConfidence float64
}

// CorrelationLagConfig controla el detector de lag entre mercados correlacionados.
type CorrelationLagConfig struct {
	Tolerance     float64 // spread tolerado entre mercados del mismo grupo
	EdgeCap       float64
	MaxConfidence float64
}

// DefaultConfig devuelve los valores por defecto de los tres detectores.
func DefaultConfig() Config {
	return Config{
		MeanReversion: MeanReversionConfig{
			MoveThreshold:      0.10,
			Lookback:           24 * time.Hour,
			EdgeFloor:          0.05,
			EdgeCap:            0.5,
			ReferenceOvershoot: 0.20,
			MaxConfidence:      0.8,
		},
		ResolutionArbitrage: ResolutionArbitrageConfig{
			Window:        7 * 24 * time.Hour,
			AmbiguityBand: 0.1,
			EdgeScale:     0.2,
			EdgeCap:       0.5,
			MaxConfidence: 0.8,
		},
		CorrelationLag: CorrelationLagConfig{
			Tolerance:     0.05,
			EdgeCap:       0.5,
			MaxConfidence: 0.8,
		},
	}
}
