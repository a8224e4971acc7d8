package manifold

// DTOs raw de la API de Manifold. Solo se usan dentro de este paquete.
// La conversión a domain.MarketSnapshot se hace en mapping.go.

// apiMarket es un item de GET /markets o GET /market/{id}.
// Los campos opcionales son punteros para distinguir "ausente" de cero.
type apiMarket struct {
	ID                    string   `json:"id"`
	Question              string   `json:"question"`
	OutcomeType           string   `json:"outcomeType"`
	Type                  string   `json:"type"` // formato antiguo: "BINARY_MARKET"
	Probability           *float64 `json:"probability"`
	CloseTime             *int64   `json:"closeTime"` // ms desde epoch
	Volume24h             float64  `json:"volume24h"`
	Volume24Hours         float64  `json:"volume24Hours"`
	IsResolved            bool     `json:"isResolved"`
	Resolution            string   `json:"resolution"`
	ResolutionProbability *float64 `json:"resolutionProbability"`
	GroupSlugs            []string `json:"groupSlugs"`
}

// volume devuelve el volumen de 24h con cualquiera de los dos nombres de campo.
func (m apiMarket) volume() float64 {
	if m.Volume24h > 0 {
		return m.Volume24h
	}
	return m.Volume24Hours
}

// isBinary devuelve true para mercados binarios YES/NO.
func (m apiMarket) isBinary() bool {
	return m.OutcomeType == "BINARY" || m.Type == "BINARY_MARKET"
}

// apiHistoryPoint es una muestra de GET /market/{id}/history.
type apiHistoryPoint struct {
	CreatedTime int64    `json:"createdTime"` // ms desde epoch
	Prob        *float64 `json:"prob"`
}
