package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// EngineConfig contiene todos los parámetros que afectan a las decisiones.
type EngineConfig struct {
	KellyFraction     float64 `yaml:"kelly_fraction"`
	MinEdgeThreshold  float64 `yaml:"min_edge_threshold"`
	MaxPositionSize   float64 `yaml:"max_position_size"`
	InitialCapital    float64 `yaml:"initial_capital"`
	MinConfidence     float64 `yaml:"min_confidence"`
	MaxTradesPerCycle int     `yaml:"max_trades_per_cycle"` // 0 = sin límite
	TakeProfit        float64 `yaml:"take_profit"`          // retorno pnl/stake
	StopLoss          float64 `yaml:"stop_loss"`

	MeanReversionMoveThreshold float64 `yaml:"mean_reversion_move_threshold"`
	MeanReversionLookbackHours float64 `yaml:"mean_reversion_lookback_hours"`
	MeanReversionEdgeFloor     float64 `yaml:"mean_reversion_edge_floor"`

	ResolutionArbitrageWindowDays    float64 `yaml:"resolution_arbitrage_window_days"`
	ResolutionArbitrageAmbiguityBand float64 `yaml:"resolution_arbitrage_ambiguity_band"`
	ResolutionArbitrageDirection     string  `yaml:"resolution_arbitrage_direction"` // none | contrarian

	CorrelationTolerance float64 `yaml:"correlation_tolerance"`
}

// SchedulerConfig controla el loop.
type SchedulerConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// APIConfig contiene la configuración del proveedor de mercados.
type APIConfig struct {
	ManifoldBase      string   `yaml:"manifold_base"`
	MarketLimit       int      `yaml:"market_limit"`
	MinVolume24h      float64  `yaml:"min_volume_24h"`
	MaxMarkets        int      `yaml:"max_markets"`
	CorrelationGroups []string `yaml:"correlation_groups"`
}

// StorageConfig controla dónde se persisten portfolio y decisiones.
type StorageConfig struct {
	Backend         string `yaml:"backend"` // json | sqlite
	PortfolioPath   string `yaml:"portfolio_path"`
	DecisionLogPath string `yaml:"decision_log_path"`
	DSN             string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
	File   string `yaml:"file"`   // opcional, con rotación
}

// Error describe un valor de configuración inválido.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Field + ": " + e.Reason
}

// Default devuelve la configuración por defecto. Load parte de ella, así que un
// cero explícito en el YAML se respeta.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			KellyFraction:                    0.25,
			MinEdgeThreshold:                 0.05,
			MaxPositionSize:                  1000,
			InitialCapital:                   10000,
			MinConfidence:                    0,
			MaxTradesPerCycle:                3,
			TakeProfit:                       0.02,
			StopLoss:                         0.03,
			MeanReversionMoveThreshold:       0.10,
			MeanReversionLookbackHours:       24,
			MeanReversionEdgeFloor:           0.05,
			ResolutionArbitrageWindowDays:    7,
			ResolutionArbitrageAmbiguityBand: 0.1,
			ResolutionArbitrageDirection:     "none",
			CorrelationTolerance:             0.05,
		},
		Scheduler: SchedulerConfig{IntervalSeconds: 300},
		API: APIConfig{
			ManifoldBase: "https://api.manifold.markets/v0",
			MarketLimit:  1000,
			MinVolume24h: 100,
			MaxMarkets:   50,
		},
		Storage: StorageConfig{
			Backend:         "json",
			PortfolioPath:   "portfolio.json",
			DecisionLogPath: "bot_history.jsonl",
			DSN:             "predbot.db",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las keys desconocidas son un error. Las variables de entorno sobreescriben
// al YAML.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodifica y valida un documento YAML sobre los defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Interval devuelve el intervalo entre ciclos como time.Duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

// Lookback devuelve la ventana de mean reversion.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.Engine.MeanReversionLookbackHours * float64(time.Hour))
}

// ResolutionWindow devuelve la ventana de resolution arbitrage.
func (c *Config) ResolutionWindow() time.Duration {
	return time.Duration(c.Engine.ResolutionArbitrageWindowDays * 24 * float64(time.Hour))
}

// Validate comprueba rangos y enumerados. Devuelve *Error.
func (c *Config) Validate() error {
	e := c.Engine
	checks := []struct {
		ok     bool
		field  string
		reason string
	}{
		{e.KellyFraction > 0 && e.KellyFraction <= 1, "engine.kelly_fraction", "must be in (0,1]"},
		{e.MinEdgeThreshold >= 0 && e.MinEdgeThreshold < 1, "engine.min_edge_threshold", "must be in [0,1)"},
		{e.MaxPositionSize > 0, "engine.max_position_size", "must be > 0"},
		{e.InitialCapital > 0, "engine.initial_capital", "must be > 0"},
		{e.MinConfidence >= 0 && e.MinConfidence <= 1, "engine.min_confidence", "must be in [0,1]"},
		{e.MaxTradesPerCycle >= 0, "engine.max_trades_per_cycle", "must be >= 0"},
		{e.TakeProfit >= 0, "engine.take_profit", "must be >= 0"},
		{e.StopLoss >= 0, "engine.stop_loss", "must be >= 0"},
		{e.MeanReversionMoveThreshold > 0 && e.MeanReversionMoveThreshold < 1, "engine.mean_reversion_move_threshold", "must be in (0,1)"},
		{e.MeanReversionLookbackHours > 0, "engine.mean_reversion_lookback_hours", "must be > 0"},
		{e.MeanReversionEdgeFloor >= 0 && e.MeanReversionEdgeFloor <= e.MeanReversionMoveThreshold, "engine.mean_reversion_edge_floor", "must be in [0, move_threshold]"},
		{e.ResolutionArbitrageWindowDays > 0, "engine.resolution_arbitrage_window_days", "must be > 0"},
		{e.ResolutionArbitrageAmbiguityBand > 0 && e.ResolutionArbitrageAmbiguityBand <= 0.5, "engine.resolution_arbitrage_ambiguity_band", "must be in (0,0.5]"},
		{oneOf(e.ResolutionArbitrageDirection, "none", "contrarian"), "engine.resolution_arbitrage_direction", "must be none or contrarian"},
		{e.CorrelationTolerance >= 0 && e.CorrelationTolerance < 1, "engine.correlation_tolerance", "must be in [0,1)"},
		{c.Scheduler.IntervalSeconds > 0, "scheduler.interval_seconds", "must be > 0"},
		{c.API.MarketLimit > 0, "api.market_limit", "must be > 0"},
		{c.API.MaxMarkets >= 0, "api.max_markets", "must be >= 0"},
		{oneOf(c.Storage.Backend, "json", "sqlite"), "storage.backend", "must be json or sqlite"},
		{oneOf(c.Log.Level, "debug", "info", "warn", "error"), "log.level", "must be debug, info, warn or error"},
		{oneOf(c.Log.Format, "text", "json"), "log.format", "must be text or json"},
	}
	for _, ch := range checks {
		if !ch.ok {
			return &Error{Field: ch.field, Reason: ch.reason}
		}
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("MANIFOLD_API_BASE"); v != "" {
		cfg.API.ManifoldBase = v
	}
	if v := os.Getenv("PREDBOT_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("PREDBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults rellena los strings que el YAML dejó vacíos explícitamente.
func setDefaults(cfg *Config) {
	def := Default()
	if cfg.Engine.ResolutionArbitrageDirection == "" {
		cfg.Engine.ResolutionArbitrageDirection = def.Engine.ResolutionArbitrageDirection
	}
	if cfg.API.ManifoldBase == "" {
		cfg.API.ManifoldBase = def.API.ManifoldBase
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = def.Storage.Backend
	}
	if cfg.Storage.PortfolioPath == "" {
		cfg.Storage.PortfolioPath = def.Storage.PortfolioPath
	}
	if cfg.Storage.DecisionLogPath == "" {
		cfg.Storage.DecisionLogPath = def.Storage.DecisionLogPath
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = def.Storage.DSN
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
