package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	EarthEngine EarthEngineConfig `yaml:"earthengine" mapstructure:"earthengine"`
	Imagery     ImageryConfig     `yaml:"imagery" mapstructure:"imagery"`
	Map         MapConfig         `yaml:"map" mapstructure:"map"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// EarthEngineConfig holds service-account credentials and client tuning.
type EarthEngineConfig struct {
	ServiceAccount          string  `yaml:"service_account" mapstructure:"service_account"`
	Key                     string  `yaml:"key" mapstructure:"key"`
	Project                 string  `yaml:"project" mapstructure:"project"`
	BaseURL                 string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs             int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS            float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxAttempts             int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryBackoffMs          int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
	CircuitFailureThreshold int     `yaml:"circuit_failure_threshold" mapstructure:"circuit_failure_threshold"`
	CircuitResetSecs        int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// ImageryConfig selects the scene catalog and the band-math parameters.
type ImageryConfig struct {
	Collection     string      `yaml:"collection" mapstructure:"collection"`
	CloudProperty  string      `yaml:"cloud_property" mapstructure:"cloud_property"`
	Scale          float64     `yaml:"scale" mapstructure:"scale"`
	BestEffort     bool        `yaml:"best_effort" mapstructure:"best_effort"`
	MaxReflectance float64     `yaml:"max_reflectance" mapstructure:"max_reflectance"`
	Bands          BandsConfig `yaml:"bands" mapstructure:"bands"`
}

// BandsConfig names the spectral bands of the collection.
type BandsConfig struct {
	Blue  string `yaml:"blue" mapstructure:"blue"`
	Green string `yaml:"green" mapstructure:"green"`
	Red   string `yaml:"red" mapstructure:"red"`
	NIR   string `yaml:"nir" mapstructure:"nir"`
}

// MapConfig configures the rendered map.
type MapConfig struct {
	Zoom       int    `yaml:"zoom" mapstructure:"zoom"`
	Width      int    `yaml:"width" mapstructure:"width"`
	Height     int    `yaml:"height" mapstructure:"height"`
	BasemapURL string `yaml:"basemap_url" mapstructure:"basemap_url"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config.yaml and the environment.
// The service-account email and key are also read from SA and KEY.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WATERQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("earthengine.service_account", "WATERQ_EARTHENGINE_SERVICE_ACCOUNT", "SA"); err != nil {
		return nil, eris.Wrap(err, "config: bind SA")
	}
	if err := v.BindEnv("earthengine.key", "WATERQ_EARTHENGINE_KEY", "KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind KEY")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("earthengine.base_url", "https://earthengine.googleapis.com")
	v.SetDefault("earthengine.timeout_secs", 60)
	v.SetDefault("earthengine.rate_limit_rps", 10)
	v.SetDefault("earthengine.max_attempts", 1)
	v.SetDefault("earthengine.retry_backoff_ms", 500)
	v.SetDefault("earthengine.circuit_failure_threshold", 5)
	v.SetDefault("earthengine.circuit_reset_secs", 30)
	v.SetDefault("imagery.collection", "COPERNICUS/S2")
	v.SetDefault("imagery.cloud_property", "CLOUDY_PIXEL_PERCENTAGE")
	v.SetDefault("imagery.scale", 10)
	v.SetDefault("imagery.best_effort", true)
	v.SetDefault("imagery.max_reflectance", 3000)
	v.SetDefault("imagery.bands.blue", "B2")
	v.SetDefault("imagery.bands.green", "B3")
	v.SetDefault("imagery.bands.red", "B4")
	v.SetDefault("imagery.bands.nir", "B8")
	v.SetDefault("map.zoom", 14)
	v.SetDefault("map.width", 1000)
	v.SetDefault("map.height", 600)
	v.SetDefault("map.basemap_url", "https://tile.openstreetmap.org/{z}/{x}/{y}.png")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs before it starts.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "analyze", "export":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if strings.TrimSpace(c.EarthEngine.Key) == "" {
		problems = append(problems, "earthengine.key (or KEY) is required")
	}
	if c.Imagery.Scale <= 0 {
		problems = append(problems, "imagery.scale must be > 0")
	}
	if c.Imagery.Collection == "" {
		problems = append(problems, "imagery.collection is required")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
