package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Mapbox     MapboxConfig
	Weather    WeatherConfig
	Estimator  EstimatorConfig
	Classifier ClassifierConfig
	Resilience ResilienceConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// MapboxConfig holds the routing/geocoding provider configuration
type MapboxConfig struct {
	BaseURL        string
	AccessToken    string
	Profile        string // routing profile, e.g. "driving" or "driving-traffic"
	TimeoutSeconds int
}

// WeatherConfig holds the weather provider configuration
type WeatherConfig struct {
	BaseURL        string
	Timezone       string
	TimeoutSeconds int
}

// EstimatorConfig groups the tunable constants of the fare engine. The
// defaults mirror the documented worked examples; none of them are derived
// from data and all of them are expected to be re-tuned per deployment.
type EstimatorConfig struct {
	// Similarity search geometry
	NarrowIsochroneMinutes int
	WideIsochroneMinutes   int
	NarrowFallbackRadiusM  float64
	WideFallbackRadiusM    float64
	DistanceTolerancePct   float64 // narrow-tier route distance tolerance
	DistrictFallback       bool    // candidate filter: fall back to district when no neighborhood

	// Wide-tier adjustment
	RatePerKm            float64 // currency units per extra kilometre
	CongestionDeltaMin   float64 // 0-100 scale gap before the surcharge applies
	CongestionStepPct    float64 // percentage applied when the gap is exceeded
	SinuosityThreshold   float64
	SinuositySurcharge   float64 // flat amount for tortuous routes

	// Context-relaxed adjustment
	NightSurcharge   float64 // additive day->night amount (negative applied in reverse)
	WeatherStepPct   float64 // multiplicative step per drier->wetter mismatch

	// Fallback
	DayTariff     float64
	NightTariff   float64
	BlendWeights  BlendWeights
	MinCorpusSize int // below this the classifier is considered untrained

	ExternalTimeoutSeconds int // per external call budget
}

// BlendWeights are the fallback blend coefficients, in sub-estimate order.
type BlendWeights struct {
	Distance   float64 `json:"distance"`
	Zone       float64 `json:"zone"`
	Tariff     float64 `json:"tariff"`
	Classifier float64 `json:"classifier"`
}

// ClassifierConfig points at the externally trained price-band artifact.
type ClassifierConfig struct {
	ArtifactPath  string
	ReloadSeconds int
}

// ResilienceConfig groups runtime resilience controls
type ResilienceConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// CircuitBreakerConfig captures default and per-provider breaker tuning
type CircuitBreakerConfig struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	TimeoutSeconds   int
	IntervalSeconds  int
	ServiceOverrides map[string]CircuitBreakerSettings
}

// CircuitBreakerSettings overrides defaults for a specific upstream provider
type CircuitBreakerSettings struct {
	FailureThreshold int `json:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fareengine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Mapbox: MapboxConfig{
			BaseURL:        getEnv("MAPBOX_BASE_URL", "https://api.mapbox.com"),
			AccessToken:    getEnv("MAPBOX_ACCESS_TOKEN", ""),
			Profile:        getEnv("MAPBOX_PROFILE", "driving"),
			TimeoutSeconds: getEnvAsInt("MAPBOX_TIMEOUT_SECONDS", 30),
		},
		Weather: WeatherConfig{
			BaseURL:        getEnv("WEATHER_BASE_URL", "https://api.open-meteo.com"),
			Timezone:       getEnv("WEATHER_TIMEZONE", "Africa/Douala"),
			TimeoutSeconds: getEnvAsInt("WEATHER_TIMEOUT_SECONDS", 10),
		},
		Estimator: EstimatorConfig{
			NarrowIsochroneMinutes: getEnvAsInt("EST_NARROW_ISO_MINUTES", 2),
			WideIsochroneMinutes:   getEnvAsInt("EST_WIDE_ISO_MINUTES", 5),
			NarrowFallbackRadiusM:  getEnvAsFloat("EST_NARROW_RADIUS_M", 50),
			WideFallbackRadiusM:    getEnvAsFloat("EST_WIDE_RADIUS_M", 150),
			DistanceTolerancePct:   getEnvAsFloat("EST_DISTANCE_TOLERANCE_PCT", 10),
			DistrictFallback:       getEnvAsBool("EST_DISTRICT_FALLBACK", true),
			RatePerKm:              getEnvAsFloat("EST_RATE_PER_KM", 100),
			CongestionDeltaMin:     getEnvAsFloat("EST_CONGESTION_DELTA_MIN", 20),
			CongestionStepPct:      getEnvAsFloat("EST_CONGESTION_STEP_PCT", 10),
			SinuosityThreshold:     getEnvAsFloat("EST_SINUOSITY_THRESHOLD", 1.5),
			SinuositySurcharge:     getEnvAsFloat("EST_SINUOSITY_SURCHARGE", 25),
			NightSurcharge:         getEnvAsFloat("EST_NIGHT_SURCHARGE", 50),
			WeatherStepPct:         getEnvAsFloat("EST_WEATHER_STEP_PCT", 10),
			DayTariff:              getEnvAsFloat("EST_DAY_TARIFF", 300),
			NightTariff:            getEnvAsFloat("EST_NIGHT_TARIFF", 350),
			BlendWeights: BlendWeights{
				Distance:   0.30,
				Zone:       0.25,
				Tariff:     0.15,
				Classifier: 0.30,
			},
			MinCorpusSize:          getEnvAsInt("EST_MIN_CORPUS_SIZE", 100),
			ExternalTimeoutSeconds: getEnvAsInt("EST_EXTERNAL_TIMEOUT_SECONDS", 30),
		},
		Classifier: ClassifierConfig{
			ArtifactPath:  getEnv("CLASSIFIER_ARTIFACT_PATH", "artifacts/price_classifier.json"),
			ReloadSeconds: getEnvAsInt("CLASSIFIER_RELOAD_SECONDS", 300),
		},
		Resilience: ResilienceConfig{
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:          getEnvAsBool("CB_ENABLED", false),
				FailureThreshold: getEnvAsInt("CB_FAILURE_THRESHOLD", 5),
				SuccessThreshold: getEnvAsInt("CB_SUCCESS_THRESHOLD", 1),
				TimeoutSeconds:   getEnvAsInt("CB_TIMEOUT_SECONDS", 30),
				IntervalSeconds:  getEnvAsInt("CB_INTERVAL_SECONDS", 60),
			},
		},
	}

	if weights := getEnv("EST_BLEND_WEIGHTS", ""); weights != "" {
		var blend BlendWeights
		if err := json.Unmarshal([]byte(weights), &blend); err != nil {
			return nil, fmt.Errorf("invalid EST_BLEND_WEIGHTS value: %w", err)
		}
		cfg.Estimator.BlendWeights = blend
	}

	if breakerOverrides := getEnv("CB_SERVICE_OVERRIDES", ""); breakerOverrides != "" {
		var serviceConfig map[string]CircuitBreakerSettings
		if err := json.Unmarshal([]byte(breakerOverrides), &serviceConfig); err != nil {
			return nil, fmt.Errorf("invalid CB_SERVICE_OVERRIDES value: %w", err)
		}
		cfg.Resilience.CircuitBreaker.ServiceOverrides = serviceConfig
	}

	if sum := cfg.Estimator.BlendWeights.Sum(); sum <= 0 {
		return nil, fmt.Errorf("blend weights must sum to a positive value, got %f", sum)
	}

	if cfg.Resilience.CircuitBreaker.TimeoutSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.TimeoutSeconds = 30
	}
	if cfg.Resilience.CircuitBreaker.IntervalSeconds <= 0 {
		cfg.Resilience.CircuitBreaker.IntervalSeconds = 60
	}
	if cfg.Resilience.CircuitBreaker.FailureThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	}
	if cfg.Resilience.CircuitBreaker.SuccessThreshold <= 0 {
		cfg.Resilience.CircuitBreaker.SuccessThreshold = 1
	}

	return cfg, nil
}

// Sum returns the total of all blend weights.
func (w BlendWeights) Sum() float64 {
	return w.Distance + w.Zone + w.Tariff + w.Classifier
}

// SettingsFor returns effective breaker settings for a specific upstream provider
func (c CircuitBreakerConfig) SettingsFor(service string) CircuitBreakerSettings {
	settings := CircuitBreakerSettings{
		FailureThreshold: c.FailureThreshold,
		SuccessThreshold: c.SuccessThreshold,
		TimeoutSeconds:   c.TimeoutSeconds,
		IntervalSeconds:  c.IntervalSeconds,
	}

	if c.ServiceOverrides != nil {
		if override, ok := c.ServiceOverrides[service]; ok {
			if override.FailureThreshold > 0 {
				settings.FailureThreshold = override.FailureThreshold
			}
			if override.SuccessThreshold > 0 {
				settings.SuccessThreshold = override.SuccessThreshold
			}
			if override.TimeoutSeconds > 0 {
				settings.TimeoutSeconds = override.TimeoutSeconds
			}
			if override.IntervalSeconds > 0 {
				settings.IntervalSeconds = override.IntervalSeconds
			}
		}
	}

	if settings.SuccessThreshold <= 0 {
		settings.SuccessThreshold = 1
	}
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.TimeoutSeconds <= 0 {
		settings.TimeoutSeconds = 30
	}
	if settings.IntervalSeconds <= 0 {
		settings.IntervalSeconds = 60
	}

	return settings
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as expected by the
// migration tooling.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
