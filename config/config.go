package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"carpulse/metrics"
)

type Config struct {
	DatabaseURL string
	Artifacts   ArtifactConfig
	Scheduler   SchedulerConfig
	Analysis    AnalysisConfig
	Interest    metrics.Weights
	StaleAfter  time.Duration
	LogLevel    string
	Sources     map[string]*SourceConfig
}

type ArtifactConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c ArtifactConfig) Enabled() bool {
	return c.Bucket != ""
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type AnalysisConfig struct {
	TopK    int
	Workers int
}

// SourceConfig describes one upstream connector loaded from
// config/sources/*.yaml.
type SourceConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Kind        string            `yaml:"kind"` // catalog, sales, trend, registry, blog
	Provider    string            `yaml:"provider"`
	RateLimitMS int               `yaml:"rate_limit_ms"`
	Endpoints   map[string]string `yaml:"endpoints"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Artifacts: ArtifactConfig{
			Bucket:          os.Getenv("ARTIFACT_BUCKET"),
			Region:          getEnv("ARTIFACT_REGION", "ap-northeast-2"),
			Endpoint:        os.Getenv("ARTIFACT_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARTIFACT_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARTIFACT_SECRET_ACCESS_KEY"),
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("COLLECT_CRON"),
		},
		Analysis: AnalysisConfig{
			TopK:    getEnvInt("ANALYSIS_TOP_K", 30),
			Workers: getEnvInt("ANALYSIS_WORKERS", 4),
		},
		// interest-score weighting is deployment configuration; the
		// aggregator itself carries no weight set
		Interest: metrics.Weights{
			Naver:      getEnvFloat("INTEREST_WEIGHT_NAVER", 0.4),
			Google:     getEnvFloat("INTEREST_WEIGHT_GOOGLE", 0.4),
			Popularity: getEnvFloat("INTEREST_WEIGHT_POPULARITY", 0.2),
		},
		StaleAfter: 2 * time.Hour,
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		Sources:    make(map[string]*SourceConfig),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Interest.Validate(); err != nil {
		return nil, err
	}

	if interval := os.Getenv("COLLECT_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err == nil {
			cfg.Scheduler.Interval = d
		}
	}

	if stale := os.Getenv("JOB_STALE_AFTER"); stale != "" {
		d, err := time.ParseDuration(stale)
		if err == nil {
			cfg.StaleAfter = d
		}
	}

	if err := cfg.loadSourceConfigs(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadSourceConfigs() error {
	configDir := "config/sources"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var source SourceConfig
		if err := yaml.Unmarshal(data, &source); err != nil {
			return err
		}

		c.Sources[source.ID] = &source
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
