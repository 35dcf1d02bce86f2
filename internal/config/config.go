package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Logging    LoggingConfig   `yaml:"logging"`
	Thresholds Thresholds      `yaml:"thresholds"`
	Calendar   CalendarConfig  `yaml:"calendar"`
	Report     ReportConfig    `yaml:"report"`
	Everflow   EverflowConfig  `yaml:"everflow"`
	Snowflake  SnowflakeConfig `yaml:"snowflake"`
	Database   DatabaseConfig  `yaml:"database"`
	Redis      RedisConfig     `yaml:"redis"`
	Storage    StorageConfig   `yaml:"storage"`
	Notify     NotifyConfig    `yaml:"notify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lt=65536"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb" validate:"gt=0"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// Thresholds collects every tunable constant of the variance and action rules.
type Thresholds struct {
	// GlobalStablePct: a portfolio profit move below this percentage of the
	// prior day is treated as stable.
	GlobalStablePct float64 `yaml:"global_stable_pct" validate:"gt=0"`
	// OfferDelta is the absolute USD profit move that flags an offer.
	OfferDelta float64 `yaml:"offer_delta" validate:"gt=0"`
	// AffiliateDelta is the USD move that flags an affiliate under a flagged offer.
	AffiliateDelta float64 `yaml:"affiliate_delta" validate:"gt=0"`
	// PeakDrop is the USD drop from an offer's best day in the peak window.
	PeakDrop float64 `yaml:"peak_drop" validate:"gt=0"`
	// QualifyRevenue is the single-day revenue an offer needs to enter the action list.
	QualifyRevenue float64 `yaml:"qualify_revenue" validate:"gte=0"`
	// DominanceRatio is the share above which one contribution is the dominant driver.
	DominanceRatio float64 `yaml:"dominance_ratio" validate:"gt=0,lt=1"`
	ZeroEpsilon    float64 `yaml:"zero_epsilon" validate:"gt=0"`
	DefaultCap     float64 `yaml:"default_cap" validate:"gt=0"`

	TierRankLimit       int `yaml:"tier_rank_limit" validate:"gt=0"`
	TierSecondRankLimit int `yaml:"tier_second_rank_limit" validate:"gt=0"`
	TrailingDays        int `yaml:"trailing_days" validate:"gt=0"`
	NewBudgetDays       int `yaml:"new_budget_days" validate:"gt=0"`

	StatusDropDelta float64 `yaml:"status_drop_delta" validate:"gt=0"`
	OnlineHoursDrop float64 `yaml:"online_hours_drop" validate:"gt=0"`

	InfluenceOfferDelta    float64 `yaml:"influence_offer_delta" validate:"gt=0"`
	InfluenceCumulativePct float64 `yaml:"influence_cumulative_pct" validate:"gt=0,lte=100"`
	InfluenceMaxOffers     int     `yaml:"influence_max_offers" validate:"gt=0"`
}

// DefaultThresholds returns the production rule constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		GlobalStablePct:        5,
		OfferDelta:             5,
		AffiliateDelta:         3,
		PeakDrop:               5,
		QualifyRevenue:         10,
		DominanceRatio:         0.8,
		ZeroEpsilon:            1e-6,
		DefaultCap:             100,
		TierRankLimit:          10,
		TierSecondRankLimit:    3,
		TrailingDays:           30,
		NewBudgetDays:          7,
		StatusDropDelta:        10,
		OnlineHoursDrop:        4,
		InfluenceOfferDelta:    10,
		InfluenceCumulativePct: 80,
		InfluenceMaxOffers:     10,
	}
}

// CalendarConfig configures the workday calendar.
type CalendarConfig struct {
	// Region selects a built-in holiday rule set ("none" or "us").
	Region   string   `yaml:"region" validate:"oneof=none us"`
	Timezone string   `yaml:"timezone"`
	Holidays []string `yaml:"holidays"`
	// Workdays lists weekend dates that are worked (make-up days).
	Workdays []string `yaml:"workdays"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c CalendarConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReportConfig controls a report run.
type ReportConfig struct {
	Concurrency int    `yaml:"concurrency" validate:"gte=1"`
	Source      string `yaml:"source" validate:"oneof=workbook everflow snowflake postgres"`
	CacheTTLMin int    `yaml:"cache_ttl_minutes"`
	LockTTLSec  int    `yaml:"lock_ttl_seconds"`
}

// CacheTTL returns the report cache expiry.
func (c ReportConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// LockTTL returns the lifetime of the per-date run lock.
func (c ReportConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSec) * time.Second
}

// EverflowConfig holds Everflow API configuration
type EverflowConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	TimezoneID     int      `yaml:"timezone_id"`
	CurrencyID     string   `yaml:"currency_id"`
	AffiliateIDs   []string `yaml:"affiliate_ids"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
}

// Timeout returns the timeout as a time.Duration
func (c EverflowConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SnowflakeConfig holds Snowflake connection settings.
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Table     string `yaml:"table"`
}

// DatabaseConfig holds the Postgres connection for run history.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the Redis connection used for caching and locking.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig holds report artifact storage configuration
type StorageConfig struct {
	Type          string `yaml:"type" validate:"oneof=local aws none"`
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	RetentionDays int    `yaml:"retention_days"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// NotifyConfig holds SES settings for the run summary email.
type NotifyConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Region     string   `yaml:"region"`
	AccessKey  string   `yaml:"access_key"`
	SecretKey  string   `yaml:"secret_key"`
	From       string   `yaml:"from" validate:"omitempty,email"`
	Recipients []string `yaml:"recipients" validate:"dive,email"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML bytes, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Thresholds default field by field so a partial block keeps the rest.
	def := DefaultThresholds()
	t := &cfg.Thresholds
	setFloat(&t.GlobalStablePct, def.GlobalStablePct)
	setFloat(&t.OfferDelta, def.OfferDelta)
	setFloat(&t.AffiliateDelta, def.AffiliateDelta)
	setFloat(&t.PeakDrop, def.PeakDrop)
	setFloat(&t.QualifyRevenue, def.QualifyRevenue)
	setFloat(&t.DominanceRatio, def.DominanceRatio)
	setFloat(&t.ZeroEpsilon, def.ZeroEpsilon)
	setFloat(&t.DefaultCap, def.DefaultCap)
	setFloat(&t.StatusDropDelta, def.StatusDropDelta)
	setFloat(&t.OnlineHoursDrop, def.OnlineHoursDrop)
	setFloat(&t.InfluenceOfferDelta, def.InfluenceOfferDelta)
	setFloat(&t.InfluenceCumulativePct, def.InfluenceCumulativePct)
	setInt(&t.TierRankLimit, def.TierRankLimit)
	setInt(&t.TierSecondRankLimit, def.TierSecondRankLimit)
	setInt(&t.TrailingDays, def.TrailingDays)
	setInt(&t.NewBudgetDays, def.NewBudgetDays)
	setInt(&t.InfluenceMaxOffers, def.InfluenceMaxOffers)

	if cfg.Calendar.Region == "" {
		cfg.Calendar.Region = "none"
	}
	if cfg.Report.Concurrency == 0 {
		cfg.Report.Concurrency = 4
	}
	if cfg.Report.Source == "" {
		cfg.Report.Source = "workbook"
	}
	if cfg.Report.CacheTTLMin == 0 {
		cfg.Report.CacheTTLMin = 60
	}
	if cfg.Report.LockTTLSec == 0 {
		cfg.Report.LockTTLSec = 300
	}
	if cfg.Everflow.BaseURL == "" {
		cfg.Everflow.BaseURL = "https://api.eflow.team"
	}
	if cfg.Everflow.TimezoneID == 0 {
		cfg.Everflow.TimezoneID = 90
	}
	if cfg.Everflow.CurrencyID == "" {
		cfg.Everflow.CurrencyID = "USD"
	}
	if cfg.Everflow.TimeoutSeconds == 0 {
		cfg.Everflow.TimeoutSeconds = 120
	}
	if cfg.Everflow.MaxRetries == 0 {
		cfg.Everflow.MaxRetries = 3
	}
	if cfg.Snowflake.Table == "" {
		cfg.Snowflake.Table = "OFFER_DAILY_PERFORMANCE"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/reports"
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 90
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Notify.Region == "" {
		cfg.Notify.Region = "us-west-2"
	}
}

func setFloat(dst *float64, def float64) {
	if *dst == 0 {
		*dst = def
	}
}

func setInt(dst *int, def int) {
	if *dst == 0 {
		*dst = def
	}
}

var validate = validator.New()

// Validate checks field constraints declared in struct tags.
func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Thresholds.TierSecondRankLimit > cfg.Thresholds.TierRankLimit {
		return fmt.Errorf("invalid config: tier_second_rank_limit %d exceeds tier_rank_limit %d",
			cfg.Thresholds.TierSecondRankLimit, cfg.Thresholds.TierRankLimit)
	}
	return nil
}

// LoadFromEnv loads config from file and environment variables.
// A missing config file is not an error: defaults plus env are used.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	if v := os.Getenv("OFFERDIAG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("OFFERDIAG_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("OFFERDIAG_SOURCE"); v != "" {
		cfg.Report.Source = v
	}
	if apiKey := os.Getenv("EVERFLOW_API_KEY"); apiKey != "" {
		cfg.Everflow.APIKey = apiKey
	}
	if baseURL := os.Getenv("EVERFLOW_BASE_URL"); baseURL != "" {
		cfg.Everflow.BaseURL = baseURL
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if bucket := os.Getenv("REPORT_S3_BUCKET"); bucket != "" {
		cfg.Storage.S3Bucket = bucket
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Notify.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Notify.SecretKey = secretKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
