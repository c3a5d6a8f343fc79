package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	LogLevel    string           `mapstructure:"log_level"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	MarketData  MarketDataConfig `mapstructure:"market_data"`
	Analysis    AnalysisConfig   `mapstructure:"analysis"`
	Telegram    TelegramConfig   `mapstructure:"telegram"`
	Admin       AdminConfig      `mapstructure:"admin"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MarketDataConfig configures the OHLCV provider sidecar.
type MarketDataConfig struct {
	ServiceURL string `mapstructure:"service_url"`
	Timeout    int    `mapstructure:"timeout"`
	MaxRetries int    `mapstructure:"max_retries"`
	RetryDelay string `mapstructure:"retry_delay"`
}

// AnalysisConfig carries every tunable of the signal pipeline. It is
// constructor-injected so concurrent analyses can run with different
// parameter sets.
type AnalysisConfig struct {
	RSIPeriod         int         `mapstructure:"rsi_period"`
	MACDFastPeriod    int         `mapstructure:"macd_fast_period"`
	MACDSlowPeriod    int         `mapstructure:"macd_slow_period"`
	MACDSignalPeriod  int         `mapstructure:"macd_signal_period"`
	BollingerPeriod   int         `mapstructure:"bollinger_period"`
	BollingerStdDev   float64     `mapstructure:"bollinger_std_dev"`
	ShortMAPeriod     int         `mapstructure:"short_ma_period"`
	LongMAPeriod      int         `mapstructure:"long_ma_period"`
	RSIOversold       float64     `mapstructure:"rsi_oversold"`
	RSIOverbought     float64     `mapstructure:"rsi_overbought"`
	ConfidenceFloor   int         `mapstructure:"confidence_floor"`
	ConfidenceCeiling int         `mapstructure:"confidence_ceiling"`
	Timeframes        []int       `mapstructure:"timeframes"`
	ExpirationTable   map[int]int `mapstructure:"expiration_table"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	WebhookURL string `mapstructure:"webhook_url"`
}

type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash" json:"-" yaml:"-"`
	ChatID       int64  `mapstructure:"chat_id"`
}

// MinBars is the smallest series length the indicator engine accepts for
// this parameter set. The RSI seed needs one extra bar for its first delta.
func (c AnalysisConfig) MinBars() int {
	minBars := c.MACDSlowPeriod
	if c.LongMAPeriod > minBars {
		minBars = c.LongMAPeriod
	}
	if c.BollingerPeriod > minBars {
		minBars = c.BollingerPeriod
	}
	if c.RSIPeriod+1 > minBars {
		minBars = c.RSIPeriod + 1
	}
	return minBars
}

// ExpirationFor maps a timeframe to its suggested holding window.
// Unknown timeframes fall back to the timeframe itself.
func (c AnalysisConfig) ExpirationFor(timeframeMinutes int) int {
	if exp, ok := c.ExpirationTable[timeframeMinutes]; ok {
		return exp
	}
	return timeframeMinutes
}

func (c MarketDataConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RetryDelay)
	if err != nil || d <= 0 {
		return 500 * time.Millisecond
	}
	return d
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}
	if err := viper.BindEnv("admin.password_hash", "ADMIN_PASSWORD_HASH"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_PASSWORD_HASH environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Analysis.Validate(); err != nil {
		return nil, err
	}
	if config.Environment != "development" && config.Telegram.BotToken == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN environment variable is required in non-development environments")
	}
	if config.MarketData.RetryDelay != "" {
		if _, err := time.ParseDuration(config.MarketData.RetryDelay); err != nil {
			return nil, fmt.Errorf("invalid market data retry delay: %w", err)
		}
	}

	return &config, nil
}

// Validate rejects parameter sets the indicator engine cannot compute with.
func (c AnalysisConfig) Validate() error {
	periods := map[string]int{
		"rsi_period":         c.RSIPeriod,
		"macd_fast_period":   c.MACDFastPeriod,
		"macd_slow_period":   c.MACDSlowPeriod,
		"macd_signal_period": c.MACDSignalPeriod,
		"bollinger_period":   c.BollingerPeriod,
		"short_ma_period":    c.ShortMAPeriod,
		"long_ma_period":     c.LongMAPeriod,
	}
	for name, p := range periods {
		if p <= 0 {
			return fmt.Errorf("analysis %s must be positive, got %d", name, p)
		}
	}
	if c.MACDFastPeriod >= c.MACDSlowPeriod {
		return fmt.Errorf("macd fast period (%d) must be below slow period (%d)", c.MACDFastPeriod, c.MACDSlowPeriod)
	}
	if c.BollingerStdDev <= 0 {
		return fmt.Errorf("bollinger std dev multiplier must be positive, got %f", c.BollingerStdDev)
	}
	if c.ConfidenceFloor < 0 || c.ConfidenceCeiling > 100 || c.ConfidenceFloor > c.ConfidenceCeiling {
		return fmt.Errorf("confidence band [%d, %d] must lie within [0, 100]", c.ConfidenceFloor, c.ConfidenceCeiling)
	}
	if len(c.Timeframes) == 0 {
		return errors.New("at least one analysis timeframe is required")
	}
	for _, tf := range c.Timeframes {
		if tf <= 0 {
			return fmt.Errorf("analysis timeframe must be positive, got %d", tf)
		}
	}
	return nil
}

// DefaultAnalysisConfig mirrors setDefaults for callers that construct the
// pipeline without viper (tests, embedded use).
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		RSIPeriod:         14,
		MACDFastPeriod:    12,
		MACDSlowPeriod:    26,
		MACDSignalPeriod:  9,
		BollingerPeriod:   20,
		BollingerStdDev:   2.0,
		ShortMAPeriod:     9,
		LongMAPeriod:      21,
		RSIOversold:       30,
		RSIOverbought:     70,
		ConfidenceFloor:   50,
		ConfidenceCeiling: 95,
		Timeframes:        []int{1, 5, 15, 30},
		ExpirationTable:   map[int]int{1: 1, 5: 5, 15: 15, 30: 30},
	}
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "tradepulse")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("market_data.service_url", "http://localhost:3001")
	viper.SetDefault("market_data.timeout", 8)
	viper.SetDefault("market_data.max_retries", 3)
	viper.SetDefault("market_data.retry_delay", "500ms")

	def := DefaultAnalysisConfig()
	viper.SetDefault("analysis.rsi_period", def.RSIPeriod)
	viper.SetDefault("analysis.macd_fast_period", def.MACDFastPeriod)
	viper.SetDefault("analysis.macd_slow_period", def.MACDSlowPeriod)
	viper.SetDefault("analysis.macd_signal_period", def.MACDSignalPeriod)
	viper.SetDefault("analysis.bollinger_period", def.BollingerPeriod)
	viper.SetDefault("analysis.bollinger_std_dev", def.BollingerStdDev)
	viper.SetDefault("analysis.short_ma_period", def.ShortMAPeriod)
	viper.SetDefault("analysis.long_ma_period", def.LongMAPeriod)
	viper.SetDefault("analysis.rsi_oversold", def.RSIOversold)
	viper.SetDefault("analysis.rsi_overbought", def.RSIOverbought)
	viper.SetDefault("analysis.confidence_floor", def.ConfidenceFloor)
	viper.SetDefault("analysis.confidence_ceiling", def.ConfidenceCeiling)
	viper.SetDefault("analysis.timeframes", def.Timeframes)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.webhook_url", "")

	viper.SetDefault("admin.password_hash", "")
	viper.SetDefault("admin.chat_id", 0)
}
