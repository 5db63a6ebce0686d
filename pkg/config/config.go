package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	TPO       TPOConfig       `yaml:"tpo"`
	VWAP      VWAPConfig      `yaml:"vwap"`
	OrderFlow OrderFlowConfig `yaml:"orderflow"`
	Signals   SignalsConfig   `yaml:"signals"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Kafka     struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"flowsight.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"5s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"flowsight-signals"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"256"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes" default:"1"`
			MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"flowsight"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

// ExchangeConfig covers the market-data transport: stream endpoint, REST
// endpoint for history and open interest, and the monitored symbols.
type ExchangeConfig struct {
	WebSocketURL   string        `yaml:"websocket_url" default:"wss://fstream.binance.com/stream"`
	RESTURL        string        `yaml:"rest_url" default:"https://fapi.binance.com"`
	Symbols        []string      `yaml:"symbols"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
	PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	OIPollInterval time.Duration `yaml:"oi_poll_interval" default:"30s"`
	WarmupBars     int           `yaml:"warmup_bars" default:"60"`
	EventBuffer    int           `yaml:"event_buffer" default:"1024"`
}

type TPOConfig struct {
	TickSize         float64 `yaml:"tick_size" default:"0.1"`
	SessionStart     string  `yaml:"session_start" default:"00:00"`
	SessionDuration  int     `yaml:"session_duration" default:"24"`
	TimeSliceMinutes int     `yaml:"time_slice_minutes" default:"30"`
	ValueAreaPercent float64 `yaml:"value_area_percent" default:"70"`
	Structure        struct {
		ProximityTicks int `yaml:"proximity_ticks" default:"5"`
	} `yaml:"structure"`
}

type VWAPConfig struct {
	SessionReset      string    `yaml:"session_reset" default:"00:00"`
	StdDevBands       []float64 `yaml:"std_dev_bands" default:"[1,2]"`
	SlopeLookbackBars int       `yaml:"slope_lookback_bars" default:"20"`
	SlopeThreshold    float64   `yaml:"slope_threshold" default:"0.5"`
	Pullback          struct {
		TolerancePercent float64 `yaml:"tolerance_percent" default:"0.1"`
		ConfirmationBars int     `yaml:"confirmation_bars" default:"2"`
	} `yaml:"pullback"`
}

type OrderFlowConfig struct {
	Delta struct {
		SignificantThreshold float64 `yaml:"significant_threshold" default:"100"`
		ConsecutiveBars      int     `yaml:"consecutive_bars" default:"2"`
	} `yaml:"delta"`
	CVD struct {
		TrendLookback       int     `yaml:"trend_lookback" default:"10"`
		DivergenceThreshold float64 `yaml:"divergence_threshold" default:"0.7"`
	} `yaml:"cvd"`
	OI struct {
		SignificantChangePercent float64 `yaml:"significant_change_percent" default:"1.0"`
	} `yaml:"oi"`
	Imbalance struct {
		RatioThreshold  float64 `yaml:"ratio_threshold" default:"0.6"`
		VolumeThreshold float64 `yaml:"volume_threshold" default:"50"`
	} `yaml:"imbalance"`
	Absorption struct {
		VolumeMultiplier   float64 `yaml:"volume_multiplier" default:"2.0"`
		PriceMoveTolerance float64 `yaml:"price_move_tolerance" default:"0.05"`
		LookbackBars       int     `yaml:"lookback_bars" default:"20"`
	} `yaml:"absorption"`
}

type SignalsConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds" default:"300"`
	Long            struct {
		MinConfidence         float64 `yaml:"min_confidence" default:"0.65"`
		VWAPPullbackTolerance float64 `yaml:"vwap_pullback_tolerance" default:"0.15"`
		RequireAllOrderflow   bool    `yaml:"require_all_orderflow"`
	} `yaml:"long"`
	Short struct {
		MinConfidence          float64 `yaml:"min_confidence" default:"0.65"`
		VWAPRejectionTolerance float64 `yaml:"vwap_rejection_tolerance" default:"0.15"`
		RequireAllOrderflow    bool    `yaml:"require_all_orderflow"`
	} `yaml:"short"`
	Failure struct {
		MinConfidence     float64 `yaml:"min_confidence" default:"0.6"`
		KeyLevelTolerance float64 `yaml:"key_level_tolerance" default:"0.2"`
	} `yaml:"failure"`
}

type AlertsConfig struct {
	Console struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"console"`
	File struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path" default:"logs/signals.log"`
	} `yaml:"file"`
	Telegram struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DedupWindow      time.Duration `yaml:"dedup_window" default:"5m"`
	MaxAlertsPerHour int           `yaml:"max_alerts_per_hour" default:"20"`
	Queue            struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"queue"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Exchange.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BINANCE_WS_URL"); v != "" {
		c.Exchange.WebSocketURL = v
	}
	if v := os.Getenv("BINANCE_REST_URL"); v != "" {
		c.Exchange.RESTURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Alerts.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Alerts.Telegram.ChatID = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Exchange.Symbols) == 0 {
		return fmt.Errorf("exchange.symbols cannot be empty")
	}
	if c.TPO.TickSize <= 0 {
		return fmt.Errorf("tpo.tick_size must be positive")
	}
	if c.TPO.ValueAreaPercent <= 0 || c.TPO.ValueAreaPercent > 100 {
		return fmt.Errorf("tpo.value_area_percent must be in (0,100], got %v", c.TPO.ValueAreaPercent)
	}
	if c.TPO.TimeSliceMinutes <= 0 {
		return fmt.Errorf("tpo.time_slice_minutes must be positive")
	}
	if len(c.VWAP.StdDevBands) != 2 || c.VWAP.StdDevBands[0] <= 0 || c.VWAP.StdDevBands[1] <= c.VWAP.StdDevBands[0] {
		return fmt.Errorf("vwap.std_dev_bands must be two ascending positive multipliers")
	}
	if c.VWAP.SlopeLookbackBars < 2 {
		return fmt.Errorf("vwap.slope_lookback_bars must be >= 2")
	}
	if c.OrderFlow.Absorption.LookbackBars < 2 {
		return fmt.Errorf("orderflow.absorption.lookback_bars must be >= 2")
	}
	if c.OrderFlow.CVD.TrendLookback < 2 {
		return fmt.Errorf("orderflow.cvd.trend_lookback must be >= 2")
	}
	if c.Signals.CooldownSeconds < 0 {
		return fmt.Errorf("signals.cooldown_seconds cannot be negative")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Alerts.Telegram.Enabled && c.Alerts.Telegram.BotToken == "" {
		return fmt.Errorf("alerts.telegram.bot_token is required when telegram is enabled")
	}
	if c.Alerts.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("alerts.queue requires redis to be enabled")
	}
	return nil
}
