package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Exchange Exchange           `yaml:"exchange"`
	Scanner  Scanner            `yaml:"scanner"`
	Storage  Storage            `yaml:"storage"`
	Telegram Telegram           `yaml:"telegram"`
	Logging  Logging            `yaml:"logging"`
	Server   Server             `yaml:"server"`
	Strategy map[string]float64 `yaml:"strategy"`
}

type Exchange struct {
	Name         string `yaml:"name" validate:"required,oneof=binance bybit"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	RESTEndpoint string `yaml:"rest_endpoint" validate:"omitempty,url"`
	WSEndpoint   string `yaml:"ws_endpoint" validate:"omitempty,url"`
	Category     string `yaml:"category" validate:"omitempty,oneof=spot linear"`
	Testnet      bool   `yaml:"testnet"`
}

type Scanner struct {
	Pairs        []string      `yaml:"pairs" validate:"required,min=1,dive,required,uppercase"`
	StablePairs  []string      `yaml:"stable_pairs" validate:"dive,required,uppercase"`
	Interval     string        `yaml:"interval" validate:"required"`
	CandleLimit  int           `yaml:"candle_limit" validate:"gte=1,lte=1000"`
	MinCandles   int           `yaml:"min_candles" validate:"gte=1,ltefield=CandleLimit"`
	CycleDelay   time.Duration `yaml:"cycle_delay" validate:"gt=0"`
	CallTimeout  time.Duration `yaml:"call_timeout" validate:"gt=0"`
	MaxWorkers   int           `yaml:"max_workers" validate:"gte=1,lte=64"`
	PriceMaxAge  time.Duration `yaml:"price_max_age" validate:"gte=0"`
	FrameMaxAge  time.Duration `yaml:"frame_max_age" validate:"gte=0"`
	StreamPrices bool          `yaml:"stream_prices"`
}

type Storage struct {
	Path string `yaml:"path" validate:"required"`
}

type Telegram struct {
	Token   string        `yaml:"token"`
	ChatID  string        `yaml:"chat_id" validate:"required_with=Token"`
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

type Logging struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding" validate:"omitempty,oneof=json console"`
}

type Server struct {
	Port int `yaml:"port" validate:"gte=0,lte=65535"`
}

// Default returns the settings used for anything the file leaves out.
func Default() *Config {
	return &Config{
		Exchange: Exchange{Name: "binance", Category: "spot"},
		Scanner: Scanner{
			Pairs:       []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT"},
			StablePairs: []string{"BTCUSDT", "ETHUSDT", "BNBUSDT"},
			Interval:    "5m",
			CandleLimit: 200,
			MinCandles:  100,
			CycleDelay:  time.Minute,
			CallTimeout: 10 * time.Second,
			MaxWorkers:  4,
			PriceMaxAge: 15 * time.Second,
			FrameMaxAge: 15 * time.Minute,
		},
		Storage:  Storage{Path: "scalper.db"},
		Telegram: Telegram{Timeout: 10 * time.Second},
		Logging:  Logging{Level: "info", Encoding: "json"},
		Server:   Server{Port: 8080},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides (a .env file is loaded first when present) and validates the
// result.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	_ = godotenv.Load()
	cfg.loadFromEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("EXCHANGE_API_KEY"); val != "" {
		c.Exchange.APIKey = val
	}
	if val := os.Getenv("EXCHANGE_API_SECRET"); val != "" {
		c.Exchange.APISecret = val
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		c.Telegram.Token = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		c.Telegram.ChatID = val
	}
	if val := os.Getenv("SCALPER_DB_PATH"); val != "" {
		c.Storage.Path = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
}

func (c *Config) normalize() {
	c.Exchange.Name = strings.ToLower(strings.TrimSpace(c.Exchange.Name))
	for i, p := range c.Scanner.Pairs {
		c.Scanner.Pairs[i] = strings.ToUpper(strings.TrimSpace(p))
	}
	for i, p := range c.Scanner.StablePairs {
		c.Scanner.StablePairs[i] = strings.ToUpper(strings.TrimSpace(p))
	}
}

func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
