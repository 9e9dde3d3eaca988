package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"

	"github.com/transit-board/pkg/transit/models"
)

type Config struct {
	Sources []models.Source
	CTA     CTAConfig
	Bus     BusConfig
	Metra   MetraConfig
	Weather WeatherConfig
	Board   BoardConfig
	Refresh RefreshConfig
	Server  ServerConfig
	LED     LEDConfig
	Logging LoggingConfig
}

// CTAConfig for the Train Tracker arrivals feed
type CTAConfig struct {
	APIKey     string
	BaseURL    string    `validate:"required,url"`
	Stations   []Station `validate:"dive"`
	// MaxResults is the arrival budget per station
	MaxResults int       `validate:"gte=1"`
}

type Station struct {
	ID   string `yaml:"id" validate:"required,numeric"`
	Name string `yaml:"name" validate:"required"`
}

// BusConfig for the Bus Tracker predictions feed
type BusConfig struct {
	APIKey  string
	BaseURL string    `validate:"required,url"`
	Stops   []BusStop `validate:"dive"`
}

type BusStop struct {
	ID     string   `yaml:"id" validate:"required,numeric"`
	Name   string   `yaml:"name" validate:"required"`
	Routes []string `yaml:"routes"`
}

// MetraConfig for the GTFS-Realtime trip updates feed
type MetraConfig struct {
	Token   string
	URL     string `validate:"required,url"`
	RouteID string `yaml:"route_id" validate:"required"`
	StopID  string `yaml:"stop_id" validate:"required"`
}

type WeatherConfig struct {
	APIKey  string
	BaseURL string        `validate:"required,url"`
	PlaceID string        `validate:"required"`
	Units   string        `validate:"oneof=auto metric us uk ca"`
	TTL     time.Duration `validate:"gt=0"`
}

// Enabled reports whether a Meteosource key was supplied
func (w WeatherConfig) Enabled() bool {
	return w.APIKey != ""
}

type BoardConfig struct {
	TrainMaxPerLine int `validate:"gte=1"`
	BusMaxPerLine   int `validate:"gte=1"`
	MetraMaxPerLine int `validate:"gte=1"`
	// LineMax overrides the per-source caps for individual lines
	LineMax  map[string]int `validate:"dive,gte=1"`
	Timezone string         `validate:"required"`
	Location *time.Location `validate:"-"`
}

type RefreshConfig struct {
	Interval    time.Duration `validate:"gt=0"`
	HTTPTimeout time.Duration `validate:"gt=0"`
}

type ServerConfig struct {
	Addr        string        `validate:"required"`
	PageRefresh time.Duration `validate:"gte=0"`
}

type LEDConfig struct {
	Rows            int      `validate:"gte=8"`
	Cols            int      `validate:"gte=8"`
	Brightness      int      `validate:"gte=1,lte=100"`
	GPIOSlowdown    int      `validate:"gte=0,lte=5"`
	HardwareMapping string   `validate:"required"`
	Lines           []LEDRow `validate:"max=2,dive"`
}

// LEDRow binds one board line to a row of the matrix
type LEDRow struct {
	Line  string `yaml:"line" validate:"required"`
	Label string `yaml:"label" validate:"required,max=3"`
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	DiscordURL string `validate:"omitempty,url"`
}

// ErrMissingCredential is returned when an enabled source has no API key
var ErrMissingCredential = errors.New("missing credential")

// Load reads configuration from the environment and, when BOARD_CONFIG
// points at one, a YAML board file. The result is validated and must be
// treated as read-only.
func Load() (*Config, error) {
	sources, err := parseSources(getEnv("SOURCES", "cta,metra,bus"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Sources: sources,
		CTA: CTAConfig{
			APIKey:     os.Getenv("CTA_API_KEY"),
			BaseURL:    getEnv("CTA_BASE_URL", "https://lapi.transitchicago.com/api/1.0/ttarrivals.aspx"),
			MaxResults: getIntEnv("CTA_MAX_RESULTS", 20),
		},
		Bus: BusConfig{
			APIKey:  os.Getenv("CTA_BUS_API_KEY"),
			BaseURL: getEnv("CTA_BUS_BASE_URL", "https://www.ctabustracker.com/bustime/api/v2/getpredictions"),
		},
		Metra: MetraConfig{
			Token: os.Getenv("METRA_API_TOKEN"),
			URL:   getEnv("METRA_URL", "https://gtfspublic.metrarr.com/gtfs/public/tripupdates"),
		},
		Weather: WeatherConfig{
			APIKey:  os.Getenv("METEOSOURCE_API_KEY"),
			BaseURL: getEnv("METEOSOURCE_BASE_URL", "https://www.meteosource.com/api/v1/free/point"),
			PlaceID: getEnv("METEOSOURCE_PLACE_ID", "chicago"),
			Units:   getEnv("METEOSOURCE_UNITS", "us"),
			TTL:     getDurationEnv("WEATHER_TTL", 10*time.Minute),
		},
		Board: BoardConfig{
			TrainMaxPerLine: getIntEnv("CTA_MAX_PER_LINE", 3),
			BusMaxPerLine:   getIntEnv("BUS_MAX_PER_LINE", 5),
			MetraMaxPerLine: getIntEnv("METRA_MAX_PER_LINE", 5),
			LineMax:         map[string]int{},
			Timezone:        getEnv("TIMEZONE", "America/Chicago"),
		},
		Refresh: RefreshConfig{
			Interval:    getDurationEnv("REFRESH_INTERVAL", 30*time.Second),
			HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Addr:        getEnv("HTTP_ADDR", ":8080"),
			PageRefresh: getDurationEnv("PAGE_REFRESH", 30*time.Second),
		},
		LED: LEDConfig{
			Rows:            32,
			Cols:            32,
			Brightness:      getIntEnv("LED_BRIGHTNESS", 50),
			GPIOSlowdown:    getIntEnv("LED_GPIO_SLOWDOWN", 4),
			HardwareMapping: getEnv("LED_HARDWARE_MAPPING", "adafruit-hat"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "transitboard.log"),
			DiscordURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		},
	}

	layout := defaultBoardFile()
	if path := os.Getenv("BOARD_CONFIG"); path != "" {
		layout, err = loadBoardFile(path)
		if err != nil {
			return nil, err
		}
	}
	layout.apply(cfg)

	loc, err := time.LoadLocation(cfg.Board.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Board.Timezone, err)
	}
	cfg.Board.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and that every enabled source has its
// credential and at least one place to watch.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("invalid configuration: no sources enabled")
	}

	for _, src := range c.Sources {
		switch src {
		case models.SourceCTATrain:
			if c.CTA.APIKey == "" {
				return fmt.Errorf("%w: CTA_API_KEY is required for source %q", ErrMissingCredential, src)
			}
			if len(c.CTA.Stations) == 0 {
				return fmt.Errorf("invalid configuration: source %q has no stations", src)
			}
		case models.SourceCTABus:
			if c.Bus.APIKey == "" {
				return fmt.Errorf("%w: CTA_BUS_API_KEY is required for source %q", ErrMissingCredential, src)
			}
			if len(c.Bus.Stops) == 0 {
				return fmt.Errorf("invalid configuration: source %q has no stops", src)
			}
		case models.SourceMetra:
			if c.Metra.Token == "" {
				return fmt.Errorf("%w: METRA_API_TOKEN is required for source %q", ErrMissingCredential, src)
			}
		}
	}
	return nil
}

// Enabled reports whether src is in the configured source list
func (c *Config) Enabled(src models.Source) bool {
	for _, s := range c.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// WithSources returns a copy restricted to srcs. Used by single-source CLI
// modes before any cycle starts.
func (c *Config) WithSources(srcs ...models.Source) *Config {
	cp := *c
	cp.Sources = append([]models.Source(nil), srcs...)
	return &cp
}

// MaxPerSource returns the configured per-line cap for each source
func (c *Config) MaxPerSource() map[models.Source]int {
	return map[models.Source]int{
		models.SourceCTATrain: c.Board.TrainMaxPerLine,
		models.SourceCTABus:   c.Board.BusMaxPerLine,
		models.SourceMetra:    c.Board.MetraMaxPerLine,
	}
}

func parseSources(value string) ([]models.Source, error) {
	var sources []models.Source
	seen := map[models.Source]bool{}
	for _, token := range strings.Split(value, ",") {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		src, ok := models.ParseSource(token)
		if !ok {
			return nil, fmt.Errorf("invalid configuration: unknown source %q", token)
		}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}
	return sources, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}
