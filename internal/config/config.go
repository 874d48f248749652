// Package config loads the daemon configuration from a YAML file, a .env
// file and SUNTIMER_* environment variables, applies defaults and
// validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/sun-timer/internal/gpio"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/mqtt"
	"github.com/sweeney/sun-timer/internal/schedule"
	"github.com/sweeney/sun-timer/internal/status"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "sun-timer.yaml"

// Config is the full daemon configuration.
type Config struct {
	Position Position           `yaml:"position"`
	Schedule Schedule           `yaml:"schedule"`
	Rules    []schedule.DayRule `yaml:"rules" validate:"dive"`
	Output   Output             `yaml:"output"`
	Override Override           `yaml:"override"`
	MQTT     MQTT               `yaml:"mqtt"`
	NATS     NATS               `yaml:"nats"`
	Kafka    Kafka              `yaml:"kafka"`
	GPIO     GPIO               `yaml:"gpio"`
	HTTP     HTTP               `yaml:"http"`
	Log      Log                `yaml:"log"`
}

// Position is the geographic coordinate used for astronomical events.
type Position struct {
	Latitude  float64 `yaml:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `yaml:"longitude" validate:"min=-180,max=180"`
}

// Schedule holds the interval boundaries.
type Schedule struct {
	Start        schedule.TimeSpec `yaml:"start"`
	End          schedule.TimeSpec `yaml:"end"`
	StartOffset  int               `yaml:"start_offset" validate:"min=-1440,max=1440"`
	EndOffset    int               `yaml:"end_offset" validate:"min=-1440,max=1440"`
	WrapMidnight bool              `yaml:"wrap_midnight"`
	MinimumOn    int               `yaml:"minimum_on" validate:"min=0,max=1440"`
}

// Output configures the change records.
type Output struct {
	Topic            string         `yaml:"topic"`
	On               logic.Template `yaml:"on"`
	Off              logic.Template `yaml:"off"`
	SendEmptyPayload bool           `yaml:"send_empty_payload"`
	PublishOnStartup bool           `yaml:"publish_on_startup"`
	Repeat           bool           `yaml:"repeat"`
	RepeatInterval   Duration       `yaml:"repeat_interval"`
	Debug            bool           `yaml:"debug"`
}

// Override holds the default override durations in minutes.
type Override struct {
	OnTimeout  float64 `yaml:"on_timeout" validate:"min=0"`
	OffTimeout float64 `yaml:"off_timeout" validate:"min=0"`
}

// MQTT configures the MQTT transport. Disabled when Broker is empty.
type MQTT struct {
	Broker     string `yaml:"broker" validate:"omitempty,url"`
	ClientID   string `yaml:"client_id"`
	BaseTopic  string `yaml:"base_topic"`
	BufferSize int    `yaml:"buffer_size" validate:"min=0"`
}

// NATS configures the NATS transport. Disabled when URL is empty.
type NATS struct {
	URL           string        `yaml:"url" validate:"omitempty,url"`
	Name          string        `yaml:"name"`
	BaseSubject   string        `yaml:"base_subject"`
	MaxReconnects int           `yaml:"max_reconnects" validate:"min=-1"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

// Kafka configures the Kafka transport. Disabled when Brokers is empty.
type Kafka struct {
	Brokers   []string `yaml:"brokers,omitempty" validate:"dive,hostname_port"`
	GroupID   string   `yaml:"group_id"`
	BaseTopic string   `yaml:"base_topic"`
	Commands  bool     `yaml:"commands"`
}

// GPIO configures the relay output.
type GPIO struct {
	Enabled   bool   `yaml:"enabled"`
	Chip      string `yaml:"chip"`
	Line      int    `yaml:"line" validate:"min=0"`
	ActiveLow bool   `yaml:"active_low"`
}

// HTTP configures the status server. Disabled when Addr is empty.
type HTTP struct {
	Addr string `yaml:"addr"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used for anything the file omits.
func Default() Config {
	return Config{
		Rules: []schedule.DayRule{{Kind: schedule.Include}},
		Output: Output{
			SendEmptyPayload: true,
			RepeatInterval:   Duration(60 * time.Second),
		},
		Override: Override{OnTimeout: 1440, OffTimeout: 1440},
		MQTT:     MQTT{BaseTopic: mqtt.DefaultBase, BufferSize: mqtt.DefaultBufferSize},
		NATS:     NATS{BaseSubject: mqtt.DefaultBase, MaxReconnects: -1, ReconnectWait: 2 * time.Second},
		Kafka:    Kafka{GroupID: mqtt.DefaultBase, BaseTopic: mqtt.DefaultBase},
		GPIO:     GPIO{Chip: gpio.DefaultChip},
		HTTP:     HTTP{Addr: ":8080"},
		Log:      Log{Level: "info"},
	}
}

// Load reads path, applies .env and environment overrides and validates
// the result. A missing file at DefaultPath is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := Parse(data, &cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes YAML into cfg, keeping values the document omits.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks struct constraints, rules and payload templates.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for i, r := range c.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("invalid config: rules[%d]: %w", i, err)
		}
	}
	if err := c.Output.On.Validate(); err != nil {
		return fmt.Errorf("invalid config: output.on: %w", err)
	}
	if err := c.Output.Off.Validate(); err != nil {
		return fmt.Errorf("invalid config: output.off: %w", err)
	}
	if c.Output.Repeat && time.Duration(c.Output.RepeatInterval) < time.Second {
		return fmt.Errorf("invalid config: output.repeat_interval %s is below 1s", time.Duration(c.Output.RepeatInterval))
	}
	if c.NeedsPosition() && !c.HasPosition() {
		return fmt.Errorf("invalid config: position is required when start or end is an astronomical event")
	}
	return nil
}

// Runner maps the configuration onto the runner's.
func (c *Config) Runner() logic.Config {
	return logic.Config{
		Schedule: schedule.Config{
			Start:        c.Schedule.Start,
			End:          c.Schedule.End,
			StartOffset:  c.Schedule.StartOffset,
			EndOffset:    c.Schedule.EndOffset,
			WrapMidnight: c.Schedule.WrapMidnight,
			MinimumOn:    c.Schedule.MinimumOn,
		},
		Rules:            schedule.Rules(c.Rules),
		Topic:            c.Output.Topic,
		OnPayload:        c.Output.On,
		OffPayload:       c.Output.Off,
		OnTimeout:        c.Override.OnTimeout,
		OffTimeout:       c.Override.OffTimeout,
		PublishOnStartup: c.Output.PublishOnStartup,
		Repeat:           c.Output.Repeat,
		RepeatInterval:   time.Duration(c.Output.RepeatInterval),
		Debug:            c.Output.Debug,
		SendEmptyPayload: c.Output.SendEmptyPayload,
	}
}

// Status returns the display configuration for the status tracker.
func (c *Config) Status() status.Config {
	broker := c.MQTT.Broker
	switch {
	case broker != "":
	case c.NATS.URL != "":
		broker = c.NATS.URL
	case len(c.Kafka.Brokers) > 0:
		broker = strings.Join(c.Kafka.Brokers, ",")
	}
	return status.Config{
		Latitude:  c.Position.Latitude,
		Longitude: c.Position.Longitude,
		Start:     c.Schedule.Start.String(),
		End:       c.Schedule.End.String(),
		Topic:     c.Output.Topic,
		Broker:    broker,
		HTTPAddr:  c.HTTP.Addr,
	}
}

// NeedsPosition reports whether a boundary refers to an astronomical
// event.
func (c *Config) NeedsPosition() bool {
	return c.Schedule.Start.Kind == schedule.Symbolic || c.Schedule.End.Kind == schedule.Symbolic
}

// HasPosition reports whether a latitude or longitude was configured.
// 0°N 0°E counts as unset.
func (c *Config) HasPosition() bool {
	return c.Position.Latitude != 0 || c.Position.Longitude != 0
}

// YAML returns the effective configuration as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("SUNTIMER_MQTT_BROKER"); ok {
		cfg.MQTT.Broker = v
	}
	if v, ok := os.LookupEnv("SUNTIMER_NATS_URL"); ok {
		cfg.NATS.URL = v
	}
	if v, ok := os.LookupEnv("SUNTIMER_KAFKA_BROKERS"); ok {
		cfg.Kafka.Brokers = splitList(v)
	}
	if v, ok := os.LookupEnv("SUNTIMER_HTTP"); ok {
		cfg.HTTP.Addr = v
	}
	if v, ok := os.LookupEnv("SUNTIMER_LOG_LEVEL"); ok {
		cfg.Log.Level = strings.ToLower(v)
	}
	if err := envFloat("SUNTIMER_LATITUDE", &cfg.Position.Latitude); err != nil {
		return err
	}
	return envFloat("SUNTIMER_LONGITUDE", &cfg.Position.Longitude)
}

func envFloat(key string, dst *float64) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
