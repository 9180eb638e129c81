package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PrinterKindFile = "file"
	PrinterKindRaw  = "raw"

	DefaultRawPort = 9100
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Printers PrintersConfig `yaml:"printers"`
	Queue    QueueConfig    `yaml:"queue"`
	Webhooks WebhooksConfig `yaml:"webhooks"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	RequestLogging bool          `yaml:"request_logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PrintersConfig struct {
	ConnectionTimeout time.Duration   `yaml:"connection_timeout"`
	DefaultDPI        int             `yaml:"default_dpi"`
	Devices           []PrinterDevice `yaml:"devices"`
}

// PrinterDevice describes one installed printer. File printers spool
// rendered pages into a directory; raw printers receive them over TCP.
type PrinterDevice struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Path       string   `yaml:"path"`
	Address    string   `yaml:"address"`
	DPI        int      `yaml:"dpi"`
	Default    bool     `yaml:"default"`
	Color      bool     `yaml:"color"`
	Duplex     bool     `yaml:"duplex"`
	Disabled   bool     `yaml:"disabled"`
	PaperSizes []string `yaml:"paper_sizes"`
	MinPage    int      `yaml:"min_page"`
	MaxPage    int      `yaml:"max_page"`
}

type QueueConfig struct {
	JobTimeout time.Duration `yaml:"job_timeout"`
}

type WebhooksConfig struct {
	Endpoints   []WebhookEndpoint `yaml:"endpoints"`
	RetryCount  int               `yaml:"retry_count"`
	RetryDelay  time.Duration     `yaml:"retry_delay"`
	Timeout     time.Duration     `yaml:"timeout"`
	WorkerCount int               `yaml:"worker_count"`
	QueueSize   int               `yaml:"queue_size"`
}

type WebhookEndpoint struct {
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			RequestLogging: true,
		},
		Database: DatabaseConfig{
			Path: "./data/printqueue.db",
		},
		Printers: PrintersConfig{
			ConnectionTimeout: 5 * time.Second,
			DefaultDPI:        100,
		},
		Webhooks: WebhooksConfig{
			RetryCount:  3,
			RetryDelay:  5 * time.Second,
			Timeout:     10 * time.Second,
			WorkerCount: 2,
			QueueSize:   100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDeviceDefaults()

	return cfg, nil
}

// ApplyEnv overrides file values with PRINTQUEUE_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PRINTQUEUE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}

	if v := os.Getenv("PRINTQUEUE_DB_PATH"); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv("PRINTQUEUE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("PRINTQUEUE_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) applyDeviceDefaults() {
	for i := range c.Printers.Devices {
		d := &c.Printers.Devices[i]
		if d.Kind == "" {
			d.Kind = PrinterKindFile
		}
		if d.DPI == 0 {
			d.DPI = c.Printers.DefaultDPI
		}
		if d.MinPage == 0 {
			d.MinPage = 1
		}
		if d.MaxPage == 0 {
			d.MaxPage = 9999
		}
		if d.Kind == PrinterKindRaw && d.Address != "" && !strings.Contains(d.Address, ":") {
			d.Address = fmt.Sprintf("%s:%d", d.Address, DefaultRawPort)
		}
	}
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be non-negative")
	}

	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server write timeout must be non-negative")
	}

	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server rate limit must be non-negative")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Printers.ConnectionTimeout < 0 {
		return fmt.Errorf("connection timeout must be non-negative")
	}

	if c.Printers.DefaultDPI < 1 {
		return fmt.Errorf("default dpi must be positive")
	}

	if err := ValidateDevices(c.Printers.Devices); err != nil {
		return err
	}

	if c.Queue.JobTimeout < 0 {
		return fmt.Errorf("job timeout must be non-negative")
	}

	for _, ep := range c.Webhooks.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("webhook endpoint url is required")
		}
	}

	if c.Webhooks.RetryCount < 0 {
		return fmt.Errorf("webhook retry count must be non-negative")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json":  true,
		"text":  true,
		"plain": true,
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text, plain)", c.Logging.Format)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /")
	}

	return nil
}

func ValidateDevices(devices []PrinterDevice) error {
	seen := make(map[string]bool, len(devices))
	for _, d := range devices {
		if d.Name == "" {
			return fmt.Errorf("printer name is required")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate printer name: %s", d.Name)
		}
		seen[d.Name] = true

		switch d.Kind {
		case PrinterKindFile:
			if d.Path == "" {
				return fmt.Errorf("printer %s: path is required for file printers", d.Name)
			}
		case PrinterKindRaw:
			if d.Address == "" {
				return fmt.Errorf("printer %s: address is required for raw printers", d.Name)
			}
		default:
			return fmt.Errorf("printer %s: invalid kind %q (valid: file, raw)", d.Name, d.Kind)
		}

		if d.DPI < 1 {
			return fmt.Errorf("printer %s: dpi must be positive", d.Name)
		}
	}
	return nil
}
