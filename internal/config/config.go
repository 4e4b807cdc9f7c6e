package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	// PathEnv names the variable pointing at an explicit config file.
	PathEnv = "SURAKARTA_CONFIG"

	localFile = "config.yml"
	xdgFile   = "surakarta/config.yml"
)

var (
	ErrInvalidTransport = errors.New("unknown transport")
	ErrInvalidPortRange = errors.New("invalid port range")
	ErrInvalidValue     = errors.New("invalid config value")
)

var (
	transports = []string{"stream", "rpc", "websocket"}
	logLevels  = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	LogLevel      string        `yaml:"log-level" env:"SURAKARTA_LOG_LEVEL" env-default:"info"`
	Transport     string        `yaml:"transport" env:"SURAKARTA_TRANSPORT" env-default:"stream"`
	ListenPort    int           `yaml:"listen-port" env:"SURAKARTA_LISTEN_PORT" env-default:"0"`
	PortRange     PortRange     `yaml:"port-range"`
	AdvertiseHost string        `yaml:"advertise-host" env:"SURAKARTA_ADVERTISE_HOST"`
	PeerAddress   string        `yaml:"peer-address" env:"SURAKARTA_PEER_ADDRESS"`
	SendTimeout   time.Duration `yaml:"send-timeout" env:"SURAKARTA_SEND_TIMEOUT" env-default:"5s"`
	OutboxSize    int           `yaml:"outbox-size" env:"SURAKARTA_OUTBOX_SIZE" env-default:"32"`
	HTTPPort      string        `yaml:"http-port" env:"SURAKARTA_HTTP_PORT" env-default:"9090"`
	Journal       Journal       `yaml:"journal"`
}

// PortRange bounds the listen port picked when listen-port is 0.
type PortRange struct {
	Min int `yaml:"min" env:"SURAKARTA_PORT_MIN" env-default:"8001"`
	Max int `yaml:"max" env:"SURAKARTA_PORT_MAX" env-default:"8100"`
}

type Journal struct {
	Enabled bool  `yaml:"enabled" env:"SURAKARTA_JOURNAL_ENABLED" env-default:"false"`
	Redis   Redis `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"SURAKARTA_REDIS_HOST" env-default:"localhost"`
	Port int    `yaml:"port" env:"SURAKARTA_REDIS_PORT" env-default:"6379"`
}

// Load reads the YAML file at path, or only the environment when path is empty, and validates the result.
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load config file %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(config); err != nil {
		return nil, fmt.Errorf("unable to load config from environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load the configuration found by Locate.
func MustLoad() *Config {
	config, err := Load(Locate())
	if err != nil {
		panic(err)
	}

	return config
}

// Locate finds the config file: $SURAKARTA_CONFIG, then ./config.yml, then
// the XDG config directory. An empty result means environment only.
func Locate() string {
	if path := os.Getenv(PathEnv); path != "" {
		return path
	}

	if _, err := os.Stat(localFile); err == nil {
		return localFile
	}

	if path, err := xdg.SearchConfigFile(xdgFile); err == nil {
		return path
	}

	return ""
}

func (that *Config) Validate() error {
	if !slices.Contains(transports, that.Transport) {
		return fmt.Errorf("%w: %q", ErrInvalidTransport, that.Transport)
	}

	if !slices.Contains(logLevels, that.LogLevel) {
		return fmt.Errorf("%w: log-level %q", ErrInvalidValue, that.LogLevel)
	}

	if that.PortRange.Min < 1 || that.PortRange.Max > 65535 || that.PortRange.Min > that.PortRange.Max {
		return fmt.Errorf("%w: %d..%d", ErrInvalidPortRange, that.PortRange.Min, that.PortRange.Max)
	}

	if that.ListenPort < 0 || that.ListenPort > 65535 {
		return fmt.Errorf("%w: listen-port %d", ErrInvalidValue, that.ListenPort)
	}

	if that.SendTimeout <= 0 {
		return fmt.Errorf("%w: send-timeout %s", ErrInvalidValue, that.SendTimeout)
	}

	if that.OutboxSize <= 0 {
		return fmt.Errorf("%w: outbox-size %d", ErrInvalidValue, that.OutboxSize)
	}

	return nil
}
