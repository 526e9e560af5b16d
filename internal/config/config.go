package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Mode           string       `mapstructure:"mode" validate:"oneof=debug release test"`
	Port           int          `mapstructure:"port" validate:"min=1,max=65535"`
	Secret         string       `mapstructure:"secret" validate:"required"`
	AllowedOrigins []string     `mapstructure:"allowed_origins"`
	Log            LogConfig    `mapstructure:"log"`
	Signal         SignalConfig `mapstructure:"signal"`
	Relay          RelayConfig  `mapstructure:"relay"`
	Audit          AuditConfig  `mapstructure:"audit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

type SignalConfig struct {
	ReadLimit    int64         `mapstructure:"read_limit" validate:"min=512"`
	SendBuffer   int           `mapstructure:"send_buffer" validate:"min=1"`
	PingPeriod   time.Duration `mapstructure:"ping_period" validate:"gt=0"`
	PongWait     time.Duration `mapstructure:"pong_wait" validate:"gtfield=PingPeriod"`
	WriteWait    time.Duration `mapstructure:"write_wait" validate:"gt=0"`
	RateLimit    int           `mapstructure:"rate_limit" validate:"min=0"`
	RateInterval time.Duration `mapstructure:"rate_interval"`
}

type RelayConfig struct {
	SlowConsumer string `mapstructure:"slow_consumer" validate:"oneof=drop kick"`
}

type AuditConfig struct {
	Driver  string        `mapstructure:"driver" validate:"oneof=none kafka redis"`
	Buffer  int           `mapstructure:"buffer" validate:"min=1"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	Kafka   KafkaConfig   `mapstructure:"kafka"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db" validate:"min=0"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// Flags returns the command-line flags understood by Load.
func Flags() *pflag.FlagSet {
	f := pflag.NewFlagSet("interview-relay", pflag.ContinueOnError)
	f.String("config", "", "path to a YAML config file (default config/config.<CONFIG_ENV>.yaml)")
	f.Int("port", 3030, "HTTP listen port")
	f.String("mode", "release", "gin mode: debug, release or test")
	f.String("log-level", "info", "log level")
	return f
}

// Load merges defaults, the YAML file, RELAY_* environment variables and
// flags, in increasing priority. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("port", "RELAY_PORT", "PORT"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	explicit := ""
	if flags != nil {
		explicit, _ = flags.GetString("config")
		for key, name := range map[string]string{"port": "port", "mode": "mode", "log.level": "log-level"} {
			if fl := flags.Lookup(name); fl != nil {
				if err := v.BindPFlag(key, fl); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	fileName := explicit
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		if explicit != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("audit", cfg.Audit.Driver).Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3030)
	v.SetDefault("secret", "change-me")
	v.SetDefault("allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("signal.read_limit", 32768)
	v.SetDefault("signal.send_buffer", 32)
	v.SetDefault("signal.ping_period", "54s")
	v.SetDefault("signal.pong_wait", "60s")
	v.SetDefault("signal.write_wait", "10s")
	v.SetDefault("signal.rate_limit", 0)
	v.SetDefault("signal.rate_interval", "1s")

	v.SetDefault("relay.slow_consumer", "drop")

	v.SetDefault("audit.driver", "none")
	v.SetDefault("audit.buffer", 256)
	v.SetDefault("audit.timeout", "2s")
	v.SetDefault("audit.kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("audit.kafka.topic", "interview-events")
	v.SetDefault("audit.redis.addr", "localhost:6379")
	v.SetDefault("audit.redis.password", "")
	v.SetDefault("audit.redis.db", 0)
	v.SetDefault("audit.redis.channel_prefix", "interview:")
}

// Validate checks field rules and the cross-field ones the tags cannot say.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Signal.RateLimit > 0 && c.Signal.RateInterval <= 0 {
		return fmt.Errorf("invalid config: signal.rate_interval must be positive when signal.rate_limit is set")
	}
	switch c.Audit.Driver {
	case "kafka":
		if len(c.Audit.Kafka.Brokers) == 0 || c.Audit.Kafka.Topic == "" {
			return fmt.Errorf("invalid config: audit.kafka needs brokers and topic")
		}
	case "redis":
		if c.Audit.Redis.Addr == "" {
			return fmt.Errorf("invalid config: audit.redis.addr is required")
		}
	}
	return nil
}
