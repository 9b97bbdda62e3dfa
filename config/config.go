package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Log           LogConfig           `yaml:"log"`

	// Promote names an account to grant the admin role to, instead of serving.
	Promote string `yaml:"-"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type DatabaseConfig struct {
	Path            string        `yaml:"path"              env:"DATABASE_PATH"              env-default:"qfeedback.sqlite"`
	MaxOpenConns    int           `yaml:"max_open_conns"    env:"DATABASE_MAX_OPEN_CONNS"    env-default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns"    env:"DATABASE_MAX_IDLE_CONNS"    env-default:"10"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"DATABASE_CONN_MAX_IDLE_TIME" env-default:"5m"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME" env-default:"2h"`
}

type AuthConfig struct {
	TokenSecret     string        `yaml:"token_secret"      env:"AUTH_TOKEN_SECRET"`
	TokenTTL        time.Duration `yaml:"token_ttl"         env:"AUTH_TOKEN_TTL"         env-default:"1h"`
	RefreshTTL      time.Duration `yaml:"refresh_ttl"       env:"AUTH_REFRESH_TTL"       env-default:"8760h"`
	IdentityCache   int           `yaml:"identity_cache"    env:"AUTH_IDENTITY_CACHE"    env-default:"1024"`
	IdentityTTL     time.Duration `yaml:"identity_ttl"      env:"AUTH_IDENTITY_TTL"      env-default:"30s"`
	MinPasswordSize int           `yaml:"min_password_size" env:"AUTH_MIN_PASSWORD_SIZE" env-default:"6"`
}

type NotificationsConfig struct {
	TTL           time.Duration `yaml:"ttl"            env:"NOTIFICATIONS_TTL"            env-default:"720h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"NOTIFICATIONS_SWEEP_INTERVAL" env-default:"1h"`
}

type RateLimitConfig struct {
	// Submissions per minute allowed to a single client address; 0 disables limiting.
	PerMinute int `yaml:"per_minute" env:"RATELIMIT_PER_MINUTE" env-default:"30"`
	Burst     int `yaml:"burst"      env:"RATELIMIT_BURST"      env-default:"10"`
	Clients   int `yaml:"clients"    env:"RATELIMIT_CLIENTS"    env-default:"4096"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// ParseFlags loads the configuration for the command line in args.
// Priority: flags > ENV > YAML file > defaults.
func ParseFlags(name string, args []string) (cfg Config, err error) {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	path := flags.String("config", os.Getenv("CONFIG_PATH"), "path to YAML config file")
	addr := flags.String("addr", "", "listen address host:port (overrides server.host and server.port)")
	debug := flags.Bool("debug", false, "log at DEBUG level")
	secret := flags.String("token-secret", "", "secret key for token encryption and decryption")
	promote := flags.String("promote", "", "grant the admin role to the account with this email, then exit")
	if err = flags.Parse(args); err != nil {
		return
	}

	if *path != "" {
		err = cleanenv.ReadConfig(*path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return cfg, fmt.Errorf("config.read: %w", err)
	}

	if *addr != "" {
		host, port, splitErr := net.SplitHostPort(*addr)
		if splitErr != nil {
			return cfg, fmt.Errorf("config.addr: %w", splitErr)
		}
		cfg.Server.Host = host
		if cfg.Server.Port, err = strconv.Atoi(port); err != nil {
			return cfg, fmt.Errorf("config.addr: %w", err)
		}
	}
	if *debug {
		cfg.Log.Level = "debug"
	}
	if *secret != "" {
		cfg.Auth.TokenSecret = *secret
	}
	cfg.Promote = *promote

	err = cfg.Validate()
	return
}

func (cfg Config) Validate() error {
	var errs []error
	if cfg.Auth.TokenSecret == "" {
		errs = append(errs, errors.New("missing auth.token_secret (-token-secret or AUTH_TOKEN_SECRET)"))
	}
	if cfg.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if cfg.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth.refresh_ttl must be positive"))
	}
	if cfg.Auth.IdentityCache <= 0 {
		errs = append(errs, errors.New("auth.identity_cache must be positive"))
	}
	if cfg.Notifications.TTL <= 0 {
		errs = append(errs, errors.New("notifications.ttl must be positive"))
	}
	if cfg.Notifications.SweepInterval <= 0 {
		errs = append(errs, errors.New("notifications.sweep_interval must be positive"))
	}
	if cfg.RateLimit.PerMinute < 0 || cfg.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("ratelimit values must not be negative"))
	}
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text or json", cfg.Log.Format))
	}
	return errors.Join(errs...)
}

func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr()
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
