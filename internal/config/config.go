// Package config loads application configuration from YAML with environment
// overrides. The loaded Config is constructed once in main and injected;
// there is no package-level cached instance.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Leave      LeaveConfig      `mapstructure:"leave"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	Timezone string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | mysql | sqlite
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"` // sqlite only
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// AttendanceConfig drives the clock-out flag computation and the stale
// session sweeper.
type AttendanceConfig struct {
	WorkdayStart      string        `mapstructure:"workday_start"` // HH:MM
	WorkdayEnd        string        `mapstructure:"workday_end"`   // HH:MM
	GraceMinutes      int           `mapstructure:"grace_minutes"`
	RequiredMinutes   int           `mapstructure:"required_minutes"`
	OvertimeAfter     int           `mapstructure:"overtime_after_minutes"`
	AutoClockOutAfter time.Duration `mapstructure:"auto_clockout_after"`
	AutoClockOutCron  string        `mapstructure:"auto_clockout_cron"`
}

// LeaveConfig drives leave-minute arithmetic. DayMinutes is the configured
// day-length a full leave day converts to; Holidays are extra non-business
// days in YYYY-MM-DD form on top of weekends.
type LeaveConfig struct {
	DayMinutes           int      `mapstructure:"day_minutes"`
	Holidays             []string `mapstructure:"holidays"`
	AnnualAllocationCron string   `mapstructure:"annual_allocation_cron"`
}

// JobsConfig collects the cron expressions of the background jobs.
type JobsConfig struct {
	AutoClockOutCron     string
	AnnualAllocationCron string
}

// Jobs gathers the job schedules scattered over the feature sections.
func (c *Config) Jobs() JobsConfig {
	return JobsConfig{
		AutoClockOutCron:     c.Attendance.AutoClockOutCron,
		AnnualAllocationCron: c.Leave.AnnualAllocationCron,
	}
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads the YAML file at path (optional) and applies WORKPULSE_*
// environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WORKPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "workpulse")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.timezone", "UTC")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "workpulse")
	v.SetDefault("database.user", "workpulse")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.cookie_name", "wp_token")
	v.SetDefault("auth.bcrypt_cost", 12)

	v.SetDefault("attendance.workday_start", "09:00")
	v.SetDefault("attendance.workday_end", "18:00")
	v.SetDefault("attendance.grace_minutes", 10)
	v.SetDefault("attendance.required_minutes", 480)
	v.SetDefault("attendance.overtime_after_minutes", 30)
	v.SetDefault("attendance.auto_clockout_after", 16*time.Hour)
	v.SetDefault("attendance.auto_clockout_cron", "0 3 * * *")

	v.SetDefault("leave.day_minutes", 480)
	v.SetDefault("leave.annual_allocation_cron", "15 0 1 1 *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for sqlite")
	}
	if c.Auth.JWTSecret == "" && c.App.Env == "production" {
		return fmt.Errorf("auth.jwt_secret must be set in production")
	}
	if c.Leave.DayMinutes <= 0 {
		return fmt.Errorf("leave.day_minutes must be positive")
	}
	if _, err := ParseClock(c.Attendance.WorkdayStart); err != nil {
		return fmt.Errorf("attendance.workday_start: %w", err)
	}
	if _, err := ParseClock(c.Attendance.WorkdayEnd); err != nil {
		return fmt.Errorf("attendance.workday_end: %w", err)
	}
	return nil
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case "sqlite":
		return c.Path
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
}

// Addr returns host:port for the HTTP listener.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ClockTime is a minute-of-day wall clock value.
type ClockTime struct {
	Hour   int
	Minute int
}

// MinuteOfDay returns minutes since midnight.
func (t ClockTime) MinuteOfDay() int { return t.Hour*60 + t.Minute }

// ParseClock parses an HH:MM string.
func ParseClock(s string) (ClockTime, error) {
	var t ClockTime
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return t, fmt.Errorf("invalid HH:MM value %q", s)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return t, fmt.Errorf("invalid HH:MM value %q", s)
	}
	return t, nil
}
