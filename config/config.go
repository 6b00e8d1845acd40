package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	auth "github.com/goliatone/go-role-auth"
	"github.com/goliatone/go-role-auth/repository"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration of the roleauth service. It is loaded
// from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig              `yaml:"server"`
	Database DatabaseConfig            `yaml:"database"`
	Redis    RedisConfig               `yaml:"redis"`
	Logging  LoggingConfig             `yaml:"logging"`
	Roles    map[auth.Role]*RoleConfig `yaml:"roles"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Prefix       string        `yaml:"prefix"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	Metrics      bool          `yaml:"metrics"`
}

// DatabaseConfig selects the SQL driver and DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	// Debug logs every query, not only the failing ones
	Debug bool `yaml:"debug"`
}

// RedisConfig enables the lockout cache when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	LockoutTTL time.Duration `yaml:"lockout_ttl"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RoleConfig holds the signing secret and session length of a role.
type RoleConfig struct {
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// SecretEnv maps each role to the environment variable holding its secret
var SecretEnv = map[auth.Role]string{
	auth.RoleDirectivo:              "JWT_KEY_DIRECTIVOS",
	auth.RoleProfesorPrimaria:       "JWT_KEY_PROFESORES_PRIMARIA",
	auth.RoleProfesorSecundaria:     "JWT_KEY_PROFESORES_SECUNDARIA",
	auth.RoleTutor:                  "JWT_KEY_TUTORES",
	auth.RoleAuxiliar:               "JWT_KEY_AUXILIARES",
	auth.RolePersonalAdministrativo: "JWT_KEY_PERSONAL_ADMINISTRATIVO",
	auth.RoleResponsable:            "JWT_KEY_RESPONSABLES",
}

// Load reads path, applies environment overrides and validates the result.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":3000",
			Prefix:       "/api",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			Metrics:      true,
		},
		Database: DatabaseConfig{
			Driver: repository.DriverSQLite,
			DSN:    "file:roleauth.db?cache=shared",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Roles: map[auth.Role]*RoleConfig{},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if cfg.Roles == nil {
		cfg.Roles = map[auth.Role]*RoleConfig{}
	}
	for role, env := range SecretEnv {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if cfg.Roles[role] == nil {
			cfg.Roles[role] = &RoleConfig{}
		}
		cfg.Roles[role].Secret = v
	}
}

func applyDefaults(cfg *Config) {
	for _, role := range auth.AllRoles() {
		rc := cfg.Roles[role]
		if rc == nil {
			rc = &RoleConfig{}
			cfg.Roles[role] = rc
		}
		if rc.TokenTTL <= 0 {
			rc.TokenTTL = auth.DefaultTokenTTL
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}

	switch c.Database.Driver {
	case repository.DriverSQLite, repository.DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	if c.Database.DSN == "" {
		errs = append(errs, "database.dsn is required")
	}

	for role := range c.Roles {
		if !role.IsValid() {
			errs = append(errs, fmt.Sprintf("roles.%s is not a known role", role))
		}
	}

	for _, role := range auth.AllRoles() {
		rc := c.Roles[role]
		if rc == nil || rc.Secret == "" {
			errs = append(errs, fmt.Sprintf("roles.%s.secret is required (set %s)", role, SecretEnv[role]))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Secrets returns the signing secret of every configured role
func (c *Config) Secrets() map[auth.Role][]byte {
	out := make(map[auth.Role][]byte, len(c.Roles))
	for role, rc := range c.Roles {
		if rc != nil {
			out[role] = []byte(rc.Secret)
		}
	}
	return out
}

// TTLs returns the token lifetime of every configured role
func (c *Config) TTLs() map[auth.Role]time.Duration {
	out := make(map[auth.Role]time.Duration, len(c.Roles))
	for role, rc := range c.Roles {
		if rc != nil {
			out[role] = rc.TokenTTL
		}
	}
	return out
}
