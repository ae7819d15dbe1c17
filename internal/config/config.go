// Package config provides Viper-based configuration loading for the planner.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ContentConfig holds content pack locations.
type ContentConfig struct {
	// PackDir is the directory holding YAML content packs, loaded in
	// lexical order.
	PackDir string `mapstructure:"pack_dir"`
	// ScriptDir is the directory holding Lua condition handlers. Empty
	// disables scripted conditions.
	ScriptDir string `mapstructure:"script_dir"`
	// RawConditionPolicy decides unhandled raw conditions: "strict" or
	// "permissive".
	RawConditionPolicy string `mapstructure:"raw_condition_policy"`
}

// RulesConfig holds the build rule set.
type RulesConfig struct {
	// PerkInterval grants a perk pick at every level divisible by it.
	PerkInterval int `mapstructure:"perk_interval"`
	// SkillCap is the maximum value any skill may reach.
	SkillCap int `mapstructure:"skill_cap"`
	// AttributeBudget is the creation SPECIAL point pool.
	AttributeBudget int `mapstructure:"attribute_budget"`
	// AttributeMin and AttributeMax bound each creation SPECIAL value.
	AttributeMin int `mapstructure:"attribute_min"`
	AttributeMax int `mapstructure:"attribute_max"`
	// TagCount is the number of creation tag skills.
	TagCount int `mapstructure:"tag_count"`
	// MaxTraits is the number of creation trait slots.
	MaxTraits int `mapstructure:"max_traits"`
	// SkillPointCarryover lets unspent level-up points roll forward.
	SkillPointCarryover bool `mapstructure:"skill_point_carryover"`
	// IncludeBigGuns enables the modded Big Guns skill.
	IncludeBigGuns bool `mapstructure:"include_big_guns"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// Enabled toggles plan persistence; the planner runs fine without a
	// database.
	Enabled bool `mapstructure:"enabled"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	Content  ContentConfig  `mapstructure:"content"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateRules(c.Rules); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.PackDir == "" {
		errs = append(errs, "content.pack_dir must not be empty")
	}
	validPolicies := map[string]bool{"strict": true, "permissive": true}
	if !validPolicies[c.RawConditionPolicy] {
		errs = append(errs, fmt.Sprintf("content.raw_condition_policy must be one of [strict, permissive], got %q", c.RawConditionPolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateRules(r RulesConfig) error {
	var errs []string
	if r.PerkInterval < 1 {
		errs = append(errs, fmt.Sprintf("rules.perk_interval must be >= 1, got %d", r.PerkInterval))
	}
	if r.SkillCap < 1 {
		errs = append(errs, fmt.Sprintf("rules.skill_cap must be >= 1, got %d", r.SkillCap))
	}
	if r.AttributeMin < 1 {
		errs = append(errs, fmt.Sprintf("rules.attribute_min must be >= 1, got %d", r.AttributeMin))
	}
	if r.AttributeMax < r.AttributeMin {
		errs = append(errs, fmt.Sprintf("rules.attribute_max must be >= attribute_min, got %d", r.AttributeMax))
	}
	if r.AttributeBudget < r.AttributeMin*7 || r.AttributeBudget > r.AttributeMax*7 {
		errs = append(errs, fmt.Sprintf("rules.attribute_budget %d cannot be allocated within [%d, %d]", r.AttributeBudget, r.AttributeMin, r.AttributeMax))
	}
	if r.TagCount < 0 {
		errs = append(errs, fmt.Sprintf("rules.tag_count must be >= 0, got %d", r.TagCount))
	}
	if r.MaxTraits < 0 {
		errs = append(errs, fmt.Sprintf("rules.max_traits must be >= 0, got %d", r.MaxTraits))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with FNV_ prefix
	v.SetEnvPrefix("FNV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("content.pack_dir", "content")
	v.SetDefault("content.script_dir", "")
	v.SetDefault("content.raw_condition_policy", "strict")

	v.SetDefault("rules.perk_interval", 2)
	v.SetDefault("rules.skill_cap", 100)
	v.SetDefault("rules.attribute_budget", 40)
	v.SetDefault("rules.attribute_min", 1)
	v.SetDefault("rules.attribute_max", 10)
	v.SetDefault("rules.tag_count", 3)
	v.SetDefault("rules.max_traits", 2)
	v.SetDefault("rules.skill_point_carryover", false)
	v.SetDefault("rules.include_big_guns", false)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "planner")
	v.SetDefault("database.password", "planner")
	v.SetDefault("database.name", "planner")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
