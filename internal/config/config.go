// Package config loads listgen configuration from YAML.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jaxron/listgen/pkg/query"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete listgen configuration.
type Config struct {
	Log            LogConfig             `yaml:"log"`
	HTTP           HTTPConfig            `yaml:"http"`
	Cache          CacheConfig           `yaml:"cache"`
	Lines          LinesConfig           `yaml:"lines"`
	Specifications []SpecificationConfig `yaml:"specifications" validate:"unique=ID,dive"`
	Definitions    []DefinitionConfig    `yaml:"definitions" validate:"unique=ID,dive"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

// HTTPConfig configures the HTTP client and its middleware.
type HTTPConfig struct {
	// Timeout of zero means no client-side timeout.
	Timeout        time.Duration        `yaml:"timeout" validate:"gte=0"`
	UserAgent      string               `yaml:"user_agent"`
	Headers        map[string]string    `yaml:"headers"`
	Proxies        []string             `yaml:"proxies" validate:"dive,url"`
	Retry          RetryConfig          `yaml:"retry"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// RetryConfig configures exponential backoff retries.
type RetryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	MaxAttempts     uint64        `yaml:"max_attempts" validate:"required_if=Enabled true"`
	InitialInterval time.Duration `yaml:"initial_interval" validate:"gte=0"`
	MaxInterval     time.Duration `yaml:"max_interval" validate:"gtefield=InitialInterval"`
}

// RateLimitConfig configures per-host request rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"required_if=Enabled true,gte=0"`
	Burst             int     `yaml:"burst" validate:"required_if=Enabled true,gte=0"`
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheRedis  = "redis"
)

// CacheConfig configures the response cache.
type CacheConfig struct {
	Backend string        `yaml:"backend" validate:"oneof=none memory file redis"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
	Size    int           `yaml:"size" validate:"gte=0"`
	// Dir is the file backend directory; empty means the user cache directory.
	Dir   string      `yaml:"dir"`
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db" validate:"gte=0"`
}

// LinesConfig configures line extraction from fetched documents.
type LinesConfig struct {
	StartMarker string `yaml:"start_marker"`
}

// SpecificationConfig is the YAML form of a query.Specification.
type SpecificationConfig struct {
	ID          string             `yaml:"id" validate:"required"`
	BaseURL     string             `yaml:"base_url" validate:"required,url"`
	Constraints []ConstraintConfig `yaml:"constraints" validate:"unique=Name,dive"`
}

// ConstraintConfig is the YAML form of a query.Constraint.
type ConstraintConfig struct {
	Name    string        `yaml:"name" validate:"required"`
	Allowed AllowedValues `yaml:"allowed"`
}

// DefinitionConfig is the YAML form of a query.Definition.
type DefinitionConfig struct {
	ID          string             `yaml:"id" validate:"required"`
	Spec        string             `yaml:"spec" validate:"required"`
	Assignments []AssignmentConfig `yaml:"assignments" validate:"dive"`
}

// AssignmentConfig is the YAML form of a query.Assignment.
type AssignmentConfig struct {
	Name  string `yaml:"name" validate:"required"`
	Value string `yaml:"value"`
}

// AllowedValues is written as a scalar for a single literal and as a
// sequence for a set of literals.
type AllowedValues struct {
	Values []string `validate:"min=1"`
	Single bool
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AllowedValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		a.Values = []string{node.Value}
		a.Single = true
	case yaml.SequenceNode:
		values := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: allowed values must be scalars", item.Line)
			}
			values = append(values, item.Value)
		}
		a.Values = values
		a.Single = false
	default:
		return fmt.Errorf("line %d: allowed must be a scalar or a sequence", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a AllowedValues) MarshalYAML() (any, error) {
	if a.Single && len(a.Values) == 1 {
		return a.Values[0], nil
	}
	return a.Values, nil
}

// Allowed converts the values to a query.Allowed.
func (a AllowedValues) Allowed() query.Allowed {
	if a.Single && len(a.Values) == 1 {
		return query.SingleValue(a.Values[0])
	}
	return query.ValueSet(a.Values...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateCache, CacheConfig{})
	return v
}

// validateCache requires a Redis address when the Redis backend is selected.
func validateCache(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(CacheConfig)
	if cfg.Backend == CacheRedis && cfg.Redis.Address == "" {
		sl.ReportError(cfg.Redis.Address, "Redis.Address", "Address", "required_with_redis", "")
	}
	if cfg.Backend == CacheMemory && cfg.Size <= 0 {
		sl.ReportError(cfg.Size, "Size", "Size", "gt", "0")
	}
}

// DefaultConfig returns the built-in configuration, which targets the SCOWL
// word list generator and ships stock English definitions.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := cfg.decode(defaultsYAML); err != nil {
		panic(fmt.Sprintf("invalid embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the configuration at path on top of the defaults. Sections the
// file leaves out keep their default values; lists given in the file replace
// the default lists. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.decode(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Registries builds and seals the specification and definition registries.
// Definitions are not checked against their specifications here.
func (c *Config) Registries() (*query.SpecRegistry, *query.DefinitionRegistry, error) {
	specs := query.NewSpecRegistry()
	for _, sc := range c.Specifications {
		constraints := make([]query.Constraint, 0, len(sc.Constraints))
		for _, cc := range sc.Constraints {
			constraints = append(constraints, query.Constraint{Name: cc.Name, Allowed: cc.Allowed.Allowed()})
		}

		spec := query.Specification{ID: sc.ID, BaseURL: sc.BaseURL, Constraints: constraints}
		if err := specs.Register(spec); err != nil {
			return nil, nil, err
		}
	}

	defs := query.NewDefinitionRegistry()
	for _, dc := range c.Definitions {
		assignments := make([]query.Assignment, 0, len(dc.Assignments))
		for _, ac := range dc.Assignments {
			assignments = append(assignments, query.Assignment{Name: ac.Name, Value: ac.Value})
		}

		def := query.Definition{ID: dc.ID, SpecRef: dc.Spec, Assignments: assignments}
		if err := defs.Register(def); err != nil {
			return nil, nil, err
		}
	}

	specs.Seal()
	defs.Seal()
	return specs, defs, nil
}
