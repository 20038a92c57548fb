package config

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/tickflow/internal/broker"
	"github.com/rxtech-lab/tickflow/internal/feed/series"
	"github.com/rxtech-lab/tickflow/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top level replay configuration.
type Config struct {
	Feed      FeedConfig    `yaml:"feed" json:"feed" jsonschema:"title=Feed,description=Market data source configuration"`
	Broker    broker.Config `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Trading session configuration"`
	ResultDir string        `yaml:"result_dir" json:"result_dir" jsonschema:"title=Result Directory,description=Directory the recorder writes parquet files to"`
}

// FeedConfig describes where the series come from and the optional replay window.
type FeedConfig struct {
	Source    series.SourceConfig        `yaml:"source" json:"source" jsonschema:"title=Source,description=CSV file paths for candles quotes and depth"`
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive lower bound for replayed events"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive upper bound for replayed events"`
}

// UnmarshalYAML implements custom unmarshaling for FeedConfig
func (c *FeedConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type feedConfig struct {
		Source    series.SourceConfig `yaml:"source"`
		StartTime *time.Time          `yaml:"start_time"`
		EndTime   *time.Time          `yaml:"end_time"`
	}

	var config feedConfig
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Source = config.Source
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}
	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate validates the Config struct.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid replay config", err)
	}

	if c.StartAfterEnd() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "start_time is after end_time")
	}

	return nil
}

// StartAfterEnd reports whether both window bounds are set and inverted.
func (c *Config) StartAfterEnd() bool {
	if c.Feed.StartTime.IsNone() || c.Feed.EndTime.IsNone() {
		return false
	}

	return c.Feed.StartTime.Unwrap().After(c.Feed.EndTime.Unwrap())
}

// Parse parses a YAML configuration string into a Config and validates it.
func Parse(content string) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse replay config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseFile reads a YAML configuration file and parses it.
func ParseFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to read replay config", err)
	}

	return Parse(string(content))
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			StartTime: optional.None[time.Time](),
			EndTime:   optional.None[time.Time](),
		},
		Broker: broker.Config{
			ReplyTTL: broker.DefaultReplyTTL,
		},
		ResultDir: "results",
	}
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "tickflow-replay-config"
	schema.Description = "Configuration schema for the tickflow replay engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
