package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/Capitan-Parrot/detect-people/internal/labels"
	"github.com/Capitan-Parrot/detect-people/internal/models"
)

// Config is the service configuration. Environment variables override the
// YAML file.
type Config struct {
	Kafka struct {
		Brokers      []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID      string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		Topic        string   `yaml:"topic" env:"KAFKA_TOPIC"`
		OutcomeTopic string   `yaml:"outcome_topic" env:"KAFKA_OUTCOME_TOPIC"`
		Prefetch     int      `yaml:"prefetch" env:"KAFKA_PREFETCH"`
	} `yaml:"kafka"`

	Detection struct {
		Endpoint    string        `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
		Timeout     time.Duration `yaml:"timeout" env:"DETECTION_TIMEOUT"`
		MaxInFlight int64         `yaml:"max_in_flight" env:"DETECTION_MAX_IN_FLIGHT"`
	} `yaml:"detection"`

	Triage struct {
		DrawJunkObjects        bool     `yaml:"draw_junk_objects" env:"DRAW_JUNK_OBJECTS"`
		DrawKeptObjects        bool     `yaml:"draw_kept_objects" env:"DRAW_KEPT_OBJECTS"`
		FillRectangles         bool     `yaml:"fill_rectangles" env:"FILL_RECTANGLES"`
		ForbiddenObjects       []string `yaml:"forbidden_objects" env:"FORBIDDEN_OBJECTS" envSeparator:","`
		MinPersonHeightPercent float64  `yaml:"min_person_height_percent" env:"MIN_PERSON_HEIGHT_PERCENT"`
		MinPersonWidthPercent  float64  `yaml:"min_person_width_percent" env:"MIN_PERSON_WIDTH_PERCENT"`
		MinPersonHeightPixels  int      `yaml:"min_person_height_pixels" env:"MIN_PERSON_HEIGHT_PIXELS"`
		MinPersonWidthPixels   int      `yaml:"min_person_width_pixels" env:"MIN_PERSON_WIDTH_PIXELS"`
		JPEGQuality            int      `yaml:"jpeg_quality" env:"JPEG_QUALITY"`
	} `yaml:"triage"`

	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	} `yaml:"minio"`

	HTTP struct {
		Addr string `yaml:"addr" env:"HTTP_ADDR"`
	} `yaml:"http"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
		File   string `yaml:"file" env:"LOG_FILE"`
	} `yaml:"log"`

	// FromDefaults is set when no config file was found.
	FromDefaults bool `yaml:"-"`
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.GroupID = "detect-people"
	cfg.Kafka.Topic = "captures"
	cfg.Kafka.Prefetch = 4

	cfg.Detection.Endpoint = "http://localhost:8000"
	cfg.Detection.Timeout = 30 * time.Second
	cfg.Detection.MaxInFlight = 1

	cfg.Triage.DrawJunkObjects = true
	cfg.Triage.ForbiddenObjects = []string{"car", "train", "bird"}
	cfg.Triage.MinPersonHeightPercent = 13.1
	cfg.Triage.MinPersonWidthPercent = 3.7
	cfg.Triage.MinPersonHeightPixels = 200
	cfg.Triage.MinPersonWidthPixels = 100
	cfg.Triage.JPEGQuality = 25

	cfg.Minio.Bucket = "detections"
	cfg.HTTP.Addr = ":8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"

	return cfg
}

// LoadConfig reads the YAML file over the defaults, then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			cfg.FromDefaults = true
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	} else {
		cfg.FromDefaults = true
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return cfg, nil
}

// Thresholds resolves the triage section into the value shared by every
// pipeline invocation.
func (c *Config) Thresholds() (models.ThresholdConfig, error) {
	ids, err := labels.IDs(c.Triage.ForbiddenObjects)
	if err != nil {
		return models.ThresholdConfig{}, err
	}

	return models.ThresholdConfig{
		ForbiddenClassIDs: lo.SliceToMap(ids, func(id int) (int, struct{}) { return id, struct{}{} }),
		MinHeightPercent:  c.Triage.MinPersonHeightPercent,
		MinWidthPercent:   c.Triage.MinPersonWidthPercent,
		MinHeightPixels:   c.Triage.MinPersonHeightPixels,
		MinWidthPixels:    c.Triage.MinPersonWidthPixels,
		DrawJunkObjects:   c.Triage.DrawJunkObjects,
		DrawKeptObjects:   c.Triage.DrawKeptObjects,
		FillRectangles:    c.Triage.FillRectangles,
	}, nil
}

// Validate checks the triage section. withTransport also requires a usable
// Kafka section.
func (c *Config) Validate(withTransport bool) error {
	var err error

	t := c.Triage
	if t.MinPersonHeightPercent < 0 || t.MinPersonWidthPercent < 0 {
		err = multierr.Append(err, errors.New("person size percentages must not be negative"))
	}
	if t.MinPersonHeightPixels < 0 || t.MinPersonWidthPixels < 0 {
		err = multierr.Append(err, errors.New("person size pixels must not be negative"))
	}
	if t.JPEGQuality < 1 || t.JPEGQuality > 100 {
		err = multierr.Append(err, fmt.Errorf("jpeg_quality %d out of range 1..100", t.JPEGQuality))
	}
	if _, terr := labels.IDs(t.ForbiddenObjects); terr != nil {
		err = multierr.Append(err, terr)
	}
	if c.Detection.Endpoint == "" {
		err = multierr.Append(err, errors.New("detection endpoint is required"))
	}

	if withTransport {
		if len(lo.Compact(c.Kafka.Brokers)) == 0 {
			err = multierr.Append(err, errors.New("kafka brokers are required"))
		}
		if c.Kafka.Topic == "" {
			err = multierr.Append(err, errors.New("kafka topic is required"))
		}
		if c.Kafka.GroupID == "" {
			err = multierr.Append(err, errors.New("kafka group_id is required"))
		}
	}

	return err
}
