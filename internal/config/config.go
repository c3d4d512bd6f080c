// Package config loads the process configuration once at startup.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	DefaultEventType     = "multipart_upload_completed"
	DefaultPartURLExpiry = 2 * time.Hour
	DefaultListenAddr    = ":8080"
)

// Config holds everything the upload API reads from the environment.
// Business code receives it (or parts of it) explicitly.
type Config struct {
	Bucket    string `mapstructure:"bucket_name"    validate:"required"`
	TopicARN  string `mapstructure:"sns_topic_arn"`
	EventType string `mapstructure:"sns_event_type" validate:"required"`

	// Managed selects the Lambda execution role credentials. When false the
	// static credentials and region below are used.
	Managed         bool   `mapstructure:"managed"`
	Region          string `mapstructure:"aws_region"            validate:"required_if=Managed false"`
	AccessKeyID     string `mapstructure:"aws_access_key_id"     validate:"required_if=Managed false"`
	SecretAccessKey string `mapstructure:"aws_secret_access_key" validate:"required_if=Managed false"`
	S3Endpoint      string `mapstructure:"s3_endpoint"           validate:"omitempty,url"`
	UsePathStyle    bool   `mapstructure:"s3_use_path_style"`
	AssumeRoleARN   string `mapstructure:"assume_role_arn"`

	PartURLExpiry time.Duration `mapstructure:"part_url_expiry" validate:"min=1m,max=168h"`
	StrictNotify  bool          `mapstructure:"strict_notify"`

	LogLevel   string `mapstructure:"log_level"   validate:"oneof=debug info warn error"`
	ListenAddr string `mapstructure:"listen_addr"`

	OIDCIssuer   string `mapstructure:"oidc_issuer"    validate:"omitempty,url"`
	OIDCClientID string `mapstructure:"oidc_client_id"`
}

var keys = []string{
	"bucket_name", "sns_topic_arn", "sns_event_type",
	"managed", "aws_region", "aws_access_key_id", "aws_secret_access_key",
	"s3_endpoint", "s3_use_path_style", "assume_role_arn",
	"part_url_expiry", "strict_notify",
	"log_level", "listen_addr",
	"oidc_issuer", "oidc_client_id",
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetDefault("sns_event_type", DefaultEventType)
	v.SetDefault("managed", true)
	v.SetDefault("part_url_expiry", DefaultPartURLExpiry)
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", DefaultListenAddr)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range keys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct rules and reports every failing field by its
// environment variable name.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s (%s)", envName(fe.StructField()), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
}

var envNames = map[string]string{
	"Bucket":          "BUCKET_NAME",
	"TopicARN":        "SNS_TOPIC_ARN",
	"EventType":       "SNS_EVENT_TYPE",
	"Managed":         "MANAGED",
	"Region":          "AWS_REGION",
	"AccessKeyID":     "AWS_ACCESS_KEY_ID",
	"SecretAccessKey": "AWS_SECRET_ACCESS_KEY",
	"S3Endpoint":      "S3_ENDPOINT",
	"UsePathStyle":    "S3_USE_PATH_STYLE",
	"AssumeRoleARN":   "ASSUME_ROLE_ARN",
	"PartURLExpiry":   "PART_URL_EXPIRY",
	"StrictNotify":    "STRICT_NOTIFY",
	"LogLevel":        "LOG_LEVEL",
	"ListenAddr":      "LISTEN_ADDR",
	"OIDCIssuer":      "OIDC_ISSUER",
	"OIDCClientID":    "OIDC_CLIENT_ID",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}
