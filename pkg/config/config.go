package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the deployer
type Config struct {
	// AWS Configuration
	Region string `yaml:"region"`

	// Target resources
	FunctionName string `yaml:"function_name"`
	RoleName     string `yaml:"role_name"`

	// Function settings
	Handler        string `yaml:"handler"`
	Runtime        string `yaml:"runtime"`
	Architecture   string `yaml:"architecture"`
	MemoryMB       int32  `yaml:"memory_mb"`
	TimeoutSeconds int32  `yaml:"timeout_seconds"`

	// Credentials (opaque; never defaulted)
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	SessionToken    string `yaml:"-"`

	// CredentialsSecretName names a Secrets Manager secret holding the
	// credential triple; when set it takes precedence over the env triple
	CredentialsSecretName string `yaml:"credentials_secret"`

	// Optional collaborators
	NotificationsTopicArn string `yaml:"notifications_topic_arn"`
	HistoryTableName      string `yaml:"history_table"`

	// Build pipeline
	ArtifactPath string `yaml:"artifact_path"`
	BuildImage   string `yaml:"build_image"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	functionName := os.Getenv("FUNCTION_NAME")
	if functionName == "" {
		functionName = "lambda-example"
	}

	roleName := os.Getenv("ROLE_NAME")
	if roleName == "" {
		roleName = functionName + "-role"
	}

	handler := os.Getenv("FUNCTION_HANDLER")
	if handler == "" {
		handler = "bootstrap"
	}

	runtime := os.Getenv("FUNCTION_RUNTIME")
	if runtime == "" {
		runtime = "provided.al2023"
	}

	architecture := os.Getenv("FUNCTION_ARCHITECTURE")
	if architecture == "" {
		architecture = "arm64"
	}

	memoryMB, err := intEnv("FUNCTION_MEMORY_MB", 128)
	if err != nil {
		return nil, err
	}

	timeoutSeconds, err := intEnv("FUNCTION_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	return &Config{
		Region:                region,
		FunctionName:          functionName,
		RoleName:              roleName,
		Handler:               handler,
		Runtime:               runtime,
		Architecture:          architecture,
		MemoryMB:              memoryMB,
		TimeoutSeconds:        timeoutSeconds,
		AccessKeyID:           os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:          os.Getenv("AWS_SESSION_TOKEN"),
		CredentialsSecretName: os.Getenv("DEPLOY_CREDENTIALS_SECRET"),
		NotificationsTopicArn: os.Getenv("DEPLOY_NOTIFICATIONS_TOPIC_ARN"),
		HistoryTableName:      os.Getenv("DEPLOY_HISTORY_TABLE"),
		ArtifactPath:          os.Getenv("ARTIFACT_PATH"),
		BuildImage:            os.Getenv("BUILD_IMAGE"),
	}, nil
}

// MustLoad loads configuration and panics if there's an error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// ApplyManifest overlays values from a YAML manifest file onto the config.
// Only fields present in the manifest are overwritten.
func (c *Config) ApplyManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	return nil
}

// Validate checks that all required configuration is present
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("AWS region is required")
	}

	if c.FunctionName == "" {
		return fmt.Errorf("function name is required")
	}

	if c.RoleName == "" {
		return fmt.Errorf("role name is required")
	}

	if c.MemoryMB <= 0 {
		return fmt.Errorf("function memory must be positive, got %d", c.MemoryMB)
	}

	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("function timeout must be positive, got %d", c.TimeoutSeconds)
	}

	return nil
}

// HasStaticCredentials reports whether an explicit credential pair was supplied
func (c *Config) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

func intEnv(key string, fallback int32) (int32, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}

	return int32(value), nil
}
