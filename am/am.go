// Package am manages TestForge configuration ("I am").
package am

// Config represents the core TestForge configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Runners   RunnersConfig   `mapstructure:"runners"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
}

// ServerConfig configures the TestForge HTTP server
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxBodyKB      int      `mapstructure:"max_body_kb"` // Request body size cap in KiB
}

// DatabaseConfig configures the SQLite test-case database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ArtifactsConfig configures the blob artifact store
type ArtifactsConfig struct {
	Dir string `mapstructure:"dir"`
}

// GenerateConfig configures LLM test generation (Ollama or any
// OpenAI-compatible local endpoint)
type GenerateConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	Model             string `mapstructure:"model"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxCallsPerMinute int    `mapstructure:"max_calls_per_minute"`
}

// RunnersConfig configures the external runner capabilities
type RunnersConfig struct {
	SeleniumRemoteURL  string `mapstructure:"selenium_remote_url"`
	LoadTestTimeoutSec int    `mapstructure:"load_test_timeout_seconds"`
	MavenTimeoutSec    int    `mapstructure:"maven_timeout_seconds"`
}

// DispatchConfig configures the execution dispatcher worker pool
type DispatchConfig struct {
	Workers    int `mapstructure:"workers"`     // Number of concurrent workers
	QueueDepth int `mapstructure:"queue_depth"` // Advisory queue depth before warnings
}

// DefaultServerPort is used when no port is configured
const DefaultServerPort = 8800
