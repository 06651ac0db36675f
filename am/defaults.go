package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost",
		"http://127.0.0.1",
	})
	v.SetDefault("server.max_body_kb", 512)

	// Database defaults
	v.SetDefault("database.path", "testforge.db")

	// Artifact store defaults
	v.SetDefault("artifacts.dir", "artifacts")

	// Generation (Ollama) defaults
	v.SetDefault("generate.base_url", "http://localhost:11434")
	v.SetDefault("generate.model", "deepseek-coder:6.7b-instruct")
	v.SetDefault("generate.timeout_seconds", 600)
	v.SetDefault("generate.max_calls_per_minute", 10)

	// Runner defaults
	v.SetDefault("runners.selenium_remote_url", "http://localhost:4444/wd/hub")
	v.SetDefault("runners.load_test_timeout_seconds", 3600)
	v.SetDefault("runners.maven_timeout_seconds", 1800)

	// Dispatcher defaults
	v.SetDefault("dispatch.workers", 4)
	v.SetDefault("dispatch.queue_depth", 256)
}
