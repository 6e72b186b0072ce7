package tracing

import (
	"fmt"
)

// Config holds the tracing configuration
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLPExporterEndpoint is host:port of an OTLP gRPC collector. Empty
	// disables export and keeps the global no-op provider.
	OTLPExporterEndpoint string
	OTLPExporterInsecure bool

	SamplingRatio float64
}

// Enabled reports whether spans should be exported.
func (c *Config) Enabled() bool {
	return c.OTLPExporterEndpoint != ""
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return &ConfigError{Field: "ServiceName", Message: "service name cannot be empty"}
	}
	if c.SamplingRatio < 0 || c.SamplingRatio > 1 {
		return &ConfigError{Field: "SamplingRatio", Message: "sampling ratio must be between 0 and 1"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Message)
}
