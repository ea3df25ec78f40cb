package config

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/conneroisu/stencil/internal/logging"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", ve.Field, ve.Message)
}

// ValidationResult holds the result of configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// HasErrors returns true if there are any validation errors
func (vr *ValidationResult) HasErrors() bool {
	return len(vr.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings
func (vr *ValidationResult) HasWarnings() bool {
	return len(vr.Warnings) > 0
}

// String returns a formatted string of all validation issues
func (vr *ValidationResult) String() string {
	var builder strings.Builder

	if len(vr.Errors) > 0 {
		builder.WriteString("Validation errors:\n")
		for _, err := range vr.Errors {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
			for _, suggestion := range err.Suggestions {
				builder.WriteString(fmt.Sprintf("    hint: %s\n", suggestion))
			}
		}
	}

	if len(vr.Warnings) > 0 {
		builder.WriteString("Validation warnings:\n")
		for _, warning := range vr.Warnings {
			builder.WriteString(fmt.Sprintf("  - %s: %s\n", warning.Field, warning.Message))
		}
	}

	return builder.String()
}

// ValidateConfigWithDetails checks every section and collects all problems.
func ValidateConfigWithDetails(config *Config) *ValidationResult {
	result := &ValidationResult{}

	validateServerConfig(&config.Server, result)
	validateBuildConfig(&config.Build, result)
	validateWatchConfig(&config.Watch, result)
	validateLogConfig(&config.Log, result)

	return result
}

// validateConfig returns the first validation error, if any.
func validateConfig(config *Config) error {
	result := ValidateConfigWithDetails(config)
	if result.HasErrors() {
		return &result.Errors[0]
	}
	return nil
}

func validateServerConfig(config *ServerConfig, result *ValidationResult) {
	// Port 0 lets the system assign one, which tests rely on.
	if config.Port < 0 || config.Port > 65535 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
			Suggestions: []string{
				"Common development ports: 8000, 8080, 3000",
				"Port 0 allows system to assign an available port",
			},
		})
	} else if config.Port > 0 && config.Port < 1024 {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: "port below 1024 requires elevated privileges",
		})
	}

	if config.Host != "" {
		if err := validateHostname(config.Host); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: err.Error(),
				Suggestions: []string{
					"Use 'localhost' for local development",
					"Use '0.0.0.0' to bind to all interfaces",
				},
			})
		}
	}
}

func validateBuildConfig(config *BuildConfig, result *ValidationResult) {
	if len(config.PageExtensions) == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "build.page_extensions",
			Message:     "at least one page extension is required",
			Suggestions: []string{"Default: .md .markdown .html .htm .txt"},
		})
	}
	for _, ext := range config.PageExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 || strings.ContainsAny(ext, `/\ `) {
			result.Errors = append(result.Errors, ValidationError{
				Field:       "build.page_extensions",
				Value:       ext,
				Message:     fmt.Sprintf("extension %q must start with a dot", ext),
				Suggestions: []string{"Write extensions like .html"},
			})
		}
	}

	if config.ExcludePattern != "" {
		if _, err := filepath.Match(config.ExcludePattern, ""); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "build.exclude_pattern",
				Value:   config.ExcludePattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	} else {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:   "build.exclude_pattern",
			Message: "no exclusion pattern; partials and templates will be built as pages",
		})
	}

	dirs := []struct {
		field string
		value string
	}{
		{"build.assets_dir", config.AssetsDir},
		{"build.output_dir", config.OutputDir},
		{"build.release_dir", config.ReleaseDir},
		{"build.output_assets_dir", config.OutputAssetsDir},
	}
	for _, dir := range dirs {
		if err := validatePath(dir.value); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:       dir.field,
				Value:       dir.value,
				Message:     err.Error(),
				Suggestions: []string{"Use a path relative to the site root"},
			})
		}
	}

	if config.OutputDir != "" && filepath.Clean(config.OutputDir) == filepath.Clean(config.ReleaseDir) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "build.release_dir",
			Value:   config.ReleaseDir,
			Message: "release directory must differ from the output directory",
		})
	}

	if config.MaxDepth <= 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "build.max_depth",
			Value:   config.MaxDepth,
			Message: "max_depth must be positive",
		})
	}
}

func validateWatchConfig(config *WatchConfig, result *ValidationResult) {
	if config.Debounce < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "watch.debounce",
			Value:   config.Debounce,
			Message: "debounce must not be negative",
		})
	}

	for _, pattern := range config.Ignore {
		if _, err := filepath.Match(pattern, ""); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "watch.ignore",
				Value:   pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
	}
}

func validateLogConfig(config *LogConfig, result *ValidationResult) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:       "log.level",
			Value:       config.Level,
			Message:     err.Error(),
			Suggestions: []string{"Use one of debug, info, warn, error"},
		})
	}

	switch config.Format {
	case "", "text", "json":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:   "log.format",
			Value:   config.Format,
			Message: fmt.Sprintf("unknown log format %q", config.Format),
		})
	}
}

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

func validateHostname(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	if net.ParseIP(host) != nil {
		return nil
	}

	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format")
	}

	return nil
}

// validatePath checks a directory setting: non-empty, relative, and not
// escaping the site root.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path should be relative: %s", path)
	}

	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	if cleanPath == "." {
		return fmt.Errorf("path must name a subdirectory: %s", path)
	}

	return nil
}
