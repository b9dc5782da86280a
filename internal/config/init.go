package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/temirov/codeprompt/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationDirectoryPermissions = 0o755
	configurationFilePermissions      = 0o600

	defaultConfigurationTemplate = `# codeprompt configuration. Command-line flags override these values.

[patterns]
include = []
exclude = []
include_priority = false

[traversal]
hidden = false
no_ignore = false
follow_symlinks = false
exclude_from_tree = false

[content]
line_numbers = false
no_codeblock = false
absolute_paths = false
sort = "name_asc"

[tokens]
encoding = "cl100k"
format = "format"
map = false
map_lines = 20
map_min_percent = 0.1

[output]
format = "markdown"
clipboard = false

[vars]
`
)

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	HomeDirectory    string
}

// DefaultConfiguration returns the text written by InitializeConfiguration.
func DefaultConfiguration() string {
	return defaultConfigurationTemplate
}

// InitializeConfiguration writes the default configuration to the requested target
// and returns the path written.
func InitializeConfiguration(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	var destinationPath string
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		destinationPath = filepath.Join(workingDirectory, utils.ConfigFileName)
	case InitTargetGlobal:
		homeDirectory := options.HomeDirectory
		if homeDirectory == "" {
			resolvedHome, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("resolve home directory for configuration: %w", err)
			}
			homeDirectory = resolvedHome
		}
		destinationPath = GlobalConfigurationPath(homeDirectory)
		configurationDirectory := filepath.Dir(destinationPath)
		if err := os.MkdirAll(configurationDirectory, configurationDirectoryPermissions); err != nil {
			return "", fmt.Errorf("create configuration directory %s: %w", configurationDirectory, err)
		}
	default:
		return "", fmt.Errorf("unsupported init target %q", target)
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("configuration file already exists at %s", destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if err := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), configurationFilePermissions); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}

	return destinationPath, nil
}
