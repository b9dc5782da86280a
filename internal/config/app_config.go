package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/temirov/codeprompt/internal/utils"
)

const (
	workingDirectoryErrorFormat = "determine working directory: %w"
	resolvePathErrorFormat      = "resolve configuration path %s: %w"
	statErrorFormat             = "stat configuration %s: %w"
	directoryErrorFormat        = "configuration path %s is a directory"
	readErrorFormat             = "read configuration from %s: %w"
	decodeErrorFormat           = "decode configuration from %s: %w"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	// ExplicitFilePath replaces the local configuration file. The global file is still read.
	ExplicitFilePath string
	// HomeDirectory overrides the user home directory used to find the global file.
	HomeDirectory string
}

// ApplicationConfiguration holds defaults for every codeprompt option.
// Pointer and empty values mean "not set" so that merging never overrides.
type ApplicationConfiguration struct {
	Patterns  PatternConfiguration   `mapstructure:"patterns"`
	Traversal TraversalConfiguration `mapstructure:"traversal"`
	Content   ContentConfiguration   `mapstructure:"content"`
	Tokens    TokenConfiguration     `mapstructure:"tokens"`
	Output    OutputConfiguration    `mapstructure:"output"`
	Variables map[string]string      `mapstructure:"vars"`
}

// PatternConfiguration lists include and exclude patterns.
type PatternConfiguration struct {
	Include           []string `mapstructure:"include"`
	Exclude           []string `mapstructure:"exclude"`
	IncludePriority   *bool    `mapstructure:"include_priority"`
	IncludeExtensions []string `mapstructure:"include_extensions"`
	ExcludeExtensions []string `mapstructure:"exclude_extensions"`
	IncludeFiles      []string `mapstructure:"include_files"`
	ExcludeFiles      []string `mapstructure:"exclude_files"`
	IncludeFolders    []string `mapstructure:"include_folders"`
	ExcludeFolders    []string `mapstructure:"exclude_folders"`
}

// TraversalConfiguration controls which entries the walker yields.
type TraversalConfiguration struct {
	Hidden          *bool `mapstructure:"hidden"`
	NoIgnore        *bool `mapstructure:"no_ignore"`
	FollowSymlinks  *bool `mapstructure:"follow_symlinks"`
	ExcludeFromTree *bool `mapstructure:"exclude_from_tree"`
}

// ContentConfiguration controls file content formatting.
type ContentConfiguration struct {
	LineNumbers   *bool  `mapstructure:"line_numbers"`
	NoCodeblock   *bool  `mapstructure:"no_codeblock"`
	AbsolutePaths *bool  `mapstructure:"absolute_paths"`
	Sort          string `mapstructure:"sort"`
	Concurrency   *int   `mapstructure:"concurrency"`
}

// TokenConfiguration controls token counting defaults.
type TokenConfiguration struct {
	Encoding          string   `mapstructure:"encoding"`
	Format            string   `mapstructure:"format"`
	Map               *bool    `mapstructure:"map"`
	MapLines          *int     `mapstructure:"map_lines"`
	MapMinimumPercent *float64 `mapstructure:"map_min_percent"`
}

// OutputConfiguration controls rendering and delivery.
type OutputConfiguration struct {
	Format    string `mapstructure:"format"`
	Template  string `mapstructure:"template"`
	File      string `mapstructure:"file"`
	Clipboard *bool  `mapstructure:"clipboard"`
}

// GlobalConfigurationPath returns the global configuration file under homeDirectory.
func GlobalConfigurationPath(homeDirectory string) string {
	return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.GlobalConfigFileName)
}

// LoadApplicationConfiguration loads the global file, then the local or explicit file on top of it.
// Missing files are not an error; an explicit file that does not exist is.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf(workingDirectoryErrorFormat, err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	homeDirectory := options.HomeDirectory
	if homeDirectory == "" {
		if resolvedHome, err := os.UserHomeDir(); err == nil {
			homeDirectory = resolvedHome
		}
	}
	if homeDirectory != "" {
		globalConfig, loadErr := loadConfigurationFromPath(GlobalConfigurationPath(homeDirectory), false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	return merged.Merge(localConfig), nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath == "" {
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	}
	if filepath.IsAbs(explicitPath) {
		return explicitPath, nil
	}
	absolute, err := filepath.Abs(filepath.Join(workingDirectory, explicitPath))
	if err != nil {
		return "", fmt.Errorf(resolvePathErrorFormat, explicitPath, err)
	}
	return absolute, nil
}

func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf(statErrorFormat, path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf(directoryErrorFormat, path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(readErrorFormat, path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf(decodeErrorFormat, path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Patterns = result.Patterns.merge(override.Patterns)
	result.Traversal = result.Traversal.merge(override.Traversal)
	result.Content = result.Content.merge(override.Content)
	result.Tokens = result.Tokens.merge(override.Tokens)
	result.Output = result.Output.merge(override.Output)
	if len(override.Variables) > 0 {
		variables := make(map[string]string, len(result.Variables)+len(override.Variables))
		for key, value := range result.Variables {
			variables[key] = value
		}
		for key, value := range override.Variables {
			variables[key] = value
		}
		result.Variables = variables
	}
	return result
}

func (config PatternConfiguration) merge(override PatternConfiguration) PatternConfiguration {
	result := config
	result.Include = mergePatterns(result.Include, override.Include)
	result.Exclude = mergePatterns(result.Exclude, override.Exclude)
	result.IncludeExtensions = mergePatterns(result.IncludeExtensions, override.IncludeExtensions)
	result.ExcludeExtensions = mergePatterns(result.ExcludeExtensions, override.ExcludeExtensions)
	result.IncludeFiles = mergePatterns(result.IncludeFiles, override.IncludeFiles)
	result.ExcludeFiles = mergePatterns(result.ExcludeFiles, override.ExcludeFiles)
	result.IncludeFolders = mergePatterns(result.IncludeFolders, override.IncludeFolders)
	result.ExcludeFolders = mergePatterns(result.ExcludeFolders, override.ExcludeFolders)
	result.IncludePriority = overrideValue(result.IncludePriority, override.IncludePriority)
	return result
}

func (config TraversalConfiguration) merge(override TraversalConfiguration) TraversalConfiguration {
	result := config
	result.Hidden = overrideValue(result.Hidden, override.Hidden)
	result.NoIgnore = overrideValue(result.NoIgnore, override.NoIgnore)
	result.FollowSymlinks = overrideValue(result.FollowSymlinks, override.FollowSymlinks)
	result.ExcludeFromTree = overrideValue(result.ExcludeFromTree, override.ExcludeFromTree)
	return result
}

func (config ContentConfiguration) merge(override ContentConfiguration) ContentConfiguration {
	result := config
	result.LineNumbers = overrideValue(result.LineNumbers, override.LineNumbers)
	result.NoCodeblock = overrideValue(result.NoCodeblock, override.NoCodeblock)
	result.AbsolutePaths = overrideValue(result.AbsolutePaths, override.AbsolutePaths)
	result.Concurrency = overrideValue(result.Concurrency, override.Concurrency)
	if override.Sort != "" {
		result.Sort = override.Sort
	}
	return result
}

func (config TokenConfiguration) merge(override TokenConfiguration) TokenConfiguration {
	result := config
	if override.Encoding != "" {
		result.Encoding = override.Encoding
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	result.Map = overrideValue(result.Map, override.Map)
	result.MapLines = overrideValue(result.MapLines, override.MapLines)
	result.MapMinimumPercent = overrideValue(result.MapMinimumPercent, override.MapMinimumPercent)
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Template != "" {
		result.Template = override.Template
	}
	if override.File != "" {
		result.File = override.File
	}
	result.Clipboard = overrideValue(result.Clipboard, override.Clipboard)
	return result
}

// mergePatterns replaces base with override when override lists anything.
func mergePatterns(base []string, override []string) []string {
	deduplicated := utils.DeduplicatePatterns(override)
	if len(deduplicated) == 0 {
		return base
	}
	return deduplicated
}

func overrideValue[T any](base *T, override *T) *T {
	if override == nil {
		return base
	}
	cloned := *override
	return &cloned
}
