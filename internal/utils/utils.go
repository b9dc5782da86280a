// Package utils contains general helper functions used across codeprompt.
package utils

import (
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// Ignore and configuration file names used across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
	// GitInfoExcludePath is the repository-local exclude file relative to the root.
	GitInfoExcludePath = ".git/info/exclude"
	// ConfigFileName is the local configuration file looked up in the working directory.
	ConfigFileName = ".codeprompt.toml"
	// GlobalConfigDirectoryName is the directory under the home directory holding global configuration.
	GlobalConfigDirectoryName = ".codeprompt"
	// GlobalConfigFileName is the configuration file inside GlobalConfigDirectoryName.
	GlobalConfigFileName = "config.toml"
)

const (
	pathSegmentSeparator = "/"
	currentDirectory     = "."
	hiddenNamePrefix     = "."
)

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// Blank entries are dropped and the first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		if _, exists := encounteredPatterns[trimmedPattern]; !exists {
			encounteredPatterns[trimmedPattern] = struct{}{}
			result = append(result, trimmedPattern)
		}
	}
	return result
}

// JoinRelativePath appends name to a slash-separated relative directory path.
func JoinRelativePath(relativeDirectory, name string) string {
	if relativeDirectory == "" || relativeDirectory == currentDirectory {
		return name
	}
	return relativeDirectory + pathSegmentSeparator + name
}

// NormalizeSlashPath converts backslashes to forward slashes and strips a leading "./".
func NormalizeSlashPath(path string) string {
	normalized := strings.ReplaceAll(path, "\\", pathSegmentSeparator)
	for strings.HasPrefix(normalized, currentDirectory+pathSegmentSeparator) {
		normalized = strings.TrimPrefix(normalized, currentDirectory+pathSegmentSeparator)
	}
	return normalized
}

// IsHiddenName reports whether a path segment is a dotfile or dot-directory.
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, hiddenNamePrefix) && name != currentDirectory && name != ".."
}

// FileExtension returns the extension of name without the leading dot.
// Dotfiles without a further dot, such as ".env", have no extension.
func FileExtension(name string) string {
	extension := filepath.Ext(name)
	if extension == "" || extension == name {
		return ""
	}
	return strings.TrimPrefix(extension, hiddenNamePrefix)
}

// FormatByteSize renders a byte count for log output.
func FormatByteSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}
