package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/woozymasta/pathrules"

	"github.com/temirov/codeprompt/internal/utils"
)

const (
	loadIgnoreFileErrorFormat     = "loading %s from %s: %w"
	compileIgnoreRulesErrorFormat = "compiling ignore rules from %s: %w"
)

// DirectoryIgnoreFileNames lists ignore files consulted in every directory.
// Later files take precedence over earlier ones.
var DirectoryIgnoreFileNames = []string{utils.GitIgnoreFileName, utils.IgnoreFileName}

// LoadIgnoreFileRules parses one ignore file. A missing file yields no rules.
//
// #nosec G304
func LoadIgnoreFileRules(ignoreFilePath string) ([]pathrules.Rule, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if errors.Is(openFileError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, openFileError
	}
	defer fileHandle.Close()
	return pathrules.ParseRules(fileHandle)
}

// LoadDirectoryIgnoreMatcher combines the ignore files of one directory into a
// matcher evaluated against paths relative to that directory. It returns nil
// when the directory carries no rules.
func LoadDirectoryIgnoreMatcher(absoluteDirectoryPath string, includeRootExclude bool) (*pathrules.Matcher, error) {
	var combinedRules []pathrules.Rule

	if includeRootExclude {
		excludeRules, loadError := LoadIgnoreFileRules(filepath.Join(absoluteDirectoryPath, filepath.FromSlash(utils.GitInfoExcludePath)))
		if loadError != nil {
			return nil, fmt.Errorf(loadIgnoreFileErrorFormat, utils.GitInfoExcludePath, absoluteDirectoryPath, loadError)
		}
		combinedRules = pathrules.MergeRules(combinedRules, excludeRules)
	}

	for _, ignoreFileName := range DirectoryIgnoreFileNames {
		fileRules, loadError := LoadIgnoreFileRules(filepath.Join(absoluteDirectoryPath, ignoreFileName))
		if loadError != nil {
			return nil, fmt.Errorf(loadIgnoreFileErrorFormat, ignoreFileName, absoluteDirectoryPath, loadError)
		}
		combinedRules = pathrules.MergeRules(combinedRules, fileRules)
	}

	if len(combinedRules) == 0 {
		return nil, nil
	}
	matcher, compileError := pathrules.NewMatcher(combinedRules, pathrules.MatcherOptions{DefaultAction: pathrules.ActionInclude})
	if compileError != nil {
		return nil, fmt.Errorf(compileIgnoreRulesErrorFormat, absoluteDirectoryPath, compileError)
	}
	return matcher, nil
}
