// Package pattern compiles glob expressions and groups them into criterion sets.
package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

// Polarity tells whether a pattern whitelists or blacklists what it matches.
type Polarity int

const (
	PolarityInclude Polarity = iota
	PolarityExclude
)

// String returns a readable polarity label.
func (polarity Polarity) String() string {
	if polarity == PolarityInclude {
		return "include"
	}
	return "exclude"
}

const (
	pathSeparator        = "/"
	anyDepthPrefix       = "**/"
	descendantSuffix     = "/**"
	extensionWildcardDot = "*."
	extensionDot         = "."

	invalidPatternErrorFormat   = "%w: %q (%s %s)"
	emptyPatternErrorFormat     = "%w: empty %s %s pattern"
	unsupportedCriterionMessage = "unsupported criterion"
)

// ErrInvalidPattern reports malformed glob syntax.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// Pattern is a compiled glob bound to a criterion and a polarity.
type Pattern struct {
	raw        string
	expression string
	criterion  types.Criterion
	polarity   Polarity
	// directoryOnly marks generic patterns written with a trailing slash.
	directoryOnly bool
}

// Compile validates raw and prepares it for matching against the given criterion.
func Compile(raw string, criterion types.Criterion, polarity Polarity) (Pattern, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Pattern{}, fmt.Errorf(emptyPatternErrorFormat, ErrInvalidPattern, criterion, polarity)
	}

	compiled := Pattern{raw: raw, criterion: criterion, polarity: polarity}
	switch criterion {
	case types.CriterionExtension:
		compiled.expression = normalizeExtensionPattern(trimmed)
	case types.CriterionFilename:
		compiled.expression = trimmed
	case types.CriterionFolder:
		compiled.expression = strings.Trim(utils.NormalizeSlashPath(trimmed), pathSeparator)
	case types.CriterionGenericPath:
		compiled.expression, compiled.directoryOnly = normalizeGenericPattern(trimmed)
	default:
		return Pattern{}, fmt.Errorf(invalidPatternErrorFormat, ErrInvalidPattern, raw, unsupportedCriterionMessage, polarity)
	}

	if compiled.expression == "" || !doublestar.ValidatePattern(compiled.expression) {
		return Pattern{}, fmt.Errorf(invalidPatternErrorFormat, ErrInvalidPattern, raw, criterion, polarity)
	}
	return compiled, nil
}

// MustCompile is like Compile but panics on error. It is intended for tests and constants.
func MustCompile(raw string, criterion types.Criterion, polarity Polarity) Pattern {
	compiled, err := Compile(raw, criterion, polarity)
	if err != nil {
		panic(err)
	}
	return compiled
}

// Raw returns the pattern as supplied by the caller.
func (compiled Pattern) Raw() string { return compiled.raw }

// Criterion returns the attribute this pattern is matched against.
func (compiled Pattern) Criterion() types.Criterion { return compiled.criterion }

// Polarity returns whether the pattern includes or excludes.
func (compiled Pattern) Polarity() Polarity { return compiled.polarity }

// Matches reports whether the candidate satisfies the pattern under its criterion.
func (compiled Pattern) Matches(candidate types.FileCandidate) bool {
	relativePath := utils.NormalizeSlashPath(candidate.RelativePath)
	switch compiled.criterion {
	case types.CriterionExtension:
		return compiled.match(candidate.Extension)
	case types.CriterionFilename:
		return compiled.match(candidate.Name())
	case types.CriterionFolder:
		return compiled.matchesAncestor(relativePath, candidate.IsDir)
	case types.CriterionGenericPath:
		return compiled.matchesPath(relativePath, candidate.IsDir)
	default:
		return false
	}
}

func (compiled Pattern) match(value string) bool {
	return doublestar.MatchUnvalidated(compiled.expression, value)
}

// matchesAncestor tests every containing directory, both by segment name and by
// root-relative path. A directory candidate counts as its own ancestor.
func (compiled Pattern) matchesAncestor(relativePath string, isDir bool) bool {
	segments := strings.Split(relativePath, pathSeparator)
	directoryCount := len(segments) - 1
	if isDir {
		directoryCount = len(segments)
	}
	for index := 0; index < directoryCount; index++ {
		if compiled.match(segments[index]) {
			return true
		}
		if index > 0 && compiled.match(strings.Join(segments[:index+1], pathSeparator)) {
			return true
		}
	}
	return false
}

// matchesPath tests the full relative path. Directory patterns also cover every descendant.
func (compiled Pattern) matchesPath(relativePath string, isDir bool) bool {
	if compiled.directoryOnly {
		if isDir && compiled.match(relativePath) {
			return true
		}
		return doublestar.MatchUnvalidated(compiled.expression+descendantSuffix, relativePath)
	}
	return compiled.match(relativePath)
}

// normalizeExtensionPattern accepts "*.rs", ".rs" and "rs" as the same extension pattern.
func normalizeExtensionPattern(raw string) string {
	if strings.HasPrefix(raw, extensionWildcardDot) {
		return strings.TrimPrefix(raw, extensionWildcardDot)
	}
	return strings.TrimPrefix(raw, extensionDot)
}

// normalizeGenericPattern anchors patterns without a separator at any depth and
// reports whether the pattern was written as a directory.
func normalizeGenericPattern(raw string) (string, bool) {
	normalized := utils.NormalizeSlashPath(raw)
	directoryOnly := strings.HasSuffix(normalized, pathSeparator)
	normalized = strings.TrimSuffix(normalized, pathSeparator)
	if normalized == "" {
		return "", directoryOnly
	}
	if !strings.Contains(normalized, pathSeparator) {
		normalized = anyDepthPrefix + normalized
	}
	return normalized, directoryOnly
}
