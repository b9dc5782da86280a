// Package selection turns compiled criterion sets into per-path inclusion decisions.
package selection

import (
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/pattern"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	pathSeparator      = "/"
	decisionLogMessage = "selection decision"
)

// criterionOrder fixes which criterion is reported when several whitelists match.
var criterionOrder = [...]types.Criterion{
	types.CriterionExtension,
	types.CriterionFilename,
	types.CriterionFolder,
}

// Options tunes decisions that do not depend on pattern matching.
type Options struct {
	// IncludePriority resolves generic-mode overlaps in favor of the include set.
	IncludePriority bool
	// ExcludeFromTree hides paths that are not content-selected from the rendered tree.
	ExcludeFromTree bool
	// ExplicitIncludes lists relative paths that are always selected, with their descendants.
	ExplicitIncludes []string
	// ExplicitExcludes lists relative paths that are never selected, with their descendants.
	// Explicit excludes take precedence over explicit includes.
	ExplicitExcludes []string
}

// Selector decides inclusion for file candidates. It never fails and is safe for concurrent use.
type Selector struct {
	set              *pattern.CriterionSet
	options          Options
	explicitIncludes map[string]struct{}
	explicitExcludes map[string]struct{}
	logger           *zap.Logger
}

// NewSelector binds a criterion set and options. A nil set behaves as an empty one.
func NewSelector(set *pattern.CriterionSet, options Options, logger *zap.Logger) *Selector {
	if set == nil {
		set, _ = pattern.NewCriterionSet(pattern.Specification{})
	}
	return &Selector{
		set:              set,
		options:          options,
		explicitIncludes: pathSet(options.ExplicitIncludes),
		explicitExcludes: pathSet(options.ExplicitExcludes),
		logger:           utils.LoggerOrNop(logger),
	}
}

// Decide computes the decision for one candidate.
func (selector *Selector) Decide(candidate types.FileCandidate) types.SelectionDecision {
	if candidate.IsDir {
		return selector.decideDirectory()
	}

	decision := selector.decideContent(candidate)
	decision.IncludeInTree = decision.IncludeContent || !selector.options.ExcludeFromTree
	if !decision.IncludeInTree {
		decision.Reason = types.ReasonExplicitTreeExclude
	}

	selector.logger.Debug(decisionLogMessage,
		zap.String(utils.LogFieldPath, candidate.RelativePath),
		zap.Bool("content", decision.IncludeContent),
		zap.Bool("tree", decision.IncludeInTree),
		zap.Stringer(utils.LogFieldReason, decision.Reason),
	)
	return decision
}

// decideDirectory reports tree visibility for a directory; directories never carry content.
// Tree-excluded directories still appear when they contain a visible file.
func (selector *Selector) decideDirectory() types.SelectionDecision {
	if selector.options.ExcludeFromTree {
		return types.SelectionDecision{IncludeInTree: false, Reason: types.ReasonExplicitTreeExclude}
	}
	return types.SelectionDecision{IncludeInTree: true, Reason: types.ReasonDefaultInclude}
}

func (selector *Selector) decideContent(candidate types.FileCandidate) types.SelectionDecision {
	relativePath := utils.NormalizeSlashPath(candidate.RelativePath)
	if pathOrAncestorInSet(relativePath, selector.explicitExcludes) {
		return types.SelectionDecision{IncludeContent: false, Reason: types.ReasonBlacklistMatch, Criterion: types.CriterionGenericPath}
	}
	if pathOrAncestorInSet(relativePath, selector.explicitIncludes) {
		return types.SelectionDecision{IncludeContent: true, Reason: types.ReasonWhitelistMatch, Criterion: types.CriterionGenericPath}
	}
	if selector.set.Mode() == pattern.ModeGeneric {
		return selector.decideGeneric(candidate)
	}
	return selector.decideByCriterion(candidate)
}

// decideByCriterion applies the two-level rule: any whitelist match includes,
// otherwise any blacklist match excludes, otherwise the path is included.
func (selector *Selector) decideByCriterion(candidate types.FileCandidate) types.SelectionDecision {
	for _, criterion := range criterionOrder {
		if selector.set.MatchAny(criterion, pattern.PolarityInclude, candidate) {
			return types.SelectionDecision{IncludeContent: true, Reason: types.ReasonWhitelistMatch, Criterion: criterion}
		}
	}
	for _, criterion := range criterionOrder {
		if selector.set.MatchAny(criterion, pattern.PolarityExclude, candidate) {
			return types.SelectionDecision{IncludeContent: false, Reason: types.ReasonBlacklistMatch, Criterion: criterion}
		}
	}
	return types.SelectionDecision{IncludeContent: true, Reason: types.ReasonDefaultInclude}
}

// decideGeneric applies the include/exclude pair with include_priority as the overlap tie-break.
func (selector *Selector) decideGeneric(candidate types.FileCandidate) types.SelectionDecision {
	hasIncludeSet := len(selector.set.Patterns(types.CriterionGenericPath, pattern.PolarityInclude)) > 0
	included := selector.set.MatchAny(types.CriterionGenericPath, pattern.PolarityInclude, candidate)
	excluded := selector.set.MatchAny(types.CriterionGenericPath, pattern.PolarityExclude, candidate)

	whitelisted := types.SelectionDecision{IncludeContent: true, Reason: types.ReasonWhitelistMatch, Criterion: types.CriterionGenericPath}
	blacklisted := types.SelectionDecision{IncludeContent: false, Reason: types.ReasonBlacklistMatch, Criterion: types.CriterionGenericPath}

	switch {
	case included && excluded:
		if selector.options.IncludePriority {
			return whitelisted
		}
		return blacklisted
	case included:
		return whitelisted
	case excluded:
		return blacklisted
	case hasIncludeSet:
		return types.SelectionDecision{IncludeContent: false, Reason: types.ReasonNotWhitelisted, Criterion: types.CriterionGenericPath}
	default:
		return types.SelectionDecision{IncludeContent: true, Reason: types.ReasonDefaultInclude}
	}
}

func pathSet(paths []string) map[string]struct{} {
	result := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		normalized := strings.Trim(utils.NormalizeSlashPath(strings.TrimSpace(path)), pathSeparator)
		if normalized == "" {
			continue
		}
		result[normalized] = struct{}{}
	}
	return result
}

func pathOrAncestorInSet(relativePath string, set map[string]struct{}) bool {
	if len(set) == 0 {
		return false
	}
	current := relativePath
	for current != "" {
		if _, found := set[current]; found {
			return true
		}
		separatorIndex := strings.LastIndex(current, pathSeparator)
		if separatorIndex < 0 {
			break
		}
		current = current[:separatorIndex]
	}
	return false
}
