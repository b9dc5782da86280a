package pattern

import (
	"errors"
	"fmt"

	"github.com/temirov/codeprompt/internal/types"
)

// Mode selects the decision algorithm a CriterionSet is evaluated with.
type Mode int

const (
	// ModeCriterion evaluates extension, filename and folder buckets independently.
	ModeCriterion Mode = iota
	// ModeGeneric evaluates one include and one exclude bucket of full-path patterns.
	ModeGeneric
)

const (
	criterionCount = 3
	polarityCount  = 2

	mixedModesErrorFormat = "%w: %s pattern %q cannot be combined with %s patterns"
)

// ErrMixedModes reports generic and criterion-tagged patterns supplied together.
var ErrMixedModes = errors.New("generic path patterns and criterion patterns are mutually exclusive")

// Specification lists raw patterns per bucket before compilation.
type Specification struct {
	IncludeExtensions []string
	ExcludeExtensions []string
	IncludeFilenames  []string
	ExcludeFilenames  []string
	IncludeFolders    []string
	ExcludeFolders    []string
	IncludePatterns   []string
	ExcludePatterns   []string
}

// CriterionSet holds compiled patterns in fixed buckets. It is read-only after construction.
type CriterionSet struct {
	mode            Mode
	criterionBucket [criterionCount][polarityCount][]Pattern
	genericBucket   [polarityCount][]Pattern
}

// NewCriterionSet compiles every raw pattern in the specification. The first
// invalid pattern aborts construction.
func NewCriterionSet(specification Specification) (*CriterionSet, error) {
	set := &CriterionSet{mode: ModeCriterion}

	criterionInputs := []struct {
		criterion types.Criterion
		polarity  Polarity
		raw       []string
	}{
		{types.CriterionExtension, PolarityInclude, specification.IncludeExtensions},
		{types.CriterionExtension, PolarityExclude, specification.ExcludeExtensions},
		{types.CriterionFilename, PolarityInclude, specification.IncludeFilenames},
		{types.CriterionFilename, PolarityExclude, specification.ExcludeFilenames},
		{types.CriterionFolder, PolarityInclude, specification.IncludeFolders},
		{types.CriterionFolder, PolarityExclude, specification.ExcludeFolders},
	}
	for _, input := range criterionInputs {
		for _, raw := range input.raw {
			compiled, err := Compile(raw, input.criterion, input.polarity)
			if err != nil {
				return nil, err
			}
			set.criterionBucket[input.criterion][input.polarity] = append(set.criterionBucket[input.criterion][input.polarity], compiled)
		}
	}

	genericInputs := []struct {
		polarity Polarity
		raw      []string
	}{
		{PolarityInclude, specification.IncludePatterns},
		{PolarityExclude, specification.ExcludePatterns},
	}
	for _, input := range genericInputs {
		for _, raw := range input.raw {
			compiled, err := Compile(raw, types.CriterionGenericPath, input.polarity)
			if err != nil {
				return nil, err
			}
			set.genericBucket[input.polarity] = append(set.genericBucket[input.polarity], compiled)
		}
	}

	hasGeneric := len(set.genericBucket[PolarityInclude]) > 0 || len(set.genericBucket[PolarityExclude]) > 0
	if hasGeneric && set.hasCriterionPatterns() {
		firstGeneric := set.firstGeneric()
		return nil, fmt.Errorf(mixedModesErrorFormat, ErrMixedModes, types.CriterionGenericPath, firstGeneric.Raw(), "extension, filename or folder")
	}
	if hasGeneric {
		set.mode = ModeGeneric
	}
	return set, nil
}

// Mode reports which decision algorithm applies to the set.
func (set *CriterionSet) Mode() Mode {
	return set.mode
}

// Patterns returns the bucket for a criterion and polarity. The generic
// criterion addresses the two-bucket mode.
func (set *CriterionSet) Patterns(criterion types.Criterion, polarity Polarity) []Pattern {
	if criterion == types.CriterionGenericPath {
		return set.genericBucket[polarity]
	}
	if criterion < 0 || int(criterion) >= criterionCount {
		return nil
	}
	return set.criterionBucket[criterion][polarity]
}

// HasPolarity reports whether any bucket of the given polarity holds patterns.
func (set *CriterionSet) HasPolarity(polarity Polarity) bool {
	if len(set.genericBucket[polarity]) > 0 {
		return true
	}
	for criterionIndex := 0; criterionIndex < criterionCount; criterionIndex++ {
		if len(set.criterionBucket[criterionIndex][polarity]) > 0 {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set contains no patterns at all.
func (set *CriterionSet) IsEmpty() bool {
	return !set.HasPolarity(PolarityInclude) && !set.HasPolarity(PolarityExclude)
}

// MatchAny reports whether the candidate matches any pattern in the bucket.
func (set *CriterionSet) MatchAny(criterion types.Criterion, polarity Polarity, candidate types.FileCandidate) bool {
	for _, compiled := range set.Patterns(criterion, polarity) {
		if compiled.Matches(candidate) {
			return true
		}
	}
	return false
}

func (set *CriterionSet) hasCriterionPatterns() bool {
	for criterionIndex := 0; criterionIndex < criterionCount; criterionIndex++ {
		for polarityIndex := 0; polarityIndex < polarityCount; polarityIndex++ {
			if len(set.criterionBucket[criterionIndex][polarityIndex]) > 0 {
				return true
			}
		}
	}
	return false
}

func (set *CriterionSet) firstGeneric() Pattern {
	if len(set.genericBucket[PolarityInclude]) > 0 {
		return set.genericBucket[PolarityInclude][0]
	}
	return set.genericBucket[PolarityExclude][0]
}
