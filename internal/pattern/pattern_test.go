package pattern_test

import (
	"errors"
	"testing"

	"github.com/temirov/codeprompt/internal/pattern"
	"github.com/temirov/codeprompt/internal/types"
)

func fileCandidate(relativePath string, extension string) types.FileCandidate {
	return types.FileCandidate{RelativePath: relativePath, Extension: extension}
}

func TestCompileRejectsMalformedPatterns(testingHandle *testing.T) {
	malformed := []struct {
		raw       string
		criterion types.Criterion
	}{
		{raw: "[abc", criterion: types.CriterionGenericPath},
		{raw: "src/{a,b", criterion: types.CriterionGenericPath},
		{raw: "   ", criterion: types.CriterionFilename},
		{raw: "*.", criterion: types.CriterionExtension},
	}
	for _, testCase := range malformed {
		_, compileError := pattern.Compile(testCase.raw, testCase.criterion, pattern.PolarityInclude)
		if !errors.Is(compileError, pattern.ErrInvalidPattern) {
			testingHandle.Fatalf("Compile(%q) error = %v, expected ErrInvalidPattern", testCase.raw, compileError)
		}
	}
}

func TestPatternMatchesByCriterion(testingHandle *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		criterion types.Criterion
		candidate types.FileCandidate
		expected  bool
	}{
		{name: "extension_with_wildcard_dot", raw: "*.rs", criterion: types.CriterionExtension, candidate: fileCandidate("src/a.rs", "rs"), expected: true},
		{name: "extension_with_dot", raw: ".rs", criterion: types.CriterionExtension, candidate: fileCandidate("a.rs", "rs"), expected: true},
		{name: "extension_bare", raw: "rs", criterion: types.CriterionExtension, candidate: fileCandidate("a.md", "md"), expected: false},
		{name: "extension_alternation", raw: "{go,rs}", criterion: types.CriterionExtension, candidate: fileCandidate("main.go", "go"), expected: true},
		{name: "filename_glob", raw: "*_test.go", criterion: types.CriterionFilename, candidate: fileCandidate("pkg/a_test.go", "go"), expected: true},
		{name: "filename_question_mark", raw: "?.md", criterion: types.CriterionFilename, candidate: fileCandidate("docs/ab.md", "md"), expected: false},
		{name: "filename_negated_class", raw: "[!a]*.txt", criterion: types.CriterionFilename, candidate: fileCandidate("b.txt", "txt"), expected: true},
		{name: "folder_segment", raw: "vendor", criterion: types.CriterionFolder, candidate: fileCandidate("third/vendor/lib.go", "go"), expected: true},
		{name: "folder_path", raw: "src/internal", criterion: types.CriterionFolder, candidate: fileCandidate("src/internal/x/a.go", "go"), expected: true},
		{name: "folder_not_file_name", raw: "vendor", criterion: types.CriterionFolder, candidate: fileCandidate("vendor", ""), expected: false},
		{name: "generic_any_depth", raw: "*.rs", criterion: types.CriterionGenericPath, candidate: fileCandidate("deep/nested/a.rs", "rs"), expected: true},
		{name: "generic_root_level", raw: "*.rs", criterion: types.CriterionGenericPath, candidate: fileCandidate("a.rs", "rs"), expected: true},
		{name: "generic_anchored", raw: "src/*.go", criterion: types.CriterionGenericPath, candidate: fileCandidate("other/src/a.go", "go"), expected: false},
		{name: "generic_recursive", raw: "src/**/*.go", criterion: types.CriterionGenericPath, candidate: fileCandidate("src/a/b/c.go", "go"), expected: true},
		{name: "generic_leading_dot_slash", raw: "./src/*.go", criterion: types.CriterionGenericPath, candidate: fileCandidate("src/a.go", "go"), expected: true},
		{name: "generic_directory_descendants", raw: "target/", criterion: types.CriterionGenericPath, candidate: fileCandidate("target/debug/app.d", "d"), expected: true},
		{name: "generic_star_stays_in_segment", raw: "src/*", criterion: types.CriterionGenericPath, candidate: fileCandidate("src/a/b.go", "go"), expected: false},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			compiled := pattern.MustCompile(testCase.raw, testCase.criterion, pattern.PolarityInclude)
			if matched := compiled.Matches(testCase.candidate); matched != testCase.expected {
				testingHandle.Fatalf("%q against %q: got %v, expected %v", testCase.raw, testCase.candidate.RelativePath, matched, testCase.expected)
			}
		})
	}
}

func TestFolderPatternMatchesDirectoryCandidate(testingHandle *testing.T) {
	compiled := pattern.MustCompile("vendor", types.CriterionFolder, pattern.PolarityExclude)
	directory := types.FileCandidate{RelativePath: "vendor", IsDir: true}
	if !compiled.Matches(directory) {
		testingHandle.Fatalf("expected directory candidate to match its own folder pattern")
	}
}

func TestNewCriterionSetBuckets(testingHandle *testing.T) {
	set, buildError := pattern.NewCriterionSet(pattern.Specification{
		IncludeExtensions: []string{"go"},
		ExcludeFilenames:  []string{"*_test.go"},
		ExcludeFolders:    []string{"vendor"},
	})
	if buildError != nil {
		testingHandle.Fatalf("NewCriterionSet error: %v", buildError)
	}
	if set.Mode() != pattern.ModeCriterion {
		testingHandle.Fatalf("expected criterion mode")
	}
	if len(set.Patterns(types.CriterionExtension, pattern.PolarityInclude)) != 1 {
		testingHandle.Fatalf("expected one include extension pattern")
	}
	if len(set.Patterns(types.CriterionFilename, pattern.PolarityInclude)) != 0 {
		testingHandle.Fatalf("expected empty include filename bucket")
	}
	if !set.MatchAny(types.CriterionFolder, pattern.PolarityExclude, fileCandidate("vendor/x.go", "go")) {
		testingHandle.Fatalf("expected folder exclude match")
	}
	if set.IsEmpty() {
		testingHandle.Fatalf("set with patterns reported empty")
	}
}

func TestNewCriterionSetGenericMode(testingHandle *testing.T) {
	set, buildError := pattern.NewCriterionSet(pattern.Specification{IncludePatterns: []string{"*.rs"}})
	if buildError != nil {
		testingHandle.Fatalf("NewCriterionSet error: %v", buildError)
	}
	if set.Mode() != pattern.ModeGeneric {
		testingHandle.Fatalf("expected generic mode")
	}
	empty, emptyError := pattern.NewCriterionSet(pattern.Specification{})
	if emptyError != nil || !empty.IsEmpty() {
		testingHandle.Fatalf("expected empty set, got err=%v", emptyError)
	}
}

func TestNewCriterionSetRejectsMixedModes(testingHandle *testing.T) {
	_, buildError := pattern.NewCriterionSet(pattern.Specification{
		IncludePatterns:   []string{"*.rs"},
		ExcludeExtensions: []string{"md"},
	})
	if !errors.Is(buildError, pattern.ErrMixedModes) {
		testingHandle.Fatalf("expected ErrMixedModes, got %v", buildError)
	}
}

func TestNewCriterionSetReportsInvalidPattern(testingHandle *testing.T) {
	_, buildError := pattern.NewCriterionSet(pattern.Specification{ExcludePatterns: []string{"[unterminated"}})
	if !errors.Is(buildError, pattern.ErrInvalidPattern) {
		testingHandle.Fatalf("expected ErrInvalidPattern, got %v", buildError)
	}
}
