package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/temirov/codeprompt/internal/config"
	"github.com/temirov/codeprompt/internal/content"
	"github.com/temirov/codeprompt/internal/output"
	"github.com/temirov/codeprompt/internal/pattern"
	"github.com/temirov/codeprompt/internal/selection"
	"github.com/temirov/codeprompt/internal/template"
	"github.com/temirov/codeprompt/internal/tokenizer"
	"github.com/temirov/codeprompt/internal/traverse"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	configFlagName                 = "config"
	verboseFlagName                = "verbose"
	includeFlagName                = "include"
	excludeFlagName                = "exclude"
	includePriorityFlagName        = "include-priority"
	includeExtensionsFlagName      = "include-extensions"
	excludeExtensionsFlagName      = "exclude-extensions"
	includeFilesFlagName           = "include-files"
	excludeFilesFlagName           = "exclude-files"
	includeFoldersFlagName         = "include-folders"
	excludeFoldersFlagName         = "exclude-folders"
	includePathFlagName            = "include-path"
	excludePathFlagName            = "exclude-path"
	hiddenFlagName                 = "hidden"
	noIgnoreFlagName               = "no-ignore"
	followSymlinksFlagName         = "follow-symlinks"
	excludeFromTreeFlagName        = "exclude-from-tree"
	lineNumbersFlagName            = "line-numbers"
	noCodeblockFlagName            = "no-codeblock"
	absolutePathsFlagName          = "absolute-paths"
	sortFlagName                   = "sort"
	concurrencyFlagName            = "concurrency"
	encodingFlagName               = "encoding"
	tokenFormatFlagName            = "token-format"
	tokenMapFlagName               = "token-map"
	tokenMapLinesFlagName          = "token-map-lines"
	tokenMapMinimumPercentFlagName = "token-map-min-percent"
	templateFlagName               = "template"
	outputFormatFlagName           = "output-format"
	outputFileFlagName             = "output-file"
	clipboardFlagName              = "clipboard"
	diffFlagName                   = "diff"
	gitDiffBranchFlagName          = "git-diff-branch"
	gitLogBranchFlagName           = "git-log-branch"
	variableFlagName               = "var"

	variableSeparator       = "="
	patternListSeparator    = ','
	variablePromptFormat    = "Enter value for %s: "
	invalidVariableFormat   = "%w: %q (expected key=value)"
	missingVariableFormat   = "%w: %s"
	readVariableErrorFormat = "read value for %s: %w"
)

var (
	genericPatternFlagNames   = []string{includeFlagName, excludeFlagName}
	criterionPatternFlagNames = []string{
		includeExtensionsFlagName, excludeExtensionsFlagName,
		includeFilesFlagName, excludeFilesFlagName,
		includeFoldersFlagName, excludeFoldersFlagName,
	}
)

var (
	// ErrInvalidVariable reports a --var argument without a key.
	ErrInvalidVariable = errors.New("invalid template variable")
	// ErrMissingVariable reports a template variable no source could supply.
	ErrMissingVariable = errors.New("template variable has no value")
)

// rootOptions stores raw flag values.
type rootOptions struct {
	configPath string
	verbose    bool

	include           []string
	exclude           []string
	includePriority   bool
	includeExtensions []string
	excludeExtensions []string
	includeFiles      []string
	excludeFiles      []string
	includeFolders    []string
	excludeFolders    []string
	includePaths      []string
	excludePaths      []string

	hidden          bool
	noIgnore        bool
	followSymlinks  bool
	excludeFromTree bool

	lineNumbers   bool
	noCodeblock   bool
	absolutePaths bool
	sortMethod    string
	concurrency   int

	encoding               string
	tokenFormat            string
	tokenMap               bool
	tokenMapLines          int
	tokenMapMinimumPercent float64

	templatePath string
	outputFormat string
	outputFile   string
	clipboard    bool

	diff         bool
	diffBranches []string
	logBranches  []string
	variables    []string
}

func (options *rootOptions) register(command *cobra.Command) {
	flags := command.Flags()
	flags.StringVar(&options.configPath, configFlagName, "", "configuration file replacing ./"+utils.ConfigFileName)
	registerBooleanFlag(flags, &options.verbose, verboseFlagName, "v", false, "log selection decisions and skipped paths")

	flags.StringArrayVarP(&options.include, includeFlagName, "i", nil, "glob of paths to include (comma separated or repeated)")
	flags.StringArrayVarP(&options.exclude, excludeFlagName, "e", nil, "glob of paths to exclude (comma separated or repeated)")
	registerBooleanFlag(flags, &options.includePriority, includePriorityFlagName, "", false, "include wins when a path matches both include and exclude")
	flags.StringArrayVar(&options.includeExtensions, includeExtensionsFlagName, nil, "extensions to include, e.g. rs,go; a match overrides any exclusion but does not drop other files")
	flags.StringArrayVar(&options.excludeExtensions, excludeExtensionsFlagName, nil, "extensions to exclude")
	flags.StringArrayVar(&options.includeFiles, includeFilesFlagName, nil, "file names to include; a match overrides any exclusion but does not drop other files")
	flags.StringArrayVar(&options.excludeFiles, excludeFilesFlagName, nil, "file names to exclude")
	flags.StringArrayVar(&options.includeFolders, includeFoldersFlagName, nil, "folder names to include; a match overrides any exclusion but does not drop other files")
	flags.StringArrayVar(&options.excludeFolders, excludeFoldersFlagName, nil, "folder names to exclude")
	flags.StringArrayVar(&options.includePaths, includePathFlagName, nil, "relative path always included, overriding patterns")
	flags.StringArrayVar(&options.excludePaths, excludePathFlagName, nil, "relative path always excluded, overriding patterns")

	registerBooleanFlag(flags, &options.hidden, hiddenFlagName, "", false, "include hidden files and directories")
	registerBooleanFlag(flags, &options.noIgnore, noIgnoreFlagName, "", false, "ignore .gitignore and .ignore rules")
	registerBooleanFlag(flags, &options.followSymlinks, followSymlinksFlagName, "L", false, "follow symbolic links")
	registerBooleanFlag(flags, &options.excludeFromTree, excludeFromTreeFlagName, "", false, "omit unselected files from the source tree")

	registerBooleanFlag(flags, &options.lineNumbers, lineNumbersFlagName, "l", false, "prefix content lines with line numbers")
	registerBooleanFlag(flags, &options.noCodeblock, noCodeblockFlagName, "", false, "do not wrap content in fenced code blocks")
	registerBooleanFlag(flags, &options.absolutePaths, absolutePathsFlagName, "", false, "show absolute file paths")
	flags.StringVar(&options.sortMethod, sortFlagName, types.SortNameAscending, "file order: name_asc, name_desc, date_asc, date_desc or natural")
	flags.IntVar(&options.concurrency, concurrencyFlagName, 0, "parallel file reads (0 uses all CPUs)")

	flags.StringVarP(&options.encoding, encodingFlagName, "c", tokenizer.DefaultEncodingName, "tokenizer encoding: o200k, cl100k, p50k, p50k_edit, r50k or gpt2")
	flags.StringVar(&options.tokenFormat, tokenFormatFlagName, types.TokenFormatFormatted, "token count display: raw or format")
	registerBooleanFlag(flags, &options.tokenMap, tokenMapFlagName, "", false, "print the token distribution per file and directory")
	flags.IntVar(&options.tokenMapLines, tokenMapLinesFlagName, tokenizer.DefaultTokenMapLines, "maximum token map lines")
	flags.Float64Var(&options.tokenMapMinimumPercent, tokenMapMinimumPercentFlagName, tokenizer.DefaultTokenMapMinimumPercent, "hide token map entries below this percentage")

	flags.StringVarP(&options.templatePath, templateFlagName, "t", "", "template file or built-in template name (markdown, xml, fix-bugs, write-git-commit, ...)")
	flags.StringVarP(&options.outputFormat, outputFormatFlagName, "F", types.FormatMarkdown, "output format: markdown, xml or json")
	flags.StringVarP(&options.outputFile, outputFileFlagName, "O", "", "write the prompt to a file")
	registerBooleanFlag(flags, &options.clipboard, clipboardFlagName, "", false, "copy the prompt to the clipboard")

	registerBooleanFlag(flags, &options.diff, diffFlagName, "d", false, "include staged git changes")
	flags.StringSliceVar(&options.diffBranches, gitDiffBranchFlagName, nil, "include the diff between two branches, e.g. main,feature")
	flags.StringSliceVar(&options.logBranches, gitLogBranchFlagName, nil, "include the log between two branches, e.g. main,feature")
	flags.StringArrayVar(&options.variables, variableFlagName, nil, "template variable as key=value (repeatable)")
}

// resolve merges configuration files under explicitly set flags and validates enumerations.
func (options *rootOptions) resolve(flags *pflag.FlagSet, configuration config.ApplicationConfiguration) (runSettings, error) {
	patterns := patternsForFlagMode(flags, configuration.Patterns)
	traversal := configuration.Traversal
	contentConfiguration := configuration.Content
	tokens := configuration.Tokens
	outputConfiguration := configuration.Output

	settings := runSettings{
		patterns: pattern.Specification{
			IncludePatterns:   resolveList(flags, includeFlagName, options.include, patterns.Include),
			ExcludePatterns:   resolveList(flags, excludeFlagName, options.exclude, patterns.Exclude),
			IncludeExtensions: resolveList(flags, includeExtensionsFlagName, options.includeExtensions, patterns.IncludeExtensions),
			ExcludeExtensions: resolveList(flags, excludeExtensionsFlagName, options.excludeExtensions, patterns.ExcludeExtensions),
			IncludeFilenames:  resolveList(flags, includeFilesFlagName, options.includeFiles, patterns.IncludeFiles),
			ExcludeFilenames:  resolveList(flags, excludeFilesFlagName, options.excludeFiles, patterns.ExcludeFiles),
			IncludeFolders:    resolveList(flags, includeFoldersFlagName, options.includeFolders, patterns.IncludeFolders),
			ExcludeFolders:    resolveList(flags, excludeFoldersFlagName, options.excludeFolders, patterns.ExcludeFolders),
		},
		selection: selection.Options{
			IncludePriority:  resolveFlag(flags, includePriorityFlagName, options.includePriority, patterns.IncludePriority),
			ExcludeFromTree:  resolveFlag(flags, excludeFromTreeFlagName, options.excludeFromTree, traversal.ExcludeFromTree),
			ExplicitIncludes: options.includePaths,
			ExplicitExcludes: options.excludePaths,
		},
		traversal: traverse.Options{
			Hidden:         resolveFlag(flags, hiddenFlagName, options.hidden, traversal.Hidden),
			NoIgnore:       resolveFlag(flags, noIgnoreFlagName, options.noIgnore, traversal.NoIgnore),
			FollowSymlinks: resolveFlag(flags, followSymlinksFlagName, options.followSymlinks, traversal.FollowSymlinks),
		},
		lineNumbers:   resolveFlag(flags, lineNumbersFlagName, options.lineNumbers, contentConfiguration.LineNumbers),
		noCodeblock:   resolveFlag(flags, noCodeblockFlagName, options.noCodeblock, contentConfiguration.NoCodeblock),
		absolutePaths: resolveFlag(flags, absolutePathsFlagName, options.absolutePaths, contentConfiguration.AbsolutePaths),
		sortMethod:    resolveFlag(flags, sortFlagName, options.sortMethod, stringSetting(contentConfiguration.Sort)),
		concurrency:   resolveFlag(flags, concurrencyFlagName, options.concurrency, contentConfiguration.Concurrency),

		encoding:               resolveFlag(flags, encodingFlagName, options.encoding, stringSetting(tokens.Encoding)),
		tokenFormat:            resolveFlag(flags, tokenFormatFlagName, options.tokenFormat, stringSetting(tokens.Format)),
		tokenMap:               resolveFlag(flags, tokenMapFlagName, options.tokenMap, tokens.Map),
		tokenMapLines:          resolveFlag(flags, tokenMapLinesFlagName, options.tokenMapLines, tokens.MapLines),
		tokenMapMinimumPercent: resolveFlag(flags, tokenMapMinimumPercentFlagName, options.tokenMapMinimumPercent, tokens.MapMinimumPercent),

		templatePath: resolveFlag(flags, templateFlagName, options.templatePath, stringSetting(outputConfiguration.Template)),
		outputFormat: strings.ToLower(resolveFlag(flags, outputFormatFlagName, options.outputFormat, stringSetting(outputConfiguration.Format))),
		outputFile:   resolveFlag(flags, outputFileFlagName, options.outputFile, stringSetting(outputConfiguration.File)),
		clipboard:    resolveFlag(flags, clipboardFlagName, options.clipboard, outputConfiguration.Clipboard),

		diff:         options.diff,
		diffBranches: options.diffBranches,
		logBranches:  options.logBranches,
	}

	if err := output.ValidateFormat(settings.outputFormat); err != nil {
		return runSettings{}, err
	}
	if err := tokenizer.ValidateTokenFormat(settings.tokenFormat); err != nil {
		return runSettings{}, err
	}
	if _, err := tokenizer.ResolveEncoding(settings.encoding); err != nil {
		return runSettings{}, err
	}
	if err := content.ValidateSortMethod(settings.sortMethod); err != nil {
		return runSettings{}, err
	}

	variables, variablesError := parseVariables(configuration.Variables, options.variables)
	if variablesError != nil {
		return runSettings{}, variablesError
	}
	settings.variables = variables
	return settings, nil
}

// patternsForFlagMode drops configured patterns of the other mode when only
// generic or only criterion pattern flags were given on the command line.
func patternsForFlagMode(flags *pflag.FlagSet, patterns config.PatternConfiguration) config.PatternConfiguration {
	genericChanged := anyFlagChanged(flags, genericPatternFlagNames)
	criterionChanged := anyFlagChanged(flags, criterionPatternFlagNames)
	switch {
	case genericChanged && !criterionChanged:
		patterns.IncludeExtensions = nil
		patterns.ExcludeExtensions = nil
		patterns.IncludeFiles = nil
		patterns.ExcludeFiles = nil
		patterns.IncludeFolders = nil
		patterns.ExcludeFolders = nil
	case criterionChanged && !genericChanged:
		patterns.Include = nil
		patterns.Exclude = nil
	}
	return patterns
}

func anyFlagChanged(flags *pflag.FlagSet, names []string) bool {
	for _, name := range names {
		if flags.Changed(name) {
			return true
		}
	}
	return false
}

// resolveList splits comma separated flag values and falls back to configured patterns.
func resolveList(flags *pflag.FlagSet, name string, flagValues []string, configured []string) []string {
	return resolveFlag(flags, name, splitPatternList(flagValues), listSetting(configured))
}

// splitPatternList splits every value on commas that are not inside a {a,b} group.
func splitPatternList(values []string) []string {
	var patterns []string
	for _, value := range values {
		depth := 0
		start := 0
		for index, character := range value {
			switch character {
			case '{':
				depth++
			case '}':
				if depth > 0 {
					depth--
				}
			case patternListSeparator:
				if depth == 0 {
					patterns = append(patterns, value[start:index])
					start = index + 1
				}
			}
		}
		patterns = append(patterns, value[start:])
	}
	return utils.DeduplicatePatterns(patterns)
}

// parseVariables overlays key=value flag arguments onto configured variables.
func parseVariables(configured map[string]string, arguments []string) (map[string]string, error) {
	variables := make(map[string]string, len(configured)+len(arguments))
	for key, value := range configured {
		variables[key] = value
	}
	for _, argument := range arguments {
		key, value, found := strings.Cut(argument, variableSeparator)
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf(invalidVariableFormat, ErrInvalidVariable, argument)
		}
		variables[key] = value
	}
	return variables, nil
}

// promptVariableResolver asks for missing template variables one line at a time.
func promptVariableResolver(input io.Reader, prompts io.Writer) template.VariableResolver {
	reader := bufio.NewReader(input)
	return func(name string) (string, error) {
		fmt.Fprintf(prompts, variablePromptFormat, name)
		line, readError := reader.ReadString('\n')
		if readError != nil && !errors.Is(readError, io.EOF) {
			return "", fmt.Errorf(readVariableErrorFormat, name, readError)
		}
		if readError != nil && line == "" {
			return "", fmt.Errorf(missingVariableFormat, ErrMissingVariable, name)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
