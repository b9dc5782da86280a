// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/config"
	"github.com/temirov/codeprompt/internal/output"
	"github.com/temirov/codeprompt/internal/pattern"
	"github.com/temirov/codeprompt/internal/prompt"
	"github.com/temirov/codeprompt/internal/selection"
	"github.com/temirov/codeprompt/internal/services/clipboard"
	"github.com/temirov/codeprompt/internal/template"
	"github.com/temirov/codeprompt/internal/tokenizer"
	"github.com/temirov/codeprompt/internal/traverse"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	defaultPath          = "."
	rootUse              = "codeprompt [path]"
	rootShortDescription = "turn a source tree into a single LLM prompt"
	rootLongDescription  = `codeprompt walks a directory, selects files with include and exclude patterns,
and renders the source tree and file contents into one prompt.

Patterns are glob expressions matched against paths relative to the root
(--include, --exclude) or, in criterion mode, against extensions, file names
and folder names (--include-extensions, --exclude-folders and friends). The two
modes cannot be mixed. Settings are read from ~/.codeprompt/config.toml and
./.codeprompt.toml; flags override both.`
	rootUsageExample = `  # Render the current directory as markdown on stdout
  codeprompt

  # Rust sources without tests, with line numbers, copied to the clipboard
  codeprompt -i '*.rs' -e '*_test.rs' --line-numbers --clipboard ./crate

  # JSON document with staged changes and a token map
  codeprompt --output-format json --diff --token-map .`
	versionTemplate = "codeprompt version: {{.Version}}\n"

	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	readTemplateErrorFormat     = "read template %s: %w"
	tokenCounterLogMessage      = "token counting disabled"
)

// newTokenCounter loads tokenizer vocabularies; tests replace it to stay offline.
var newTokenCounter = tokenizer.NewCounter

// Execute runs the codeprompt application.
func Execute(ctx context.Context) error {
	rootCommand := createRootCommand()
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	options := &rootOptions{}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Example:       rootUsageExample,
		Version:       utils.GetApplicationVersion(),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			root := defaultPath
			if len(arguments) == 1 {
				root = arguments[0]
			}
			logger, loggerError := utils.NewApplicationLogger(options.verbose)
			if loggerError != nil {
				return fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerError)
			}
			defer func() { _ = logger.Sync() }()
			return runPrompt(command, options, root, logger)
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	options.register(rootCommand)
	rootCommand.AddCommand(createInitCommand())
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// runPrompt executes one ingestion run and delivers the rendered prompt.
func runPrompt(command *cobra.Command, options *rootOptions, root string, logger *zap.Logger) error {
	ctx := command.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	applicationConfiguration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if configurationError != nil {
		return configurationError
	}
	settings, settingsError := options.resolve(command.Flags(), applicationConfiguration)
	if settingsError != nil {
		return settingsError
	}

	renderer, rendererError := loadRenderer(settings.templatePath, settings.outputFormat)
	if rendererError != nil {
		return rendererError
	}

	counter, counterError := newTokenCounter(settings.encoding)
	if counterError != nil {
		logger.Warn(tokenCounterLogMessage, zap.String(utils.LogFieldEncoding, settings.encoding), zap.Error(counterError))
		counter = nil
	}

	sessionOptions := settings.sessionOptions(root, promptVariableResolver(command.InOrStdin(), command.ErrOrStderr()))
	if settings.tokenMap && counter != nil {
		sessionOptions.FileTokenCounter = counter
	}
	session, sessionError := prompt.NewSession(sessionOptions, logger)
	if sessionError != nil {
		return sessionError
	}

	assembled, buildError := session.Build(ctx)
	if assembled == nil {
		return buildError
	}
	renderContext := ctx
	if assembled.Partial {
		renderContext = context.WithoutCancel(ctx)
	}
	rendered, renderError := session.Render(renderContext, *assembled, renderer, counter)
	if renderError != nil {
		return renderError
	}

	var copier clipboard.Copier
	if settings.clipboard {
		copier = clipboard.NewService()
	}
	writer := output.NewWriter(command.OutOrStdout(), command.ErrOrStderr(), copier, logger)
	if deliverError := writer.Deliver(rendered, assembled.Files, settings.outputOptions()); deliverError != nil {
		return deliverError
	}
	return buildError
}

// loadRenderer reads a user template, or picks a built-in template. A template
// argument that names no file but names a built-in selects that built-in. Without
// a template the output format picks the built-in; json embeds the markdown rendering.
func loadRenderer(templatePath string, outputFormat string) (*template.Renderer, error) {
	if templatePath != "" {
		if _, statError := os.Stat(templatePath); statError != nil && template.IsBuiltin(templatePath) {
			return template.NewBuiltinRenderer(templatePath)
		}
		text, readError := os.ReadFile(templatePath)
		if readError != nil {
			return nil, fmt.Errorf(readTemplateErrorFormat, templatePath, readError)
		}
		return template.NewRenderer(templatePath, string(text))
	}
	if outputFormat == types.FormatJSON {
		outputFormat = types.FormatMarkdown
	}
	return template.NewBuiltinRenderer(outputFormat)
}

// runSettings holds options after configuration files and flags are merged.
type runSettings struct {
	patterns  pattern.Specification
	selection selection.Options
	traversal traverse.Options

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
	variables    map[string]string
}

func (settings runSettings) sessionOptions(root string, resolver template.VariableResolver) prompt.Options {
	return prompt.Options{
		Root:             root,
		Patterns:         settings.patterns,
		Selection:        settings.selection,
		Traversal:        settings.traversal,
		LineNumbers:      settings.lineNumbers,
		NoCodeblock:      settings.noCodeblock,
		AbsolutePaths:    settings.absolutePaths,
		SortMethod:       settings.sortMethod,
		Concurrency:      settings.concurrency,
		Diff:             settings.diff,
		DiffBranches:     settings.diffBranches,
		LogBranches:      settings.logBranches,
		Variables:        settings.variables,
		VariableResolver: resolver,
	}
}

func (settings runSettings) outputOptions() output.Options {
	return output.Options{
		Format:                 settings.outputFormat,
		OutputFile:             settings.outputFile,
		Clipboard:              settings.clipboard,
		TokenFormat:            settings.tokenFormat,
		TokenMap:               settings.tokenMap,
		TokenMapLines:          settings.tokenMapLines,
		TokenMapMinimumPercent: settings.tokenMapMinimumPercent,
	}
}
