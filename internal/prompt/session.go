package prompt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/codeprompt/internal/content"
	"github.com/temirov/codeprompt/internal/git"
	"github.com/temirov/codeprompt/internal/pattern"
	"github.com/temirov/codeprompt/internal/selection"
	"github.com/temirov/codeprompt/internal/template"
	"github.com/temirov/codeprompt/internal/tokenizer"
	"github.com/temirov/codeprompt/internal/traverse"
	"github.com/temirov/codeprompt/internal/tree"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	branchPairErrorFormat  = "%w: %s needs exactly two branches, got %d"
	gitProducerErrorFormat = "%s: %w"
	countTokensErrorFormat = "count prompt tokens: %w"

	gitDiffLabel       = "git diff"
	gitDiffBranchLabel = "git diff between branches"
	gitLogBranchLabel  = "git log between branches"

	sessionStartedLogMessage   = "building context"
	sessionFinishedLogMessage  = "context built"
	sessionCancelledLogMessage = "context build cancelled"
	renderedLogMessage         = "prompt rendered"
	logFieldCandidates         = "candidates"
	logFieldSkipped            = "skipped"
	logFieldTokens             = "tokens"
)

// ErrInvalidBranchPair reports a branch option that does not name exactly two branches.
var ErrInvalidBranchPair = errors.New("invalid branch pair")

// Options configures one session.
type Options struct {
	Root      string
	Patterns  pattern.Specification
	Selection selection.Options
	Traversal traverse.Options

	LineNumbers   bool
	NoCodeblock   bool
	AbsolutePaths bool
	SortMethod    string
	// Concurrency bounds parallel file reads; zero uses GOMAXPROCS.
	Concurrency int
	// FileTokenCounter, when set, fills per-file token counts.
	FileTokenCounter content.TokenCounter

	// Diff attaches the staged changes of the repository at Root.
	Diff bool
	// DiffBranches and LogBranches name two branches each, or are empty.
	DiffBranches []string
	LogBranches  []string

	Variables map[string]string
	// VariableResolver supplies template variables that Variables lacks.
	VariableResolver template.VariableResolver
}

// Session holds validated configuration. Build may be called more than once;
// each call walks the tree afresh.
type Session struct {
	options  Options
	selector *selection.Selector
	logger   *zap.Logger
}

// NewSession compiles patterns and validates the root and git options before any tree I/O.
func NewSession(options Options, logger *zap.Logger) (*Session, error) {
	logger = utils.LoggerOrNop(logger)
	if _, err := traverse.New(options.Root, options.Traversal, logger); err != nil {
		return nil, err
	}
	set, setError := pattern.NewCriterionSet(options.Patterns)
	if setError != nil {
		return nil, setError
	}
	if err := content.ValidateSortMethod(options.SortMethod); err != nil {
		return nil, err
	}
	if err := validateBranchPair("diff-branch", options.DiffBranches); err != nil {
		return nil, err
	}
	if err := validateBranchPair("log-branch", options.LogBranches); err != nil {
		return nil, err
	}
	return &Session{
		options:  options,
		selector: selection.NewSelector(set, options.Selection, logger),
		logger:   logger,
	}, nil
}

func validateBranchPair(name string, branches []string) error {
	if len(branches) == 0 || len(branches) == 2 {
		return nil
	}
	return fmt.Errorf(branchPairErrorFormat, ErrInvalidBranchPair, name, len(branches))
}

// Build runs traverse, decide, tree, collect and assemble. When ctx is
// cancelled the returned context is marked partial and returned together with
// ctx.Err(). Fatal errors return a nil context.
func (session *Session) Build(ctx context.Context) (*types.Context, error) {
	traverser, traverserError := traverse.New(session.options.Root, session.options.Traversal, session.logger)
	if traverserError != nil {
		return nil, traverserError
	}
	root := traverser.Root()
	session.logger.Debug(sessionStartedLogMessage, zap.String(utils.LogFieldRoot, root))

	candidates, decisions, walkResult, walkError := session.walk(ctx, traverser)
	if walkError != nil && ctx.Err() == nil {
		return nil, walkError
	}
	skipped := walkResult.Skipped
	treeText := tree.Build(directoryLabel(root), candidates, decisions)

	if walkError != nil {
		return session.partial(root, treeText, nil, skipped, walkError), walkError
	}

	var selected []types.FileCandidate
	for index, candidate := range candidates {
		if !candidate.IsDir && decisions[index].IncludeContent {
			selected = append(selected, candidate)
		}
	}

	collector := content.NewCollector(content.Options{
		LineNumbers:   session.options.LineNumbers,
		NoCodeblock:   session.options.NoCodeblock,
		AbsolutePaths: session.options.AbsolutePaths,
		SortMethod:    session.options.SortMethod,
		Concurrency:   session.options.Concurrency,
		TokenCounter:  session.options.FileTokenCounter,
	}, session.logger)
	files, contentSkipped, collectError := collector.Collect(ctx, selected)
	skipped = append(skipped, contentSkipped...)
	if collectError != nil {
		if ctx.Err() == nil {
			return nil, collectError
		}
		return session.partial(root, treeText, files, skipped, collectError), collectError
	}

	extra, gitError := session.gitExtra(ctx, root)
	if gitError != nil {
		return nil, gitError
	}
	extra.Variables = session.options.Variables
	extra.Skipped = skipped

	assembled := Assemble(root, treeText, files, extra)
	session.logger.Debug(sessionFinishedLogMessage,
		zap.Int(logFieldCandidates, len(candidates)),
		zap.Int(utils.LogFieldCount, len(files)),
		zap.Int(logFieldSkipped, len(skipped)),
	)
	return &assembled, nil
}

// walk streams candidates from the traverser to the selector, in the order the traverser yields them.
func (session *Session) walk(ctx context.Context, traverser *traverse.Traverser) ([]types.FileCandidate, []types.SelectionDecision, traverse.Result, error) {
	var candidates []types.FileCandidate
	var decisions []types.SelectionDecision
	var walkResult traverse.Result

	group, streamContext := errgroup.WithContext(ctx)
	stream := make(chan types.FileCandidate)

	group.Go(func() error {
		defer close(stream)
		result, err := traverser.Walk(streamContext, func(candidate types.FileCandidate) error {
			select {
			case <-streamContext.Done():
				return streamContext.Err()
			case stream <- candidate:
				return nil
			}
		})
		walkResult = result
		return err
	})

	group.Go(func() error {
		for candidate := range stream {
			candidates = append(candidates, candidate)
			decisions = append(decisions, session.selector.Decide(candidate))
		}
		return nil
	})

	waitError := group.Wait()
	if waitError == nil {
		waitError = ctx.Err()
	}
	return candidates, decisions, walkResult, waitError
}

func (session *Session) partial(root string, treeText string, files []types.FileEntry, skipped []types.SkippedPath, cause error) *types.Context {
	session.logger.Warn(sessionCancelledLogMessage, zap.String(utils.LogFieldRoot, root), zap.Int(utils.LogFieldCount, len(files)), zap.Error(cause))
	assembled := Assemble(root, treeText, files, Extra{
		Variables: session.options.Variables,
		Skipped:   skipped,
		Partial:   true,
	})
	return &assembled
}

func (session *Session) gitExtra(ctx context.Context, root string) (Extra, error) {
	var extra Extra
	root = repositoryDirectory(root)
	if session.options.Diff {
		diff, err := git.Diff(ctx, root)
		if err != nil {
			return Extra{}, fmt.Errorf(gitProducerErrorFormat, gitDiffLabel, err)
		}
		extra.GitDiff = diff
	}
	if branches := session.options.DiffBranches; len(branches) == 2 {
		diff, err := git.DiffBranches(ctx, root, branches[0], branches[1])
		if err != nil {
			return Extra{}, fmt.Errorf(gitProducerErrorFormat, gitDiffBranchLabel, err)
		}
		extra.GitDiffBranch = diff
	}
	if branches := session.options.LogBranches; len(branches) == 2 {
		log, err := git.LogBranches(ctx, root, branches[0], branches[1])
		if err != nil {
			return Extra{}, fmt.Errorf(gitProducerErrorFormat, gitLogBranchLabel, err)
		}
		extra.GitLogBranch = log
	}
	return extra, nil
}

// Render resolves missing template variables, renders the template and counts
// the tokens of the result. A nil counter leaves the count and model info empty.
func (session *Session) Render(ctx context.Context, assembled types.Context, renderer *template.Renderer, counter tokenizer.Counter) (types.RenderedPrompt, error) {
	if err := ctx.Err(); err != nil {
		return types.RenderedPrompt{}, err
	}
	variables, resolveError := template.ResolveVariables(renderer.Variables(), assembled.Variables, session.options.VariableResolver)
	if resolveError != nil {
		return types.RenderedPrompt{}, resolveError
	}
	assembled.Variables = variables

	rendered, renderError := renderer.Render(template.Data(assembled))
	if renderError != nil {
		return types.RenderedPrompt{}, renderError
	}

	result := types.RenderedPrompt{
		Prompt:        rendered,
		DirectoryName: assembled.DirectoryName,
		Files:         promptFiles(assembled.Files),
		Partial:       assembled.Partial,
	}
	if counter != nil {
		tokenCount, countError := counter.CountString(rendered)
		if countError != nil {
			return types.RenderedPrompt{}, fmt.Errorf(countTokensErrorFormat, countError)
		}
		result.TokenCount = tokenCount
		result.ModelInfo = counter.ModelInfo()
	}
	session.logger.Debug(renderedLogMessage, zap.Int(logFieldTokens, result.TokenCount))
	return result, nil
}

// repositoryDirectory returns the directory git runs in: root itself, or its parent when root is a file.
func repositoryDirectory(root string) string {
	if info, statError := os.Stat(root); statError == nil && !info.IsDir() {
		return filepath.Dir(root)
	}
	return root
}

func promptFiles(files []types.FileEntry) []types.PromptFile {
	result := make([]types.PromptFile, 0, len(files))
	for index := range files {
		result = append(result, types.PromptFile{Path: files[index].Path, Content: &files[index].Content})
	}
	return result
}
