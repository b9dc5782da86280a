// Package traverse walks a directory tree and yields file candidates in a deterministic order.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/config"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	pathSeparator = "/"

	rootNotFoundErrorFormat = "%w: %s"
	rootStatErrorFormat     = "stat failed for '%s': %w"
	absolutePathErrorFormat = "abs failed for '%s': %w"

	skippedPathLogMessage       = "skipping path"
	ignoreRulesLogMessage       = "ignore rules unavailable"
	unfollowedSymlinkLogMessage = "not following symlinked directory"
)

var (
	// ErrRootNotFound reports a traversal root that does not exist.
	ErrRootNotFound = errors.New("path does not exist")
	// ErrAlreadyWalked reports a second Walk call on the same Traverser.
	ErrAlreadyWalked = errors.New("traverser already used; create a new one per run")
)

// Options controls which entries the traverser yields.
type Options struct {
	// Hidden yields dotfiles and dot-directories.
	Hidden bool
	// NoIgnore disables .gitignore, .ignore and .git/info/exclude rules.
	NoIgnore bool
	// FollowSymlinks descends into symlinked directories.
	FollowSymlinks bool
}

// Result summarizes a finished walk.
type Result struct {
	Skipped []types.SkippedPath
}

// VisitFunc receives each candidate. Returning an error stops the walk.
type VisitFunc func(candidate types.FileCandidate) error

// Traverser walks one root exactly once.
type Traverser struct {
	root     string
	rootInfo os.FileInfo
	options  Options
	logger   *zap.Logger
	walked   atomic.Bool
}

// New validates the root and prepares a single-use traverser.
func New(root string, options Options, logger *zap.Logger) (*Traverser, error) {
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return nil, fmt.Errorf(absolutePathErrorFormat, root, absoluteError)
	}
	absoluteRoot = filepath.Clean(absoluteRoot)
	rootInfo, statError := os.Stat(absoluteRoot)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, fmt.Errorf(rootNotFoundErrorFormat, ErrRootNotFound, root)
		}
		return nil, fmt.Errorf(rootStatErrorFormat, root, statError)
	}
	return &Traverser{
		root:     absoluteRoot,
		rootInfo: rootInfo,
		options:  options,
		logger:   utils.LoggerOrNop(logger),
	}, nil
}

// Root returns the absolute, cleaned traversal root.
func (traverser *Traverser) Root() string {
	return traverser.root
}

// Walk visits every eligible entry depth-first. Entries within a directory are
// visited in lexicographic name order with files and directories interleaved.
// Per-entry failures are recorded in the result; cancellation returns ctx.Err().
func (traverser *Traverser) Walk(ctx context.Context, visit VisitFunc) (Result, error) {
	if !traverser.walked.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyWalked
	}
	walk := &walkState{traverser: traverser, visit: visit, ancestors: map[string]struct{}{}}

	if !traverser.rootInfo.IsDir() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		candidate := traverser.candidate(traverser.root, traverser.rootInfo.Name(), traverser.rootInfo, false)
		return Result{}, visit(candidate)
	}

	if canonicalRoot, evalError := filepath.EvalSymlinks(traverser.root); evalError == nil {
		walk.ancestors[canonicalRoot] = struct{}{}
	}
	walkError := walk.directory(ctx, traverser.root, "", nil)
	return Result{Skipped: walk.skipped}, walkError
}

// walkState is owned by a single Walk call.
type walkState struct {
	traverser *Traverser
	visit     VisitFunc
	skipped   []types.SkippedPath
	// ancestors holds canonical paths of directories on the current descent path.
	ancestors map[string]struct{}
}

func (walk *walkState) directory(ctx context.Context, absoluteDirectoryPath string, relativeDirectory string, scopes ignoreStack) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	options := walk.traverser.options

	entries, readError := os.ReadDir(absoluteDirectoryPath)
	if readError != nil {
		reason := types.SkipDirectoryReadFail
		if errors.Is(readError, fs.ErrPermission) {
			reason = types.SkipPermissionDenied
		}
		walk.skip(relativeOrRoot(relativeDirectory), reason, readError)
		return nil
	}

	if !options.NoIgnore {
		matcher, matcherError := config.LoadDirectoryIgnoreMatcher(absoluteDirectoryPath, relativeDirectory == "")
		if matcherError != nil {
			walk.traverser.logger.Warn(ignoreRulesLogMessage, zap.String(utils.LogFieldPath, absoluteDirectoryPath), zap.Error(matcherError))
		} else {
			scopes = scopes.push(relativeDirectory, matcher)
		}
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entryError := walk.entry(ctx, absoluteDirectoryPath, relativeDirectory, entry, scopes); entryError != nil {
			return entryError
		}
	}
	return nil
}

func (walk *walkState) entry(ctx context.Context, absoluteDirectoryPath string, relativeDirectory string, entry fs.DirEntry, scopes ignoreStack) error {
	options := walk.traverser.options
	entryName := entry.Name()
	if entryName == utils.GitDirectoryName && entry.IsDir() {
		return nil
	}
	if !options.Hidden && utils.IsHiddenName(entryName) {
		return nil
	}

	absolutePath := filepath.Join(absoluteDirectoryPath, entryName)
	relativePath := utils.JoinRelativePath(relativeDirectory, entryName)
	isSymlink := entry.Type()&fs.ModeSymlink != 0

	var info os.FileInfo
	var infoError error
	if isSymlink {
		info, infoError = os.Stat(absolutePath)
		if infoError != nil {
			walk.skip(relativePath, types.SkipBrokenSymlink, infoError)
			return nil
		}
	} else {
		info, infoError = entry.Info()
		if infoError != nil {
			walk.skip(relativePath, types.SkipReadFailed, infoError)
			return nil
		}
	}

	isDir := info.IsDir()
	if scopes.ignored(relativePath, isDir) {
		return nil
	}

	if !isDir {
		if !info.Mode().IsRegular() {
			return nil
		}
		return walk.visit(walk.traverser.candidate(absolutePath, relativePath, info, isSymlink))
	}

	if isSymlink && !options.FollowSymlinks {
		walk.traverser.logger.Debug(unfollowedSymlinkLogMessage, zap.String(utils.LogFieldPath, relativePath))
		return nil
	}

	canonicalPath, evalError := filepath.EvalSymlinks(absolutePath)
	if evalError != nil {
		walk.skip(relativePath, types.SkipBrokenSymlink, evalError)
		return nil
	}
	if _, onPath := walk.ancestors[canonicalPath]; onPath {
		walk.skip(relativePath, types.SkipSymlinkCycle, nil)
		return nil
	}

	if visitError := walk.visit(walk.traverser.candidate(absolutePath, relativePath, info, isSymlink)); visitError != nil {
		return visitError
	}

	walk.ancestors[canonicalPath] = struct{}{}
	defer delete(walk.ancestors, canonicalPath)
	return walk.directory(ctx, absolutePath, relativePath, scopes)
}

func (walk *walkState) skip(relativePath string, reason types.SkipReason, cause error) {
	skipped := types.SkippedPath{Path: relativePath, Reason: reason}
	fields := []zap.Field{zap.String(utils.LogFieldPath, relativePath), zap.String(utils.LogFieldReason, string(reason))}
	if cause != nil {
		skipped.Message = cause.Error()
		fields = append(fields, zap.Error(cause))
	}
	walk.skipped = append(walk.skipped, skipped)
	walk.traverser.logger.Warn(skippedPathLogMessage, fields...)
}

func (traverser *Traverser) candidate(absolutePath string, relativePath string, info os.FileInfo, isSymlink bool) types.FileCandidate {
	candidate := types.FileCandidate{
		AbsolutePath: absolutePath,
		RelativePath: relativePath,
		IsHidden:     hasHiddenSegment(relativePath),
		IsSymlink:    isSymlink,
		IsDir:        info.IsDir(),
		ModTime:      info.ModTime(),
	}
	if !candidate.IsDir {
		candidate.Extension = utils.FileExtension(filepath.Base(absolutePath))
		candidate.Size = info.Size()
	}
	return candidate
}

func hasHiddenSegment(relativePath string) bool {
	start := 0
	for index := 0; index <= len(relativePath); index++ {
		if index == len(relativePath) || relativePath[index] == '/' {
			if utils.IsHiddenName(relativePath[start:index]) {
				return true
			}
			start = index + 1
		}
	}
	return false
}

func relativeOrRoot(relativeDirectory string) string {
	if relativeDirectory == "" {
		return "."
	}
	return relativeDirectory
}
