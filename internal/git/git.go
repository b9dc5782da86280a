// Package git produces diffs and logs for a repository by invoking the git executable.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const (
	gitExecutable          = "git"
	revisionRangeFormat    = "%s..%s"
	commandErrorFormat     = "git %s: %w: %s"
	branchNotFoundFormat   = "%w: %s"
	logLineFormat          = "--format=%h %s"
	noExternalDiffArgument = "--no-ext-diff"
	disableColorArgument   = "--no-color"
	verifyRevisionCommand  = "rev-parse"
	commitSuffix           = "^{commit}"
)

var (
	// ErrGitUnavailable reports that the git executable could not be found.
	ErrGitUnavailable = errors.New("git executable not found")
	// ErrBranchNotFound reports a branch or revision that does not resolve.
	ErrBranchNotFound = errors.New("branch not found")
)

// runGitCommand is injectable in tests.
var runGitCommand = func(ctx context.Context, directory string, arguments ...string) (string, error) {
	if _, lookupError := exec.LookPath(gitExecutable); lookupError != nil {
		return "", ErrGitUnavailable
	}
	command := exec.CommandContext(ctx, gitExecutable, arguments...)
	command.Dir = directory
	var standardOutput, standardError bytes.Buffer
	command.Stdout = &standardOutput
	command.Stderr = &standardError
	if runError := command.Run(); runError != nil {
		return "", fmt.Errorf(commandErrorFormat, strings.Join(arguments, " "), runError, strings.TrimSpace(standardError.String()))
	}
	return standardOutput.String(), nil
}

// Diff returns the staged changes of the repository at root relative to HEAD.
func Diff(ctx context.Context, root string) (string, error) {
	return runGitCommand(ctx, root, "diff", "--cached", disableColorArgument, noExternalDiffArgument)
}

// DiffBranches returns the diff between the trees of two branches.
func DiffBranches(ctx context.Context, root string, from string, to string) (string, error) {
	if err := verifyBranches(ctx, root, from, to); err != nil {
		return "", err
	}
	return runGitCommand(ctx, root, "diff", disableColorArgument, noExternalDiffArgument, from, to)
}

// LogBranches returns one line per commit reachable from to but not from from.
func LogBranches(ctx context.Context, root string, from string, to string) (string, error) {
	if err := verifyBranches(ctx, root, from, to); err != nil {
		return "", err
	}
	return runGitCommand(ctx, root, "log", logLineFormat, fmt.Sprintf(revisionRangeFormat, from, to))
}

func verifyBranches(ctx context.Context, root string, branches ...string) error {
	for _, branch := range branches {
		if strings.TrimSpace(branch) == "" || strings.HasPrefix(branch, "-") {
			return fmt.Errorf(branchNotFoundFormat, ErrBranchNotFound, branch)
		}
		if _, err := runGitCommand(ctx, root, verifyRevisionCommand, "--verify", "--quiet", branch+commitSuffix); err != nil {
			if errors.Is(err, ErrGitUnavailable) || ctx.Err() != nil {
				return err
			}
			return fmt.Errorf(branchNotFoundFormat, ErrBranchNotFound, branch)
		}
	}
	return nil
}
