package traverse

import (
	"strings"

	"github.com/woozymasta/pathrules"
)

// ignoreScope binds the rules of one directory to that directory's relative path.
type ignoreScope struct {
	directory string
	matcher   *pathrules.Matcher
}

// ignoreStack holds the scopes from the root down to the directory being read.
// It is never mutated; push returns a new stack.
type ignoreStack []ignoreScope

func (stack ignoreStack) push(directory string, matcher *pathrules.Matcher) ignoreStack {
	if matcher == nil {
		return stack
	}
	next := make(ignoreStack, len(stack), len(stack)+1)
	copy(next, stack)
	return append(next, ignoreScope{directory: directory, matcher: matcher})
}

// ignored evaluates every scope from shallow to deep; the deepest scope with a
// matching rule decides.
func (stack ignoreStack) ignored(relativePath string, isDir bool) bool {
	ignored := false
	for _, scope := range stack {
		localPath, within := scope.localize(relativePath)
		if !within {
			continue
		}
		result := scope.matcher.Decide(localPath, isDir)
		if result.Matched {
			ignored = !result.Included
		}
	}
	return ignored
}

func (scope ignoreScope) localize(relativePath string) (string, bool) {
	if scope.directory == "" {
		return relativePath, true
	}
	prefix := scope.directory + pathSeparator
	if !strings.HasPrefix(relativePath, prefix) {
		return "", false
	}
	return strings.TrimPrefix(relativePath, prefix), true
}
