// Package prompt drives one ingestion run from traversal to the rendered prompt.
package prompt

import (
	"path/filepath"

	"github.com/temirov/codeprompt/internal/types"
)

// Extra carries collaborator output that is attached to the context verbatim.
type Extra struct {
	GitDiff       string
	GitDiffBranch string
	GitLogBranch  string
	Variables     map[string]string
	Skipped       []types.SkippedPath
	Partial       bool
}

// Assemble combines the rendered tree, collected files and collaborator output
// into a context. It performs no I/O.
func Assemble(root string, treeText string, files []types.FileEntry, extra Extra) types.Context {
	cleanedRoot := filepath.Clean(root)
	variables := make(map[string]string, len(extra.Variables))
	for name, value := range extra.Variables {
		variables[name] = value
	}
	return types.Context{
		AbsoluteRootPath: cleanedRoot,
		DirectoryName:    directoryLabel(cleanedRoot),
		SourceTree:       treeText,
		Files:            files,
		Skipped:          extra.Skipped,
		GitDiff:          extra.GitDiff,
		GitDiffBranch:    extra.GitDiffBranch,
		GitLogBranch:     extra.GitLogBranch,
		Variables:        variables,
		Partial:          extra.Partial,
	}
}

func directoryLabel(root string) string {
	base := filepath.Base(root)
	if base == string(filepath.Separator) || base == "." {
		return root
	}
	return base
}
