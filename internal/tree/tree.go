// Package tree renders the visible part of a traversal as a box-drawing directory tree.
package tree

import (
	"sort"
	"strings"

	"github.com/temirov/codeprompt/internal/types"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "
	pathSeparator       = "/"
	lineBreak           = "\n"
)

// directoryNode is one segment of the in-memory tree.
type directoryNode struct {
	name        string
	isDirectory bool
	children    map[string]*directoryNode
}

func newDirectoryNode(name string, isDirectory bool) *directoryNode {
	return &directoryNode{name: name, isDirectory: isDirectory, children: map[string]*directoryNode{}}
}

// child returns the named child, creating it when missing. A segment first seen
// as a file is promoted to a directory when a deeper path passes through it.
func (node *directoryNode) child(name string, isDirectory bool) *directoryNode {
	existing, found := node.children[name]
	if !found {
		existing = newDirectoryNode(name, isDirectory)
		node.children[name] = existing
	} else if isDirectory {
		existing.isDirectory = true
	}
	return existing
}

// orderedChildren lists directories before files, each group in lexicographic order.
func (node *directoryNode) orderedChildren() []*directoryNode {
	ordered := make([]*directoryNode, 0, len(node.children))
	for _, childNode := range node.children {
		ordered = append(ordered, childNode)
	}
	sort.Slice(ordered, func(leftIndex, rightIndex int) bool {
		left, right := ordered[leftIndex], ordered[rightIndex]
		if left.isDirectory != right.isDirectory {
			return left.isDirectory
		}
		return left.name < right.name
	})
	return ordered
}

// Build renders every candidate whose decision has IncludeInTree set. Ancestors
// of visible entries are always rendered. candidates and decisions are parallel slices.
func Build(rootLabel string, candidates []types.FileCandidate, decisions []types.SelectionDecision) string {
	root := newDirectoryNode(rootLabel, true)
	for index, candidate := range candidates {
		if index >= len(decisions) || !decisions[index].IncludeInTree {
			continue
		}
		relativePath := strings.Trim(candidate.RelativePath, pathSeparator)
		if relativePath == "" || relativePath == "." {
			continue
		}
		insert(root, strings.Split(relativePath, pathSeparator), candidate.IsDir)
	}

	var builder strings.Builder
	builder.WriteString(rootLabel)
	builder.WriteString(lineBreak)
	renderChildren(&builder, root, "")
	return builder.String()
}

func insert(root *directoryNode, segments []string, isDirectory bool) {
	current := root
	lastIndex := len(segments) - 1
	for index, segment := range segments {
		current = current.child(segment, index < lastIndex || isDirectory)
	}
}

func treeNodeLinePrefix(prefix string, isLast bool) (string, string) {
	if isLast {
		return prefix + treeLastConnector, prefix + treeLastPadding
	}
	return prefix + treeBranchConnector, prefix + treeBranchPadding
}

func renderChildren(builder *strings.Builder, node *directoryNode, prefix string) {
	children := node.orderedChildren()
	for index, childNode := range children {
		linePrefix, childPrefix := treeNodeLinePrefix(prefix, index == len(children)-1)
		builder.WriteString(linePrefix)
		builder.WriteString(childNode.name)
		builder.WriteString(lineBreak)
		renderChildren(builder, childNode, childPrefix)
	}
}
