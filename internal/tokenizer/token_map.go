package tokenizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/temirov/codeprompt/internal/types"
)

const (
	// DefaultTokenMapLines bounds the number of entries shown in a token map.
	DefaultTokenMapLines = 20
	// DefaultTokenMapMinimumPercent hides entries below this share of the total.
	DefaultTokenMapMinimumPercent = 0.1

	otherFilesLabel      = "(other files)"
	tokenMapLineFormat   = "%10s %s%s %5.1f%%\n"
	tokenMapBranch       = "├── "
	tokenMapLastBranch   = "└── "
	tokenMapVertical     = "│   "
	tokenMapIndentation  = "    "
	directorySuffix      = "/"
	pathSeparatorForward = "/"
)

// TokenMapEntry is one line of a token map.
type TokenMapEntry struct {
	Path        string
	Name        string
	Tokens      int
	Percentage  float64
	Depth       int
	IsDirectory bool
	IsLast      bool
}

type tokenNode struct {
	name     string
	path     string
	depth    int
	tokens   int
	isFile   bool
	children map[string]*tokenNode
}

func newTokenNode(name string, path string, depth int) *tokenNode {
	return &tokenNode{name: name, path: path, depth: depth, children: map[string]*tokenNode{}}
}

// orderedChildren sorts by tokens descending, then by name.
func (node *tokenNode) orderedChildren() []*tokenNode {
	children := make([]*tokenNode, 0, len(node.children))
	for _, child := range node.children {
		children = append(children, child)
	}
	sort.Slice(children, func(leftIndex, rightIndex int) bool {
		left, right := children[leftIndex], children[rightIndex]
		if left.tokens != right.tokens {
			return left.tokens > right.tokens
		}
		return left.name < right.name
	})
	return children
}

// BuildTokenMap aggregates per-file token counts into a directory hierarchy and
// keeps at most maxLines of the heaviest entries whose share is at least
// minimumPercent. An entry is only kept when its parent is kept. Tokens of
// files that are not shown are summarized in a trailing "(other files)" entry.
func BuildTokenMap(files []types.FileEntry, maxLines int, minimumPercent float64) []TokenMapEntry {
	if maxLines <= 0 {
		maxLines = DefaultTokenMapLines
	}
	root := newTokenNode("", "", -1)
	for _, file := range files {
		insertTokenPath(root, file)
	}
	if root.tokens == 0 {
		return nil
	}

	allowed := selectTokenNodes(root, maxLines, minimumPercent)
	var entries []TokenMapEntry
	appendTokenEntries(root, allowed, root.tokens, &entries)

	displayedFileTokens := 0
	for _, entry := range entries {
		if !entry.IsDirectory {
			displayedFileTokens += entry.Tokens
		}
	}
	if hidden := root.tokens - displayedFileTokens; hidden > 0 {
		entries = append(entries, TokenMapEntry{
			Path:       otherFilesLabel,
			Name:       otherFilesLabel,
			Tokens:     hidden,
			Percentage: percentage(hidden, root.tokens),
			IsLast:     true,
		})
	}
	return entries
}

func insertTokenPath(root *tokenNode, file types.FileEntry) {
	segments := strings.Split(strings.Trim(strings.ReplaceAll(file.Path, "\\", pathSeparatorForward), pathSeparatorForward), pathSeparatorForward)
	root.tokens += file.TokenCount
	current := root
	for index, segment := range segments {
		if segment == "" {
			continue
		}
		child, found := current.children[segment]
		if !found {
			childPath := segment
			if current.path != "" {
				childPath = current.path + pathSeparatorForward + segment
			}
			child = newTokenNode(segment, childPath, current.depth+1)
			current.children[segment] = child
		}
		child.tokens += file.TokenCount
		if index == len(segments)-1 {
			child.isFile = true
		}
		current = child
	}
}

// selectTokenNodes expands the heaviest visible node first, so parents are always selected before children.
func selectTokenNodes(root *tokenNode, maxLines int, minimumPercent float64) map[*tokenNode]bool {
	allowed := map[*tokenNode]bool{}
	frontier := root.orderedChildren()
	for len(allowed) < maxLines && len(frontier) > 0 {
		bestIndex := 0
		for index, candidate := range frontier[1:] {
			if heavierTokenNode(candidate, frontier[bestIndex]) {
				bestIndex = index + 1
			}
		}
		best := frontier[bestIndex]
		frontier = append(frontier[:bestIndex], frontier[bestIndex+1:]...)
		if percentage(best.tokens, root.tokens) < minimumPercent {
			continue
		}
		allowed[best] = true
		frontier = append(frontier, best.orderedChildren()...)
	}
	return allowed
}

func heavierTokenNode(left *tokenNode, right *tokenNode) bool {
	if left.tokens != right.tokens {
		return left.tokens > right.tokens
	}
	if left.depth != right.depth {
		return left.depth < right.depth
	}
	return left.path < right.path
}

func appendTokenEntries(node *tokenNode, allowed map[*tokenNode]bool, total int, entries *[]TokenMapEntry) {
	var visible []*tokenNode
	for _, child := range node.orderedChildren() {
		if allowed[child] {
			visible = append(visible, child)
		}
	}
	for index, child := range visible {
		*entries = append(*entries, TokenMapEntry{
			Path:        child.path,
			Name:        child.name,
			Tokens:      child.tokens,
			Percentage:  percentage(child.tokens, total),
			Depth:       child.depth,
			IsDirectory: !child.isFile,
			IsLast:      index == len(visible)-1,
		})
		appendTokenEntries(child, allowed, total, entries)
	}
}

func percentage(part int, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// RenderTokenMap draws entries as an indented tree with token counts and shares.
func RenderTokenMap(entries []TokenMapEntry, tokenFormat string) string {
	var builder strings.Builder
	var lastAtDepth []bool
	for _, entry := range entries {
		if entry.Depth < len(lastAtDepth) {
			lastAtDepth = lastAtDepth[:entry.Depth]
		}
		var prefix strings.Builder
		for _, ancestorWasLast := range lastAtDepth {
			if ancestorWasLast {
				prefix.WriteString(tokenMapIndentation)
			} else {
				prefix.WriteString(tokenMapVertical)
			}
		}
		if entry.IsLast {
			prefix.WriteString(tokenMapLastBranch)
		} else {
			prefix.WriteString(tokenMapBranch)
		}
		name := entry.Name
		if entry.IsDirectory {
			name += directorySuffix
		}
		fmt.Fprintf(&builder, tokenMapLineFormat, FormatCount(entry.Tokens, tokenFormat), prefix.String(), name, entry.Percentage)
		lastAtDepth = append(lastAtDepth, entry.IsLast)
	}
	return builder.String()
}
