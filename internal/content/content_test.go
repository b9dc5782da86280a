package content_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/temirov/codeprompt/internal/content"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

type stubCounter struct{}

func (stubCounter) CountString(input string) (int, error) { return len(strings.Fields(input)), nil }

func writeCandidate(testingHandle *testing.T, root string, relativePath string, data []byte) types.FileCandidate {
	testingHandle.Helper()
	absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
	if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
		testingHandle.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(absolutePath, data, 0o644); err != nil {
		testingHandle.Fatalf("write %s: %v", relativePath, err)
	}
	return types.FileCandidate{
		AbsolutePath: absolutePath,
		RelativePath: relativePath,
		Extension:    utils.FileExtension(filepath.Base(relativePath)),
		Size:         int64(len(data)),
	}
}

func TestNumberLinesPreservesLineEndings(testingHandle *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "unix", input: "a\nb\n", expected: "   1 | a\n   2 | b\n"},
		{name: "windows", input: "a\r\nb", expected: "   1 | a\r\n   2 | b"},
		{name: "blank_lines", input: "\n\nx", expected: "   1 | \n   2 | \n   3 | x"},
	}
	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			if numbered := content.NumberLines(testCase.input); numbered != testCase.expected {
				testingHandle.Fatalf("NumberLines(%q) = %q, expected %q", testCase.input, numbered, testCase.expected)
			}
		})
	}
}

func TestNumberLinesAlignsWideNumbers(testingHandle *testing.T) {
	numbered := content.NumberLines(strings.Repeat("x\n", 10000))
	lines := strings.Split(strings.TrimSuffix(numbered, "\n"), "\n")
	if lines[0] != "   1 | x" || lines[9999] != "10000 | x" {
		testingHandle.Fatalf("unexpected numbering %q ... %q", lines[0], lines[9999])
	}
}

func TestWrapCodeBlock(testingHandle *testing.T) {
	if wrapped := content.WrapCodeBlock("fn main() {}", "rust", false, false); wrapped != "```rust\nfn main() {}\n```" {
		testingHandle.Fatalf("unexpected fence %q", wrapped)
	}
	if wrapped := content.WrapCodeBlock("x", "go", true, true); wrapped != "   1 | x" {
		testingHandle.Fatalf("unexpected unfenced output %q", wrapped)
	}
	if wrapped := content.WrapCodeBlock("```go\n```", "markdown", false, false); !strings.HasPrefix(wrapped, "````markdown\n") || !strings.HasSuffix(wrapped, "\n````") {
		testingHandle.Fatalf("expected a longer fence around embedded fences, got %q", wrapped)
	}
}

func TestLanguageForExtension(testingHandle *testing.T) {
	if language := content.LanguageForExtension("rs"); language != "rust" {
		testingHandle.Fatalf("unexpected language %q", language)
	}
	if language := content.LanguageForExtension("GO"); language != "go" {
		testingHandle.Fatalf("unexpected language %q", language)
	}
	if language := content.LanguageForExtension("weird"); language != "weird" {
		testingHandle.Fatalf("expected extension fallback, got %q", language)
	}
}

func TestCollectKeepsOrderAndSkipsBinary(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	var candidates []types.FileCandidate
	for index := 0; index < 40; index++ {
		name := filepath.ToSlash(filepath.Join("src", strings.Repeat("a", index%5+1)+"_"+string(rune('a'+index%26))+".go"))
		if index%7 == 0 {
			candidates = append(candidates, writeCandidate(testingHandle, root, "bin/"+name+".bin", []byte{0x00, 0x01, 0x02}))
			continue
		}
		candidates = append(candidates, writeCandidate(testingHandle, root, name, []byte("package src\n")))
	}

	collector := content.NewCollector(content.Options{Concurrency: 4}, nil)
	entries, skipped, collectError := collector.Collect(context.Background(), candidates)
	if collectError != nil {
		testingHandle.Fatalf("Collect error: %v", collectError)
	}

	expectedPaths := make([]string, 0, len(candidates))
	binaryCount := 0
	for _, candidate := range candidates {
		if strings.HasSuffix(candidate.RelativePath, ".bin") {
			binaryCount++
			continue
		}
		expectedPaths = append(expectedPaths, candidate.RelativePath)
	}
	if len(entries) != len(expectedPaths) {
		testingHandle.Fatalf("expected %d entries, got %d", len(expectedPaths), len(entries))
	}
	for index, entry := range entries {
		if entry.Path != expectedPaths[index] {
			testingHandle.Fatalf("entry %d: expected %s, got %s", index, expectedPaths[index], entry.Path)
		}
		if entry.Content != "```go\npackage src\n\n```" {
			testingHandle.Fatalf("unexpected content %q", entry.Content)
		}
	}
	if len(skipped) != binaryCount {
		testingHandle.Fatalf("expected %d skipped binaries, got %d", binaryCount, len(skipped))
	}
	for _, skippedPath := range skipped {
		if skippedPath.Reason != types.SkipBinaryFile {
			testingHandle.Fatalf("unexpected skip reason %s", skippedPath.Reason)
		}
	}
}

func TestCollectSkipsNulPastSniffWindow(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	data := append([]byte(strings.Repeat("a", 9000)), 0x00, 'b')
	candidate := writeCandidate(testingHandle, root, "late.txt", data)

	entries, skipped, collectError := content.NewCollector(content.Options{}, nil).Collect(context.Background(), []types.FileCandidate{candidate})
	if collectError != nil {
		testingHandle.Fatalf("Collect error: %v", collectError)
	}
	if len(entries) != 0 {
		testingHandle.Fatalf("expected no entries, got %d", len(entries))
	}
	if len(skipped) != 1 || skipped[0].Reason != types.SkipBinaryFile || skipped[0].Path != "late.txt" {
		testingHandle.Fatalf("unexpected skipped paths %+v", skipped)
	}
}

func TestCollectStripsByteOrderMarkAndCountsTokens(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	candidate := writeCandidate(testingHandle, root, "notes.txt", append([]byte{0xEF, 0xBB, 0xBF}, []byte("one two three")...))
	collector := content.NewCollector(content.Options{NoCodeblock: true, TokenCounter: stubCounter{}, AbsolutePaths: true}, nil)
	entries, _, collectError := collector.Collect(context.Background(), []types.FileCandidate{candidate})
	if collectError != nil {
		testingHandle.Fatalf("Collect error: %v", collectError)
	}
	if len(entries) != 1 {
		testingHandle.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Content != "one two three" {
		testingHandle.Fatalf("unexpected content %q", entries[0].Content)
	}
	if entries[0].TokenCount != 3 {
		testingHandle.Fatalf("expected 3 tokens, got %d", entries[0].TokenCount)
	}
	if entries[0].Path != candidate.AbsolutePath {
		testingHandle.Fatalf("expected absolute path, got %s", entries[0].Path)
	}
}

func TestCollectRecordsUnreadableFile(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	good := writeCandidate(testingHandle, root, "good.txt", []byte("ok"))
	missing := types.FileCandidate{AbsolutePath: filepath.Join(root, "gone.txt"), RelativePath: "gone.txt"}
	entries, skipped, collectError := content.NewCollector(content.Options{}, nil).Collect(context.Background(), []types.FileCandidate{missing, good})
	if collectError != nil {
		testingHandle.Fatalf("Collect error: %v", collectError)
	}
	if len(entries) != 1 || entries[0].Path != "good.txt" {
		testingHandle.Fatalf("unexpected entries %+v", entries)
	}
	if len(skipped) != 1 || skipped[0].Reason != types.SkipReadFailed {
		testingHandle.Fatalf("unexpected skipped %+v", skipped)
	}
}

func TestCollectEmptyFileIsIncluded(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	candidate := writeCandidate(testingHandle, root, "empty.go", nil)
	entries, skipped, collectError := content.NewCollector(content.Options{}, nil).Collect(context.Background(), []types.FileCandidate{candidate})
	if collectError != nil || len(skipped) != 0 || len(entries) != 1 {
		testingHandle.Fatalf("expected empty file entry, got entries=%v skipped=%v err=%v", entries, skipped, collectError)
	}
}

func TestCollectCancelledContext(testingHandle *testing.T) {
	root := testingHandle.TempDir()
	candidate := writeCandidate(testingHandle, root, "a.txt", []byte("a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries, _, collectError := content.NewCollector(content.Options{}, nil).Collect(ctx, []types.FileCandidate{candidate})
	if !errors.Is(collectError, context.Canceled) {
		testingHandle.Fatalf("expected context.Canceled, got %v", collectError)
	}
	if len(entries) != 0 {
		testingHandle.Fatalf("expected no entries after cancellation, got %d", len(entries))
	}
}

func TestSortEntries(testingHandle *testing.T) {
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	entries := func() []types.FileEntry {
		return []types.FileEntry{
			{Path: "file10.go", ModTime: base.Add(2 * time.Hour)},
			{Path: "file2.go", ModTime: base},
			{Path: "file1.go", ModTime: base.Add(time.Hour)},
		}
	}
	testCases := []struct {
		method   string
		expected []string
	}{
		{method: "", expected: []string{"file10.go", "file2.go", "file1.go"}},
		{method: types.SortNameAscending, expected: []string{"file1.go", "file10.go", "file2.go"}},
		{method: types.SortNameDescending, expected: []string{"file2.go", "file10.go", "file1.go"}},
		{method: types.SortDateAscending, expected: []string{"file2.go", "file1.go", "file10.go"}},
		{method: types.SortDateDescending, expected: []string{"file10.go", "file1.go", "file2.go"}},
		{method: types.SortNatural, expected: []string{"file1.go", "file2.go", "file10.go"}},
	}
	for _, testCase := range testCases {
		sorted := entries()
		content.SortEntries(sorted, testCase.method)
		for index, expectedPath := range testCase.expected {
			if sorted[index].Path != expectedPath {
				testingHandle.Fatalf("method %q: expected %v, got %+v", testCase.method, testCase.expected, sorted)
			}
		}
	}
	if err := content.ValidateSortMethod("by_size"); !errors.Is(err, content.ErrUnknownSortMethod) {
		testingHandle.Fatalf("expected ErrUnknownSortMethod, got %v", err)
	}
}
