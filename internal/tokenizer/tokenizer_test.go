package tokenizer

import (
	"errors"
	"strings"
	"testing"

	"github.com/temirov/codeprompt/internal/types"
)

func TestResolveEncoding(t *testing.T) {
	testCases := []struct {
		name              string
		input             string
		expectedName      string
		expectedModelInfo string
	}{
		{name: "default", input: "", expectedName: "cl100k", expectedModelInfo: "ChatGPT models, text-embedding-ada-002"},
		{name: "o200k", input: "o200k", expectedName: "o200k", expectedModelInfo: "OpenAI models, ChatGPT-4o"},
		{name: "case_insensitive", input: " P50K_EDIT ", expectedName: "p50k_edit", expectedModelInfo: "Edit models like text-davinci-edit-001, code-davinci-edit-001"},
		{name: "gpt2_alias", input: "gpt2", expectedName: "gpt2", expectedModelInfo: "GPT-3 models like davinci"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			encoding, err := ResolveEncoding(testCase.input)
			if err != nil {
				t.Fatalf("ResolveEncoding(%q) error: %v", testCase.input, err)
			}
			if encoding.Name != testCase.expectedName {
				t.Fatalf("expected %s, got %s", testCase.expectedName, encoding.Name)
			}
			if encoding.ModelInfo() != testCase.expectedModelInfo {
				t.Fatalf("expected model info %q, got %q", testCase.expectedModelInfo, encoding.ModelInfo())
			}
		})
	}
}

func TestUnknownEncodingFailsBeforeLoading(t *testing.T) {
	if _, err := NewCounter("llama"); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
	if _, _, err := Count("text", "bogus"); !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding from Count, got %v", err)
	}
}

func TestFormatCount(t *testing.T) {
	if formatted := FormatCount(1234567, types.TokenFormatFormatted); formatted != "1,234,567" {
		t.Fatalf("unexpected formatted count %q", formatted)
	}
	if raw := FormatCount(1234567, types.TokenFormatRaw); raw != "1234567" {
		t.Fatalf("unexpected raw count %q", raw)
	}
	if err := ValidateTokenFormat("pretty"); !errors.Is(err, ErrUnknownTokenFormat) {
		t.Fatalf("expected ErrUnknownTokenFormat, got %v", err)
	}
}

func TestNilEncoderCounter(t *testing.T) {
	if _, err := (openAICounter{}).CountString("x"); !errors.Is(err, errNilEncoder) {
		t.Fatalf("expected errNilEncoder, got %v", err)
	}
}

func TestBuildTokenMap(t *testing.T) {
	files := []types.FileEntry{
		{Path: "src/main.go", TokenCount: 600},
		{Path: "src/util/strings.go", TokenCount: 300},
		{Path: "README.md", TokenCount: 100},
	}
	entries := BuildTokenMap(files, 10, 0)
	expected := []struct {
		path        string
		tokens      int
		depth       int
		isDirectory bool
	}{
		{path: "src", tokens: 900, depth: 0, isDirectory: true},
		{path: "src/main.go", tokens: 600, depth: 1},
		{path: "src/util", tokens: 300, depth: 1, isDirectory: true},
		{path: "src/util/strings.go", tokens: 300, depth: 2},
		{path: "README.md", tokens: 100, depth: 0},
	}
	if len(entries) != len(expected) {
		t.Fatalf("expected %d entries, got %+v", len(expected), entries)
	}
	for index, expectation := range expected {
		entry := entries[index]
		if entry.Path != expectation.path || entry.Tokens != expectation.tokens || entry.Depth != expectation.depth || entry.IsDirectory != expectation.isDirectory {
			t.Fatalf("entry %d: expected %+v, got %+v", index, expectation, entry)
		}
	}
	if entries[0].Percentage < 89.99 || entries[0].Percentage > 90.01 {
		t.Fatalf("expected 90%%, got %v", entries[0].Percentage)
	}

	rendered := RenderTokenMap(entries, types.TokenFormatRaw)
	if !strings.Contains(rendered, "├── src/") || !strings.Contains(rendered, "│   └── util/") || !strings.Contains(rendered, "└── README.md") {
		t.Fatalf("unexpected rendering:\n%s", rendered)
	}
}

func TestBuildTokenMapSummarizesHiddenFiles(t *testing.T) {
	files := []types.FileEntry{
		{Path: "a.go", TokenCount: 900},
		{Path: "b.go", TokenCount: 50},
		{Path: "c.go", TokenCount: 50},
	}
	entries := BuildTokenMap(files, 1, 0)
	if len(entries) != 2 {
		t.Fatalf("expected one entry plus summary, got %+v", entries)
	}
	if entries[0].Path != "a.go" || entries[1].Path != otherFilesLabel || entries[1].Tokens != 100 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if BuildTokenMap(nil, 0, 0) != nil {
		t.Fatalf("expected nil map for no files")
	}
}
