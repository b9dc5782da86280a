package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/temirov/codeprompt/internal/output"
	"github.com/temirov/codeprompt/internal/types"
)

type recordingCopier struct {
	copied []string
	err    error
}

func (copier *recordingCopier) Copy(text string) error {
	copier.copied = append(copier.copied, text)
	return copier.err
}

func samplePrompt() types.RenderedPrompt {
	content := "```go\npackage main\n```"
	return types.RenderedPrompt{
		Prompt:        "Project Path: /work/project",
		DirectoryName: "project",
		TokenCount:    1234,
		ModelInfo:     "ChatGPT models, text-embedding-ada-002",
		Files:         []types.PromptFile{{Path: "main.go", Content: &content}},
	}
}

// jsonExpected defines the expected JSON rendering of samplePrompt.
const jsonExpected = "{\n" +
	"  \"prompt\": \"Project Path: /work/project\",\n" +
	"  \"directory_name\": \"project\",\n" +
	"  \"token_count\": 1234,\n" +
	"  \"model_info\": \"ChatGPT models, text-embedding-ada-002\",\n" +
	"  \"files\": [\n" +
	"    {\n" +
	"      \"path\": \"main.go\",\n" +
	"      \"content\": \"```go\\npackage main\\n```\"\n" +
	"    }\n" +
	"  ]\n" +
	"}"

// TestSerializeJSON verifies the JSON document shape.
func TestSerializeJSON(testingInstance *testing.T) {
	serialized, err := output.Serialize(samplePrompt(), types.FormatJSON)
	if err != nil {
		testingInstance.Fatalf("Serialize error: %v", err)
	}
	if serialized != jsonExpected {
		testingInstance.Fatalf("unexpected JSON:\n%s", serialized)
	}
}

// TestSerializeJSONPartialAndEmptyFiles verifies the partial flag and an empty files array.
func TestSerializeJSONPartialAndEmptyFiles(testingInstance *testing.T) {
	serialized, err := output.Serialize(types.RenderedPrompt{Prompt: "p", Partial: true}, types.FormatJSON)
	if err != nil {
		testingInstance.Fatalf("Serialize error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(serialized), &decoded); err != nil {
		testingInstance.Fatalf("invalid JSON: %v", err)
	}
	if decoded["partial"] != true {
		testingInstance.Fatalf("expected partial flag, got %v", decoded["partial"])
	}
	if files, ok := decoded["files"].([]any); !ok || len(files) != 0 {
		testingInstance.Fatalf("expected empty files array, got %v", decoded["files"])
	}
}

// TestSerializeText verifies markdown and xml pass the prompt through.
func TestSerializeText(testingInstance *testing.T) {
	for _, format := range []string{types.FormatMarkdown, types.FormatXML, ""} {
		serialized, err := output.Serialize(samplePrompt(), format)
		if err != nil || serialized != "Project Path: /work/project" {
			testingInstance.Fatalf("format %q: unexpected %q (%v)", format, serialized, err)
		}
	}
	if err := output.ValidateFormat("yaml"); !errors.Is(err, output.ErrUnknownFormat) {
		testingInstance.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

// TestDeliverDefaultsToStdout verifies stdout delivery and the stderr summary.
func TestDeliverDefaultsToStdout(testingInstance *testing.T) {
	var stdout, stderr bytes.Buffer
	writer := output.NewWriter(&stdout, &stderr, nil, nil)
	if err := writer.Deliver(samplePrompt(), nil, output.Options{Format: types.FormatMarkdown, TokenFormat: types.TokenFormatFormatted}); err != nil {
		testingInstance.Fatalf("Deliver error: %v", err)
	}
	if stdout.String() != "Project Path: /work/project\n" {
		testingInstance.Fatalf("unexpected stdout %q", stdout.String())
	}
	if stderr.String() != "Token count: 1,234, Model info: ChatGPT models, text-embedding-ada-002\n" {
		testingInstance.Fatalf("unexpected stderr %q", stderr.String())
	}
}

// TestDeliverToFileAndClipboard verifies that explicit destinations replace stdout.
func TestDeliverToFileAndClipboard(testingInstance *testing.T) {
	var stdout bytes.Buffer
	copier := &recordingCopier{}
	outputFile := filepath.Join(testingInstance.TempDir(), "prompt.md")
	writer := output.NewWriter(&stdout, nil, copier, nil)
	if err := writer.Deliver(samplePrompt(), nil, output.Options{OutputFile: outputFile, Clipboard: true}); err != nil {
		testingInstance.Fatalf("Deliver error: %v", err)
	}
	written, err := os.ReadFile(outputFile)
	if err != nil {
		testingInstance.Fatalf("read output: %v", err)
	}
	if string(written) != "Project Path: /work/project" {
		testingInstance.Fatalf("unexpected file content %q", written)
	}
	if len(copier.copied) != 1 || copier.copied[0] != "Project Path: /work/project" {
		testingInstance.Fatalf("unexpected clipboard content %v", copier.copied)
	}
	if stdout.Len() != 0 {
		testingInstance.Fatalf("expected no stdout output, got %q", stdout.String())
	}
}

// TestDeliverSurfacesClipboardFailure verifies the clipboard error is returned after other outputs.
func TestDeliverSurfacesClipboardFailure(testingInstance *testing.T) {
	var stdout bytes.Buffer
	failure := errors.New("no display")
	writer := output.NewWriter(&stdout, nil, &recordingCopier{err: failure}, nil)
	err := writer.Deliver(samplePrompt(), nil, output.Options{Format: types.FormatJSON, Clipboard: true})
	if !errors.Is(err, failure) {
		testingInstance.Fatalf("expected clipboard failure, got %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "{\n") {
		testingInstance.Fatalf("expected JSON on stdout, got %q", stdout.String())
	}
}

// TestDeliverTokenMap verifies the token map is printed to stderr.
func TestDeliverTokenMap(testingInstance *testing.T) {
	var stdout, stderr bytes.Buffer
	files := []types.FileEntry{{Path: "src/a.go", TokenCount: 75}, {Path: "b.go", TokenCount: 25}}
	writer := output.NewWriter(&stdout, &stderr, nil, nil)
	if err := writer.Deliver(types.RenderedPrompt{Prompt: "p"}, files, output.Options{TokenMap: true}); err != nil {
		testingInstance.Fatalf("Deliver error: %v", err)
	}
	rendered := stderr.String()
	if !strings.HasPrefix(rendered, "Token map:\n") || !strings.Contains(rendered, "src/") || !strings.Contains(rendered, "b.go") {
		testingInstance.Fatalf("unexpected token map:\n%s", rendered)
	}
}
