package main_test

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const (
	integrationBinaryBaseName = "codeprompt_integration_test_binary"
	gitignoreFileName         = ".gitignore"
	visibleFileName           = "visible.txt"
	visibleFileContent        = "visible content\n"
	ignoredFileName           = "ignored.log"
	hiddenDirectoryName       = ".secrets"
	hiddenFileName            = "token.txt"
	sourceDirectoryName       = "src"
	sourceFileName            = "main.go"
	sourceFileContent         = "package main\n\nfunc main() {}\n"
)

type promptDocument struct {
	Prompt        string `json:"prompt"`
	DirectoryName string `json:"directory_name"`
	Files         []struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	} `json:"files"`
}

// buildBinary compiles the codeprompt binary and returns its path.
func buildBinary(testingHandle *testing.T) string {
	testingHandle.Helper()
	if testing.Short() {
		testingHandle.Skip("integration test builds the binary")
	}
	if _, lookupError := exec.LookPath("go"); lookupError != nil {
		testingHandle.Skip("go toolchain not available")
	}

	binaryName := integrationBinaryBaseName
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	binaryPath := filepath.Join(testingHandle.TempDir(), binaryName)

	buildCommand := exec.Command("go", "build", "-o", binaryPath, ".")
	combinedOutput, buildError := buildCommand.CombinedOutput()
	if buildError != nil {
		testingHandle.Fatalf("build failed: %v\n%s", buildError, string(combinedOutput))
	}
	return binaryPath
}

// runCommand executes the binary with arguments and returns stdout.
func runCommand(testingHandle *testing.T, binaryPath string, arguments []string, workingDirectory string) string {
	testingHandle.Helper()

	command := exec.Command(binaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+testingHandle.TempDir())

	var stdoutBuffer, stderrBuffer bytes.Buffer
	command.Stdout = &stdoutBuffer
	command.Stderr = &stderrBuffer

	if runError := command.Run(); runError != nil {
		testingHandle.Fatalf("command failed: %v\nstdout:\n%s\nstderr:\n%s", runError, stdoutBuffer.String(), stderrBuffer.String())
	}
	if stderrBuffer.Len() > 0 {
		testingHandle.Logf("stderr:\n%s", stderrBuffer.String())
	}
	return stdoutBuffer.String()
}

// runCommandExpectError runs the binary expecting a failure and returns combined output.
func runCommandExpectError(testingHandle *testing.T, binaryPath string, arguments []string, workingDirectory string) string {
	testingHandle.Helper()

	command := exec.Command(binaryPath, arguments...)
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+testingHandle.TempDir())

	var buffer bytes.Buffer
	command.Stdout = &buffer
	command.Stderr = &buffer

	runError := command.Run()
	if runError == nil {
		testingHandle.Fatalf("command succeeded unexpectedly\noutput:\n%s", buffer.String())
	}
	return buffer.String()
}

// setupTestDirectory creates a temporary directory populated with the provided layout.
func setupTestDirectory(testingHandle *testing.T, layout map[string]string) string {
	testingHandle.Helper()
	root := testingHandle.TempDir()
	for relativePath, content := range layout {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			testingHandle.Fatalf("create %s: %v", relativePath, err)
		}
		if err := os.WriteFile(absolutePath, []byte(content), 0o644); err != nil {
			testingHandle.Fatalf("write %s: %v", relativePath, err)
		}
	}
	return root
}

func decodeDocument(testingHandle *testing.T, data string) promptDocument {
	testingHandle.Helper()
	var document promptDocument
	if err := json.Unmarshal([]byte(data), &document); err != nil {
		testingHandle.Fatalf("decode output: %v\n%s", err, data)
	}
	return document
}

func documentPaths(document promptDocument) []string {
	paths := make([]string, 0, len(document.Files))
	for _, file := range document.Files {
		paths = append(paths, file.Path)
	}
	return paths
}

// TestCodeprompt verifies the codeprompt binary across the main selection scenarios.
func TestCodeprompt(testingHandle *testing.T) {
	binary := buildBinary(testingHandle)
	root := setupTestDirectory(testingHandle, map[string]string{
		gitignoreFileName:                          "*.log\n",
		visibleFileName:                            visibleFileContent,
		ignoredFileName:                            "noise\n",
		hiddenDirectoryName + "/" + hiddenFileName: "secret\n",
		sourceDirectoryName + "/" + sourceFileName: sourceFileContent,
		sourceDirectoryName + "/main_test.go":      "package main\n",
	})

	testCases := []struct {
		name          string
		arguments     []string
		expectedPaths []string
	}{
		{
			name:          "defaults_respect_ignore_and_hidden",
			arguments:     []string{"-F", "json", "."},
			expectedPaths: []string{"src/main.go", "src/main_test.go", "visible.txt"},
		},
		{
			name:          "hidden_and_no_ignore",
			arguments:     []string{"-F", "json", "--hidden", "--no-ignore", "."},
			expectedPaths: []string{".gitignore", ".secrets/token.txt", "ignored.log", "src/main.go", "src/main_test.go", "visible.txt"},
		},
		{
			name:          "include_with_exclude",
			arguments:     []string{"-F", "json", "-i", "*.go", "-e", "*_test.go", "."},
			expectedPaths: []string{"src/main.go"},
		},
		{
			name:          "include_priority_keeps_overlap",
			arguments:     []string{"-F", "json", "-i", "*.go", "-e", "*_test.go", "--include-priority", "."},
			expectedPaths: []string{"src/main.go", "src/main_test.go"},
		},
	}

	for _, testCase := range testCases {
		testingHandle.Run(testCase.name, func(testingHandle *testing.T) {
			document := decodeDocument(testingHandle, runCommand(testingHandle, binary, testCase.arguments, root))
			paths := documentPaths(document)
			if strings.Join(paths, ",") != strings.Join(testCase.expectedPaths, ",") {
				testingHandle.Fatalf("expected %v, got %v", testCase.expectedPaths, paths)
			}
			if document.DirectoryName != filepath.Base(root) {
				testingHandle.Fatalf("unexpected directory name %q", document.DirectoryName)
			}
		})
	}

	testingHandle.Run("markdown_line_numbers", func(testingHandle *testing.T) {
		prompt := runCommand(testingHandle, binary, []string{"-i", "src/main.go", "--line-numbers", "."}, root)
		if !strings.Contains(prompt, "```go\n   1 | package main") {
			testingHandle.Fatalf("expected numbered go block:\n%s", prompt)
		}
		if !strings.Contains(prompt, "visible.txt") {
			testingHandle.Fatalf("expected the tree to list unselected files:\n%s", prompt)
		}
	})

	testingHandle.Run("missing_path_fails", func(testingHandle *testing.T) {
		output := runCommandExpectError(testingHandle, binary, []string{filepath.Join(root, "missing")}, root)
		if !strings.Contains(output, "path does not exist") {
			testingHandle.Fatalf("expected missing path error, got:\n%s", output)
		}
	})

	testingHandle.Run("mixed_modes_fail", func(testingHandle *testing.T) {
		runCommandExpectError(testingHandle, binary, []string{"-i", "*.go", "--include-extensions", "go", "."}, root)
	})
}
