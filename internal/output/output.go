// Package output serializes rendered prompts and delivers them to stdout, files and the clipboard.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/codeprompt/internal/services/clipboard"
	"github.com/temirov/codeprompt/internal/tokenizer"
	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	outputFilePermissions = 0o644

	summaryLineFormat      = "Token count: %s, Model info: %s\n"
	tokenMapHeader         = "Token map:\n"
	unknownFormatFormat    = "%w: %q (expected markdown, xml or json)"
	writeOutputErrorFormat = "write prompt to %s: %w"
	serializeErrorFormat   = "serialize prompt: %w"
	stdoutErrorFormat      = "write prompt to stdout: %w"

	promptWrittenLogMessage = "prompt written"
	promptCopiedLogMessage  = "prompt copied to clipboard"
	partialPromptLogMessage = "prompt is partial; the run was interrupted before all files were read"
	clipboardFailLogMessage = "clipboard copy failed"
	logFieldOutputFile      = "output_file"
)

// ErrUnknownFormat reports an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Options selects where and how a prompt is delivered.
type Options struct {
	Format     string
	OutputFile string
	Clipboard  bool

	TokenFormat string
	// TokenMap prints the per-file token distribution to stderr.
	TokenMap               bool
	TokenMapLines          int
	TokenMapMinimumPercent float64
}

// ValidateFormat accepts the empty string, which means markdown.
func ValidateFormat(format string) error {
	switch format {
	case "", types.FormatMarkdown, types.FormatXML, types.FormatJSON:
		return nil
	default:
		return fmt.Errorf(unknownFormatFormat, ErrUnknownFormat, format)
	}
}

// Serialize returns the prompt text, or the indented JSON document for the json format.
func Serialize(rendered types.RenderedPrompt, format string) (string, error) {
	if format != types.FormatJSON {
		return rendered.Prompt, nil
	}
	if rendered.Files == nil {
		rendered.Files = []types.PromptFile{}
	}
	encoded, encodeError := json.MarshalIndent(rendered, indentPrefix, indentSpacer)
	if encodeError != nil {
		return "", fmt.Errorf(serializeErrorFormat, encodeError)
	}
	return string(encoded), nil
}

// Writer delivers serialized prompts.
type Writer struct {
	stdout io.Writer
	stderr io.Writer
	copier clipboard.Copier
	logger *zap.Logger
}

// NewWriter binds the output streams and clipboard. A nil copier disables clipboard delivery.
func NewWriter(stdout io.Writer, stderr io.Writer, copier clipboard.Copier, logger *zap.Logger) *Writer {
	return &Writer{stdout: stdout, stderr: stderr, copier: copier, logger: utils.LoggerOrNop(logger)}
}

// Deliver writes the prompt to the output file and the clipboard when requested,
// and to stdout when neither is requested or the format is json. The token
// summary and optional token map go to stderr for text formats.
func (writer *Writer) Deliver(rendered types.RenderedPrompt, files []types.FileEntry, options Options) error {
	payload, serializeError := Serialize(rendered, options.Format)
	if serializeError != nil {
		return serializeError
	}
	if rendered.Partial {
		writer.logger.Warn(partialPromptLogMessage)
	}

	if options.OutputFile != "" {
		if err := os.WriteFile(options.OutputFile, []byte(payload), outputFilePermissions); err != nil {
			return fmt.Errorf(writeOutputErrorFormat, options.OutputFile, err)
		}
		writer.logger.Info(promptWrittenLogMessage, zap.String(logFieldOutputFile, options.OutputFile))
	}

	var clipboardError error
	if options.Clipboard && writer.copier != nil {
		clipboardError = writer.copier.Copy(payload)
		if clipboardError != nil {
			writer.logger.Warn(clipboardFailLogMessage, zap.Error(clipboardError))
		} else {
			writer.logger.Info(promptCopiedLogMessage)
		}
	}

	toStdout := options.Format == types.FormatJSON && options.OutputFile == ""
	if options.OutputFile == "" && !options.Clipboard {
		toStdout = true
	}
	if toStdout {
		if _, err := fmt.Fprintln(writer.stdout, payload); err != nil {
			return fmt.Errorf(stdoutErrorFormat, err)
		}
	}

	if options.Format != types.FormatJSON {
		writer.writeSummary(rendered, files, options)
	}
	return clipboardError
}

func (writer *Writer) writeSummary(rendered types.RenderedPrompt, files []types.FileEntry, options Options) {
	if writer.stderr == nil {
		return
	}
	if rendered.ModelInfo != "" {
		fmt.Fprintf(writer.stderr, summaryLineFormat, tokenizer.FormatCount(rendered.TokenCount, options.TokenFormat), rendered.ModelInfo)
	}
	if !options.TokenMap {
		return
	}
	minimumPercent := options.TokenMapMinimumPercent
	if minimumPercent <= 0 {
		minimumPercent = tokenizer.DefaultTokenMapMinimumPercent
	}
	entries := tokenizer.BuildTokenMap(files, options.TokenMapLines, minimumPercent)
	if len(entries) == 0 {
		return
	}
	fmt.Fprint(writer.stderr, tokenMapHeader)
	fmt.Fprint(writer.stderr, tokenizer.RenderTokenMap(entries, options.TokenFormat))
}
