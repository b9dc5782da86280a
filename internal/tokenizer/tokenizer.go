package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkoukk/tiktoken-go"

	"github.com/temirov/codeprompt/internal/types"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	ModelInfo() string
	CountString(input string) (int, error)
}

// Encoding describes one supported tokenizer encoding.
type Encoding struct {
	Name          string
	tiktokenName  string
	modelInfoText string
}

// ModelInfo identifies the model family that uses the encoding.
func (encoding Encoding) ModelInfo() string {
	return encoding.modelInfoText
}

const (
	// DefaultEncodingName is used when no encoding is configured.
	DefaultEncodingName = "cl100k"

	unknownEncodingErrorFormat    = "%w: %q (expected one of %s)"
	initializeEncodingErrorFormat = "initialize %s tokenizer: %w"
	unknownTokenFormatErrorFormat = "%w: %q (expected raw or format)"
)

var (
	// ErrUnknownEncoding reports an unsupported encoding name.
	ErrUnknownEncoding = errors.New("unknown tokenizer encoding")
	// ErrUnknownTokenFormat reports an unsupported token count format.
	ErrUnknownTokenFormat = errors.New("unknown token format")
)

var supportedEncodings = []Encoding{
	{Name: "o200k", tiktokenName: "o200k_base", modelInfoText: "OpenAI models, ChatGPT-4o"},
	{Name: "cl100k", tiktokenName: "cl100k_base", modelInfoText: "ChatGPT models, text-embedding-ada-002"},
	{Name: "p50k", tiktokenName: "p50k_base", modelInfoText: "Code models, text-davinci-002, text-davinci-003"},
	{Name: "p50k_edit", tiktokenName: "p50k_edit", modelInfoText: "Edit models like text-davinci-edit-001, code-davinci-edit-001"},
	{Name: "r50k", tiktokenName: "r50k_base", modelInfoText: "GPT-3 models like davinci"},
	{Name: "gpt2", tiktokenName: "r50k_base", modelInfoText: "GPT-3 models like davinci"},
}

// ResolveEncoding validates an encoding name without loading its vocabulary.
// The empty name resolves to DefaultEncodingName.
func ResolveEncoding(name string) (Encoding, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		normalized = DefaultEncodingName
	}
	names := make([]string, 0, len(supportedEncodings))
	for _, encoding := range supportedEncodings {
		if encoding.Name == normalized {
			return encoding, nil
		}
		names = append(names, encoding.Name)
	}
	return Encoding{}, fmt.Errorf(unknownEncodingErrorFormat, ErrUnknownEncoding, name, strings.Join(names, ", "))
}

// NewCounter returns a Counter for the named encoding.
func NewCounter(name string) (Counter, error) {
	encoding, resolveError := ResolveEncoding(name)
	if resolveError != nil {
		return nil, resolveError
	}
	bpe, loadError := tiktoken.GetEncoding(encoding.tiktokenName)
	if loadError != nil {
		return nil, fmt.Errorf(initializeEncodingErrorFormat, encoding.Name, loadError)
	}
	return openAICounter{encoding: bpe, name: encoding.Name, modelInfo: encoding.modelInfoText}, nil
}

// Count tokenizes text with the named encoding and returns the count with the model description.
func Count(text string, encodingName string) (int, string, error) {
	counter, counterError := NewCounter(encodingName)
	if counterError != nil {
		return 0, "", counterError
	}
	tokenCount, countError := counter.CountString(text)
	if countError != nil {
		return 0, "", countError
	}
	return tokenCount, counter.ModelInfo(), nil
}

// ValidateTokenFormat accepts the empty string, which means raw.
func ValidateTokenFormat(format string) error {
	switch format {
	case "", types.TokenFormatRaw, types.TokenFormatFormatted:
		return nil
	default:
		return fmt.Errorf(unknownTokenFormatErrorFormat, ErrUnknownTokenFormat, format)
	}
}

// FormatCount renders count as plain digits or with thousands separators.
func FormatCount(count int, format string) string {
	if format == types.TokenFormatFormatted {
		return humanize.Comma(int64(count))
	}
	return fmt.Sprintf("%d", count)
}
