// Package template renders assembled contexts into prompt text with Handlebars templates.
package template

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aymerick/raymond"

	"github.com/temirov/codeprompt/internal/types"
)

// Data keys exposed to every template.
const (
	KeyAbsoluteCodePath = "absolute_code_path"
	KeySourceTree       = "source_tree"
	KeyFiles            = "files"
	KeyGitDiff          = "git_diff"
	KeyGitDiffBranch    = "git_diff_branch"
	KeyGitLogBranch     = "git_log_branch"

	KeyFilePath       = "path"
	KeyFileExtension  = "extension"
	KeyFileCode       = "code"
	KeyFileTokenCount = "token_count"
)

const (
	builtinDirectory      = "builtin/"
	builtinExtension      = ".hbs"
	parseErrorFormat      = "%w: parse %s: %v"
	renderErrorFormat     = "%w: %s: %v"
	unknownBuiltinFormat  = "%w: %q (expected one of %s)"
	resolveVariableFormat = "resolve template variable %s: %w"
)

var (
	// ErrInvalidTemplate reports a template that fails to parse.
	ErrInvalidTemplate = errors.New("invalid template")
	// ErrRender reports a template execution failure.
	ErrRender = errors.New("template render failed")
	// ErrUnknownBuiltin reports a request for a built-in template that does not exist.
	ErrUnknownBuiltin = errors.New("unknown built-in template")
)

//go:embed builtin/*.hbs
var builtinTemplates embed.FS

// VariableResolver supplies a value for a template variable the caller did not provide.
type VariableResolver func(name string) (string, error)

// Renderer executes one parsed template.
type Renderer struct {
	name      string
	text      string
	template  *raymond.Template
	variables []string
}

// NewRenderer parses text under name. Templates use Handlebars syntax
// ({{path}}, {{#each files}}, {{#if git_diff}}). Values are never HTML escaped.
func NewRenderer(name string, text string) (*Renderer, error) {
	parsed, parseError := raymond.Parse(text)
	if parseError != nil {
		return nil, fmt.Errorf(parseErrorFormat, ErrInvalidTemplate, name, parseError)
	}
	variables, variablesError := UndefinedVariables(text)
	if variablesError != nil {
		return nil, fmt.Errorf(parseErrorFormat, ErrInvalidTemplate, name, variablesError)
	}
	return &Renderer{name: name, text: text, template: parsed, variables: variables}, nil
}

// NewBuiltinRenderer returns the renderer for a built-in template.
func NewBuiltinRenderer(name string) (*Renderer, error) {
	text, builtinError := Builtin(name)
	if builtinError != nil {
		return nil, builtinError
	}
	return NewRenderer(name, text)
}

// IsBuiltin reports whether name is a built-in template.
func IsBuiltin(name string) bool {
	_, readError := builtinTemplates.ReadFile(builtinDirectory + name + builtinExtension)
	return readError == nil
}

// Builtin returns the built-in template text. The empty name selects markdown.
func Builtin(name string) (string, error) {
	if name == "" {
		name = types.FormatMarkdown
	}
	data, readError := builtinTemplates.ReadFile(builtinDirectory + name + builtinExtension)
	if readError != nil {
		return "", fmt.Errorf(unknownBuiltinFormat, ErrUnknownBuiltin, name, strings.Join(BuiltinNames(), ", "))
	}
	return string(data), nil
}

// BuiltinNames lists the built-in template names in lexical order.
func BuiltinNames() []string {
	entries, _ := builtinTemplates.ReadDir(strings.TrimSuffix(builtinDirectory, "/"))
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, strings.TrimSuffix(entry.Name(), builtinExtension))
	}
	sort.Strings(names)
	return names
}

// Name returns the template name.
func (renderer *Renderer) Name() string {
	return renderer.name
}

// Text returns the unparsed template source.
func (renderer *Renderer) Text() string {
	return renderer.text
}

// Variables returns the user variables the template references.
func (renderer *Renderer) Variables() []string {
	return append([]string(nil), renderer.variables...)
}

// Render executes the template and trims surrounding whitespace from the result.
// Missing keys render as empty text.
func (renderer *Renderer) Render(data map[string]any) (string, error) {
	rendered, executeError := renderer.template.Exec(data)
	if executeError != nil {
		return "", fmt.Errorf(renderErrorFormat, ErrRender, renderer.name, executeError)
	}
	return strings.TrimSpace(rendered), nil
}

// ResolveVariables returns provided extended with a value for every name that
// provided lacks. A nil resolver leaves missing variables empty.
func ResolveVariables(names []string, provided map[string]string, resolver VariableResolver) (map[string]string, error) {
	resolved := make(map[string]string, len(provided))
	for name, value := range provided {
		resolved[name] = value
	}
	for _, name := range names {
		if _, present := resolved[name]; present {
			continue
		}
		if resolver == nil {
			resolved[name] = ""
			continue
		}
		value, resolveError := resolver(name)
		if resolveError != nil {
			return nil, fmt.Errorf(resolveVariableFormat, name, resolveError)
		}
		resolved[name] = value
	}
	return resolved, nil
}

// Data converts an assembled context into template data. User variables are
// placed at the top level and never shadow built-in keys. Text values are
// marked safe so Handlebars does not escape code.
func Data(assembled types.Context) map[string]any {
	files := make([]map[string]any, 0, len(assembled.Files))
	for _, file := range assembled.Files {
		files = append(files, map[string]any{
			KeyFilePath:       raymond.SafeString(file.Path),
			KeyFileExtension:  raymond.SafeString(file.Extension),
			KeyFileCode:       raymond.SafeString(file.Content),
			KeyFileTokenCount: file.TokenCount,
		})
	}
	data := make(map[string]any, len(assembled.Variables)+6)
	for name, value := range assembled.Variables {
		data[name] = raymond.SafeString(value)
	}
	data[KeyAbsoluteCodePath] = raymond.SafeString(assembled.AbsoluteRootPath)
	data[KeySourceTree] = raymond.SafeString(assembled.SourceTree)
	data[KeyFiles] = files
	data[KeyGitDiff] = raymond.SafeString(assembled.GitDiff)
	data[KeyGitDiffBranch] = raymond.SafeString(assembled.GitDiffBranch)
	data[KeyGitLogBranch] = raymond.SafeString(assembled.GitLogBranch)
	return data
}
