package content

import "strings"

// languageByExtension maps file extensions to code-fence language labels.
// Unlisted extensions are used verbatim.
var languageByExtension = map[string]string{
	"bash":       "bash",
	"c":          "c",
	"cc":         "cpp",
	"cpp":        "cpp",
	"cs":         "csharp",
	"css":        "css",
	"dart":       "dart",
	"dockerfile": "dockerfile",
	"ex":         "elixir",
	"exs":        "elixir",
	"go":         "go",
	"h":          "c",
	"hpp":        "cpp",
	"hs":         "haskell",
	"htm":        "html",
	"html":       "html",
	"java":       "java",
	"js":         "javascript",
	"json":       "json",
	"jsx":        "jsx",
	"kt":         "kotlin",
	"kts":        "kotlin",
	"lua":        "lua",
	"md":         "markdown",
	"mjs":        "javascript",
	"php":        "php",
	"pl":         "perl",
	"proto":      "protobuf",
	"py":         "python",
	"rb":         "ruby",
	"rs":         "rust",
	"scala":      "scala",
	"sh":         "bash",
	"sql":        "sql",
	"swift":      "swift",
	"tf":         "hcl",
	"toml":       "toml",
	"ts":         "typescript",
	"tsx":        "tsx",
	"xml":        "xml",
	"yaml":       "yaml",
	"yml":        "yaml",
	"zig":        "zig",
	"zsh":        "bash",
}

// LanguageForExtension returns the fence label for an extension without its dot.
func LanguageForExtension(extension string) string {
	lowered := strings.ToLower(extension)
	if language, found := languageByExtension[lowered]; found {
		return language
	}
	return extension
}
