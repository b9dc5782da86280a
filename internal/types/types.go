// Package types defines every cross‑package data structure used by the codeprompt CLI.
package types

import "time"

const (
	FormatMarkdown = "markdown"
	FormatXML      = "xml"
	FormatJSON     = "json"

	SortNameAscending  = "name_asc"
	SortNameDescending = "name_desc"
	SortDateAscending  = "date_asc"
	SortDateDescending = "date_desc"
	SortNatural        = "natural"

	TokenFormatRaw       = "raw"
	TokenFormatFormatted = "format"
)

// Criterion names the attribute of a path that a pattern is matched against.
type Criterion int

const (
	CriterionExtension Criterion = iota
	CriterionFilename
	CriterionFolder
	CriterionGenericPath
)

// String returns the configuration name of the criterion.
func (criterion Criterion) String() string {
	switch criterion {
	case CriterionExtension:
		return "extension"
	case CriterionFilename:
		return "filename"
	case CriterionFolder:
		return "folder"
	case CriterionGenericPath:
		return "path"
	default:
		return "unknown"
	}
}

// DecisionReason explains why a candidate was included or excluded.
type DecisionReason int

const (
	ReasonDefaultInclude DecisionReason = iota
	ReasonWhitelistMatch
	ReasonBlacklistMatch
	ReasonExplicitTreeExclude
	ReasonNotWhitelisted
)

// String returns a stable label for logs.
func (reason DecisionReason) String() string {
	switch reason {
	case ReasonDefaultInclude:
		return "default_include"
	case ReasonWhitelistMatch:
		return "whitelist_match"
	case ReasonBlacklistMatch:
		return "blacklist_match"
	case ReasonExplicitTreeExclude:
		return "explicit_tree_exclude"
	case ReasonNotWhitelisted:
		return "not_whitelisted"
	default:
		return "unknown"
	}
}

// SkipReason classifies a recoverable per-item failure.
type SkipReason string

const (
	SkipPermissionDenied  SkipReason = "permission_denied"
	SkipBrokenSymlink     SkipReason = "broken_symlink"
	SkipSymlinkCycle      SkipReason = "symlink_cycle"
	SkipBinaryFile        SkipReason = "binary_file_skipped"
	SkipReadFailed        SkipReason = "read_failed"
	SkipDirectoryReadFail SkipReason = "directory_read_failed"
)

// FileCandidate is one filesystem entry yielded by the traverser.
type FileCandidate struct {
	AbsolutePath string
	RelativePath string
	Extension    string
	IsHidden     bool
	IsSymlink    bool
	IsDir        bool
	Size         int64
	ModTime      time.Time
}

// Name returns the final path segment of the candidate.
func (candidate FileCandidate) Name() string {
	for index := len(candidate.RelativePath) - 1; index >= 0; index-- {
		if candidate.RelativePath[index] == '/' {
			return candidate.RelativePath[index+1:]
		}
	}
	return candidate.RelativePath
}

// SelectionDecision is the immutable verdict for one candidate.
type SelectionDecision struct {
	IncludeContent bool
	IncludeInTree  bool
	Reason         DecisionReason
	Criterion      Criterion
}

// SkippedPath records a path that could not be processed along with the reason.
type SkippedPath struct {
	Path    string     `json:"path"`
	Reason  SkipReason `json:"reason"`
	Message string     `json:"message,omitempty"`
}

// FileEntry is the collected, formatted content of one selected file.
type FileEntry struct {
	Path       string    `json:"path"`
	Extension  string    `json:"extension"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count,omitempty"`
	ModTime    time.Time `json:"-"`
}

// Context is the assembled, renderer-ready result of one ingestion run.
type Context struct {
	AbsoluteRootPath string
	DirectoryName    string
	SourceTree       string
	Files            []FileEntry
	Skipped          []SkippedPath
	GitDiff          string
	GitDiffBranch    string
	GitLogBranch     string
	Variables        map[string]string
	Partial          bool
}

// PromptFile is the serialized representation of a file in the JSON output.
type PromptFile struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

// RenderedPrompt is the final output shape handed to writers.
type RenderedPrompt struct {
	Prompt        string       `json:"prompt"`
	DirectoryName string       `json:"directory_name"`
	TokenCount    int          `json:"token_count"`
	ModelInfo     string       `json:"model_info"`
	Files         []PromptFile `json:"files"`
	Partial       bool         `json:"partial,omitempty"`
}
