// Package content reads selected files and formats them for prompt assembly.
package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/codeprompt/internal/types"
	"github.com/temirov/codeprompt/internal/utils"
)

const (
	skippedFileLogMessage    = "skipping file"
	tokenCountLogMessage     = "failed to count tokens"
	collectedFilesLogMessage = "collected files"
)

// TokenCounter counts tokens in formatted file content.
type TokenCounter interface {
	CountString(input string) (int, error)
}

// Options controls formatting and concurrency of content collection.
type Options struct {
	LineNumbers   bool
	NoCodeblock   bool
	AbsolutePaths bool
	SortMethod    string
	// Concurrency bounds parallel reads; zero uses GOMAXPROCS.
	Concurrency int
	// TokenCounter, when set, fills FileEntry.TokenCount.
	TokenCounter TokenCounter
}

// Collector turns candidates into file entries.
type Collector struct {
	options Options
	logger  *zap.Logger
}

type readOutcome struct {
	entry   *types.FileEntry
	skipped *types.SkippedPath
}

// NewCollector builds a collector with the given options.
func NewCollector(options Options, logger *zap.Logger) *Collector {
	if options.Concurrency <= 0 {
		options.Concurrency = runtime.GOMAXPROCS(0)
	}
	return &Collector{options: options, logger: utils.LoggerOrNop(logger)}
}

// Collect reads every candidate in parallel and returns entries in candidate
// order, after the configured sort. When ctx is cancelled no new reads start
// and the entries completed so far are returned together with ctx.Err().
func (collector *Collector) Collect(ctx context.Context, candidates []types.FileCandidate) ([]types.FileEntry, []types.SkippedPath, error) {
	outcomes := make([]readOutcome, len(candidates))

	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(collector.options.Concurrency)
	for index := range candidates {
		if groupContext.Err() != nil {
			break
		}
		candidateIndex := index
		group.Go(func() error {
			if err := groupContext.Err(); err != nil {
				return err
			}
			outcomes[candidateIndex] = collector.read(candidates[candidateIndex])
			return nil
		})
	}
	waitError := group.Wait()
	if waitError == nil {
		waitError = ctx.Err()
	}

	entries := make([]types.FileEntry, 0, len(candidates))
	var skipped []types.SkippedPath
	var totalBytes int64
	for index, outcome := range outcomes {
		if outcome.entry != nil {
			entries = append(entries, *outcome.entry)
			totalBytes += candidates[index].Size
		}
		if outcome.skipped != nil {
			skipped = append(skipped, *outcome.skipped)
		}
	}
	SortEntries(entries, collector.options.SortMethod)

	collector.logger.Debug(collectedFilesLogMessage,
		zap.Int(utils.LogFieldCount, len(entries)),
		zap.String(utils.LogFieldSize, utils.FormatByteSize(totalBytes)),
	)
	return entries, skipped, waitError
}

func (collector *Collector) read(candidate types.FileCandidate) readOutcome {
	data, readError := os.ReadFile(candidate.AbsolutePath)
	if readError != nil {
		reason := types.SkipReadFailed
		if errors.Is(readError, fs.ErrPermission) {
			reason = types.SkipPermissionDenied
		}
		return collector.skip(candidate, reason, readError)
	}

	if utils.IsBinaryFile(data) {
		return collector.skip(candidate, types.SkipBinaryFile, nil)
	}

	text := string(utils.StripByteOrderMark(data))
	entry := &types.FileEntry{
		Path:      collector.displayPath(candidate),
		Extension: candidate.Extension,
		Content:   WrapCodeBlock(text, LanguageForExtension(candidate.Extension), collector.options.LineNumbers, collector.options.NoCodeblock),
		ModTime:   candidate.ModTime,
	}
	if collector.options.TokenCounter != nil {
		tokenCount, countError := collector.options.TokenCounter.CountString(entry.Content)
		if countError != nil {
			collector.logger.Warn(tokenCountLogMessage, zap.String(utils.LogFieldPath, candidate.RelativePath), zap.Error(countError))
		} else {
			entry.TokenCount = tokenCount
		}
	}
	return readOutcome{entry: entry}
}

func (collector *Collector) skip(candidate types.FileCandidate, reason types.SkipReason, cause error) readOutcome {
	skipped := &types.SkippedPath{Path: candidate.RelativePath, Reason: reason}
	fields := []zap.Field{zap.String(utils.LogFieldPath, candidate.RelativePath), zap.String(utils.LogFieldReason, string(reason))}
	if cause != nil {
		skipped.Message = cause.Error()
		fields = append(fields, zap.Error(cause))
	}
	if reason == types.SkipBinaryFile {
		collector.logger.Debug(skippedFileLogMessage, fields...)
	} else {
		collector.logger.Warn(skippedFileLogMessage, fields...)
	}
	return readOutcome{skipped: skipped}
}

func (collector *Collector) displayPath(candidate types.FileCandidate) string {
	if collector.options.AbsolutePaths {
		return candidate.AbsolutePath
	}
	return candidate.RelativePath
}
