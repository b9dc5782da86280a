package content

import (
	"fmt"
	"strings"
)

const (
	lineNumberFormat   = "%4d | %s"
	newline            = "\n"
	fenceCharacter     = "`"
	minimumFenceLength = 3
)

// NumberLines prefixes every line with its right-aligned, one-based number.
// Each line keeps its original terminator, so CRLF input stays CRLF.
func NumberLines(code string) string {
	if code == "" {
		return code
	}
	var builder strings.Builder
	builder.Grow(len(code) + len(code)/8)
	lineNumber := 0
	for _, line := range strings.SplitAfter(code, newline) {
		if line == "" {
			continue
		}
		lineNumber++
		fmt.Fprintf(&builder, lineNumberFormat, lineNumber, line)
	}
	return builder.String()
}

// WrapCodeBlock applies optional numbering and then the fenced block labeled with language.
func WrapCodeBlock(code string, language string, lineNumbers bool, noCodeblock bool) string {
	if lineNumbers {
		code = NumberLines(code)
	}
	if noCodeblock {
		return code
	}
	fence := strings.Repeat(fenceCharacter, fenceLength(code))
	return fence + language + newline + code + newline + fence
}

// fenceLength picks a fence longer than any backtick run inside code.
func fenceLength(code string) int {
	longestRun, currentRun := 0, 0
	for index := 0; index < len(code); index++ {
		if code[index] == fenceCharacter[0] {
			currentRun++
			if currentRun > longestRun {
				longestRun = currentRun
			}
			continue
		}
		currentRun = 0
	}
	if longestRun < minimumFenceLength {
		return minimumFenceLength
	}
	return longestRun + 1
}
