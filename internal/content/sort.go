package content

import (
	"errors"
	"fmt"
	"sort"

	"github.com/maruel/natural"

	"github.com/temirov/codeprompt/internal/types"
)

const unknownSortMethodErrorFormat = "%w: %q (expected one of name_asc, name_desc, date_asc, date_desc, natural)"

// ErrUnknownSortMethod reports an unsupported sort method name.
var ErrUnknownSortMethod = errors.New("unknown sort method")

// ValidateSortMethod accepts the empty string, which keeps traversal order.
func ValidateSortMethod(method string) error {
	switch method {
	case "", types.SortNameAscending, types.SortNameDescending, types.SortDateAscending, types.SortDateDescending, types.SortNatural:
		return nil
	default:
		return fmt.Errorf(unknownSortMethodErrorFormat, ErrUnknownSortMethod, method)
	}
}

// SortEntries orders entries in place. Ties keep their traversal order.
func SortEntries(entries []types.FileEntry, method string) {
	var less func(left, right types.FileEntry) bool
	switch method {
	case types.SortNameAscending:
		less = func(left, right types.FileEntry) bool { return left.Path < right.Path }
	case types.SortNameDescending:
		less = func(left, right types.FileEntry) bool { return left.Path > right.Path }
	case types.SortDateAscending:
		less = func(left, right types.FileEntry) bool { return left.ModTime.Before(right.ModTime) }
	case types.SortDateDescending:
		less = func(left, right types.FileEntry) bool { return left.ModTime.After(right.ModTime) }
	case types.SortNatural:
		less = func(left, right types.FileEntry) bool { return natural.Less(left.Path, right.Path) }
	default:
		return
	}
	sort.SliceStable(entries, func(leftIndex, rightIndex int) bool {
		return less(entries[leftIndex], entries[rightIndex])
	})
}
