// Package clipboard copies rendered prompts to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const copyErrorFormat = "copy prompt to clipboard: %w"

// ErrUnavailable reports a platform without a supported clipboard utility.
var ErrUnavailable = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct{}

// NewService constructs a clipboard service.
func NewService() *Service {
	return &Service{}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if clipboard.Unsupported {
		return ErrUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf(copyErrorFormat, err)
	}
	return nil
}

var _ Copier = (*Service)(nil)
