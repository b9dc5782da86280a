package tokenizer

import (
	"errors"

	"github.com/pkoukk/tiktoken-go"
)

var errNilEncoder = errors.New("nil tiktoken encoder")

type openAICounter struct {
	encoding  *tiktoken.Tiktoken
	name      string
	modelInfo string
}

func (counter openAICounter) Name() string {
	return counter.name
}

func (counter openAICounter) ModelInfo() string {
	return counter.modelInfo
}

// CountString treats special-token text as ordinary text so arbitrary source never fails to encode.
func (counter openAICounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errNilEncoder
	}
	tokenIDs := counter.encoding.EncodeOrdinary(input)
	return len(tokenIDs), nil
}
