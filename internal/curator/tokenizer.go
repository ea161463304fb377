package curator

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures text the way the downstream research model will.
// The budget invariant (digest tokens ≤ plan max tokens) is only meaningful
// against a real tokenizer, so the production counter is BPE-backed;
// character-count approximations are not acceptable here.
type TokenCounter interface {
	Count(text string) (int, error)
}

type tiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter returns a counter for the given encoding
// (e.g. "cl100k_base" or "o200k_base").
func NewTokenCounter(encodingName string) (TokenCounter, error) {
	if encodingName == "" {
		encodingName = "o200k_base"
	}
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer encoding %s: %w", encodingName, err)
	}
	return &tiktokenCounter{encoding: enc}, nil
}

func (c *tiktokenCounter) Count(text string) (int, error) {
	return len(c.encoding.Encode(text, nil, nil)), nil
}
