package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxRoomMessageLength    = 1000
	MaxReplyLength          = 1000
	MaxSessionMessageLength = 4000
)

// NormalizeContent trims body and checks it holds 1..max runes.
func NormalizeContent(body string, max int) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if n := utf8.RuneCountInString(body); n > max {
		return "", fmt.Errorf("%w: message cannot exceed %d characters", ErrValidation, max)
	}
	return body, nil
}

// Preview shortens content for session listings.
func Preview(content string, max int) string {
	if max <= 0 || utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max]) + "…"
}
