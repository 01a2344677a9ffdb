package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = bluemonday.UGCPolicy()
	plainPolicy = bluemonday.StrictPolicy()
)

// SanitizeRich keeps safe formatting tags. Used for forum and post descriptions.
func SanitizeRich(input string) string {
	return strings.TrimSpace(richPolicy.Sanitize(input))
}

// SanitizePlain strips every tag. Used for titles, comments and chat messages.
func SanitizePlain(input string) string {
	return strings.TrimSpace(plainPolicy.Sanitize(input))
}
