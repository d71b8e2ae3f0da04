package translate

import (
	"regexp"
	"strings"
)

// Marker literals of the backend prompt format. Defined once and shared
// between prompt assembly, stop defaults, and output sanitization.
const (
	instOpen  = "[INST]"
	instClose = "[/INST]"
	sysOpen   = "<<SYS>>"
	sysClose  = "<</SYS>>"
	endOfText = "</s>"
)

// emptyFallback is returned by Sanitize when nothing survives stripping;
// clients must never receive an empty content field.
const emptyFallback = "Empty response"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

var strippedMarkers = []string{instClose, instOpen, sysOpen, sysClose, endOfText}

// DefaultStop returns the backend sentinel stop strings used when the
// client supplies none (or supplies something that is not a string list).
func DefaultStop() []string {
	return []string{instOpen, endOfText}
}

// Wrap applies the role-specific instruction markup to one message.
// Unknown roles pass through unwrapped.
func Wrap(role, content string) string {
	switch role {
	case "system":
		return instOpen + sysOpen + content + sysClose + instClose
	case "user":
		return instOpen + content + instClose
	default:
		return content
	}
}

// Sanitize cleans backend markup out of a plain-text answer: angle-bracket
// tags go first, then the literal instruction markers, then blank lines are
// collapsed. The result is never empty.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)
	text = tagPattern.ReplaceAllString(text, "")
	for _, marker := range strippedMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	cleaned := strings.Join(lines, "\n")
	if cleaned == "" {
		return emptyFallback
	}
	return cleaned
}
