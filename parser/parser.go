package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrMalformedResponse is returned when a completion does not carry a usable JSON object.
var ErrMalformedResponse = errors.New("malformed completion response")

const fence = "```"

// ExtractJSONFromMarkdown extracts JSON from markdown code blocks
func ExtractJSONFromMarkdown(response string) string {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, fence)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx < startIdx {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	// Find the end of the first code block
	endIdx := strings.Index(response[startIdx+len(fence):], fence)
	if endIdx == -1 {
		// Unterminated fence, drop the opening marker only
		return stripLanguageTag(response[startIdx+len(fence):])
	}
	endIdx += startIdx + len(fence)

	return stripLanguageTag(response[startIdx+len(fence) : endIdx])
}

// languageTagRe matches a fence language identifier such as "json".
var languageTagRe = regexp.MustCompile(`^[A-Za-z0-9_+-]+`)

// stripLanguageTag removes a language identifier after the opening fence. The tag may
// end in a newline, a space or the JSON itself.
func stripLanguageTag(content string) string {
	content = strings.TrimSpace(content)
	if tag := languageTagRe.FindString(content); tag != "" {
		rest := strings.TrimSpace(content[len(tag):])
		if rest == "" || strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
			return rest
		}
	}
	return content
}

// ExtractJSON returns the JSON object text carried by a completion.
func ExtractJSON(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	content := ExtractJSONFromMarkdown(raw)
	if content == "" {
		return "", fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if !strings.HasPrefix(content, "{") {
		return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	if !json.Valid([]byte(content)) {
		return "", fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	return content, nil
}

// Decode parses the JSON object carried by a completion into v.
func Decode(raw string, v any) error {
	content, err := ExtractJSON(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(content), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
