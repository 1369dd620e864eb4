package stubllm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Client is a deterministic, no-network completion stub for CI and local end-to-end runs.
// It recognises each pipeline prompt and answers with schema-valid output.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

var (
	departmentLineRe = regexp.MustCompile(`(?m)^- name: (.+?) \| email: (\S+) \| keywords: (.*)$`)
	categoryRe       = regexp.MustCompile(`(?m)^Complaint category: (.*)$`)
	citizenRe        = regexp.MustCompile(`(?m)^Citizen Name: (.*)$`)
)

var categoryHints = []struct {
	words    []string
	category string
}{
	{[]string{"water", "pipe", "leak", "supply"}, "water supply"},
	{[]string{"sewage", "drain", "drainage", "overflow", "gutter"}, "sewage"},
	{[]string{"pothole", "road", "traffic", "signal"}, "roads"},
	{[]string{"electricity", "power", "streetlight", "light", "wire", "outage"}, "electricity"},
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch {
	case strings.HasPrefix(prompt, "Classify the civic complaint."):
		return c.classify(prompt)
	case strings.HasPrefix(prompt, "You are an AI routing agent"):
		return c.route(prompt)
	case strings.HasPrefix(prompt, "Verify this routing decision."):
		return marshal(map[string]any{"approve": true, "confidence": 0.9})
	case strings.HasPrefix(prompt, "You are an AI assistant writing official municipal emails."):
		return c.draft(prompt), nil
	}
	return "", fmt.Errorf("stub: unrecognised prompt")
}

func (c *Client) classify(prompt string) (string, error) {
	text := strings.ToLower(prompt)
	if i := strings.Index(text, "respond only in json"); i >= 0 {
		text = text[:i]
	}
	category := "general"
	for _, h := range categoryHints {
		if containsAny(text, h.words) {
			category = h.category
			break
		}
	}
	urgency := "medium"
	if containsAny(text, []string{"urgent", "danger", "accident", "flood", "fire"}) {
		urgency = "high"
	}
	return marshal(map[string]any{"category": category, "urgency": urgency})
}

// route picks the first department whose name or keywords mention the category,
// and the first listed department otherwise.
func (c *Client) route(prompt string) (string, error) {
	lines := departmentLineRe.FindAllStringSubmatch(prompt, -1)
	if len(lines) == 0 {
		return "", fmt.Errorf("stub: no departments in routing prompt")
	}

	category := ""
	if m := categoryRe.FindStringSubmatch(prompt); m != nil {
		category = strings.ToLower(strings.TrimSpace(m[1]))
	}

	chosen := lines[0]
	for _, l := range lines {
		haystack := strings.ToLower(l[1] + " " + l[3])
		if category != "" && containsAny(haystack, strings.Fields(category)) {
			chosen = l
			break
		}
	}

	return marshal(map[string]any{
		"name":   chosen[1],
		"email":  chosen[2],
		"reason": fmt.Sprintf("Stub routing for category %q", category),
	})
}

func (c *Client) draft(prompt string) string {
	name := "Citizen"
	if m := citizenRe.FindStringSubmatch(prompt); m != nil && strings.TrimSpace(m[1]) != "" {
		name = strings.TrimSpace(m[1])
	}
	return fmt.Sprintf("Dear Sir/Madam,\n\nThis is a stubbed civic complaint submitted on behalf of %s.\n\n"+
		"The issue causes public inconvenience and requires attention.\n\n"+
		"Kindly take timely action.\n\nRegards,\n%s", name, name)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
