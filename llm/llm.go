package llm

import "context"

// Client abstracts the completion service used by the pipeline stages.
// Implementations must be concurrency-safe; stages call them from request goroutines.
type Client interface {
	// Complete sends a single user-role prompt and returns the text of the first completion.
	Complete(ctx context.Context, prompt string) (string, error)
	// SourceName returns a short provider label for logs and metrics (e.g., "ChatGPT", "Gemini").
	SourceName() string
}
