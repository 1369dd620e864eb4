package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cityguardian/llm"
	"cityguardian/models"
)

// Fallback classification used whenever the completion cannot be trusted.
const (
	FallbackCategory = "general"
	FallbackUrgency  = models.UrgencyMedium
)

// Classifier assigns a category and urgency to complaint text.
type Classifier struct {
	guard guard[models.Classification]
}

func NewClassifier(client llm.Client, timeout time.Duration) *Classifier {
	return &Classifier{
		guard: guard[models.Classification]{
			stage:   StageClassification,
			client:  client,
			timeout: timeout,
			decode:  jsonDecoder(validateClassification),
		},
	}
}

// Classify never fails: on any error it returns {general, medium}.
func (c *Classifier) Classify(ctx context.Context, complaint string) models.Classification {
	return c.guard.run(ctx, fmt.Sprintf(classificationPrompt, complaint), FallbackClassification())
}

func FallbackClassification() models.Classification {
	return models.Classification{Category: FallbackCategory, Urgency: FallbackUrgency}
}

func validateClassification(c *models.Classification) error {
	c.Category = strings.TrimSpace(c.Category)
	c.Urgency = strings.ToLower(strings.TrimSpace(c.Urgency))
	if c.Category == "" {
		return fmt.Errorf("classification has no category")
	}
	if !models.ValidUrgency(c.Urgency) {
		return fmt.Errorf("invalid urgency %q", c.Urgency)
	}
	return nil
}
