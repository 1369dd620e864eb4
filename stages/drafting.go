package stages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cityguardian/llm"
	"cityguardian/metrics"
	"cityguardian/models"
)

// DraftSubject is the subject of every complaint email.
const DraftSubject = "Civic Complaint Report (AI Routed)"

// DraftInput is what the drafting prompt is built from.
type DraftInput struct {
	CitizenName  string
	CitizenEmail string
	Complaint    string
	Location     string
	Category     string
	Urgency      string
}

// Drafter writes the formal complaint email. It has no fallback.
type Drafter struct {
	guard guard[string]
}

func NewDrafter(client llm.Client, timeout time.Duration) *Drafter {
	return &Drafter{
		guard: guard[string]{
			stage:   StageDrafting,
			client:  client,
			timeout: timeout,
			decode: func(raw string) (string, error) {
				if strings.TrimSpace(raw) == "" {
					return "", ErrEmptyCompletion
				}
				return raw, nil
			},
		},
	}
}

// Draft returns the generated body verbatim.
func (d *Drafter) Draft(ctx context.Context, in DraftInput) (models.DraftedEmail, error) {
	prompt := fmt.Sprintf(draftingPrompt,
		in.CitizenName, in.CitizenEmail, in.Category, in.Urgency, in.Complaint, in.Location)

	body, err := d.guard.call(ctx, prompt)
	if err != nil {
		metrics.StageOutcomeTotal.WithLabelValues(StageDrafting, metrics.OutcomeError).Inc()
		return models.DraftedEmail{}, fmt.Errorf("drafting failed: %w", err)
	}
	metrics.StageOutcomeTotal.WithLabelValues(StageDrafting, metrics.OutcomeOK).Inc()

	return models.DraftedEmail{Subject: DraftSubject, Body: body}, nil
}
