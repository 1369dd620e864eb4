package stages

import (
	"context"
	"fmt"
	"time"

	"cityguardian/llm"
	"cityguardian/models"
)

// Verifier asks the completion service to approve or reject a routing decision.
type Verifier struct {
	guard guard[models.VerificationResult]
}

func NewVerifier(client llm.Client, timeout time.Duration) *Verifier {
	return &Verifier{
		guard: guard[models.VerificationResult]{
			stage:   StageVerification,
			client:  client,
			timeout: timeout,
			decode:  jsonDecoder(validateVerification),
		},
	}
}

// Verify never fails: on any error it rejects with zero confidence.
func (v *Verifier) Verify(ctx context.Context, complaint, category string, dept models.Department, reason string) models.VerificationResult {
	prompt := fmt.Sprintf(verificationPrompt, complaint, category, departmentLabel(dept), reason)
	return v.guard.run(ctx, prompt, models.VerificationResult{Approve: false, Confidence: 0})
}

func validateVerification(v *models.VerificationResult) error {
	if v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", v.Confidence)
	}
	return nil
}
