package models

// Urgency levels accepted from the classification stage
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// ValidUrgency reports whether u is one of low, medium or high
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Classification is the category and urgency assigned to a complaint
type Classification struct {
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
}

// Department is a municipal unit that can receive complaints
type Department struct {
	Name     string   `json:"name" yaml:"name"`
	Email    string   `json:"email" yaml:"email"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// RoutingDecision is the department a complaint is dispatched to
type RoutingDecision struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// KeywordMatch is the informational result of keyword scoring
type KeywordMatch struct {
	Department *Department `json:"-"`
	Score      int         `json:"score"`
}

// Matched reports whether any department keyword was found
func (m KeywordMatch) Matched() bool {
	return m.Department != nil && m.Score > 0
}

// VerificationResult is the verdict on a routing decision
type VerificationResult struct {
	Approve    bool    `json:"approve"`
	Confidence float64 `json:"confidence"`
}

// DraftedEmail is the notification sent to the department
type DraftedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
