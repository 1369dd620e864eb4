package stages

import (
	"fmt"
	"strings"

	"cityguardian/models"
)

const classificationPrompt = `Classify the civic complaint.

Complaint:
%s

Respond ONLY in JSON:
{"category": "...", "urgency": "low|medium|high"}
`

const routingPrompt = `You are an AI routing agent for municipal complaints.

Complaint category: %s
Location: %s

Available departments (USE ONLY THESE):
%s
Pick exactly one department from the list and copy its name and email unchanged.

Respond ONLY in JSON:
{"name": "...", "email": "...", "reason": "..."}
`

const verificationPrompt = `Verify this routing decision.

Complaint:
%s

Category:
%s

Chosen Department:
%s

Reason:
%s

Respond ONLY in JSON:
{"approve": true|false, "confidence": 0-1}
`

const draftingPrompt = `You are an AI assistant writing official municipal emails.

Write a detailed, professional civic complaint email.

Rules:
- Minimum 3 paragraphs
- Formal tone
- Explain the problem clearly
- Mention public inconvenience
- Mention urgency politely
- End with a request for timely action

Citizen Name: %s
Citizen Email: %s

Complaint Category: %s
Urgency Level: %s

Complaint Description:
%s

Location:
%s
`

// departmentList renders one line per department for the routing prompt.
func departmentList(departments []models.Department) string {
	var b strings.Builder
	for _, d := range departments {
		fmt.Fprintf(&b, "- name: %s | email: %s | keywords: %s\n", d.Name, d.Email, strings.Join(d.Keywords, ", "))
	}
	return b.String()
}

func departmentLabel(d models.Department) string {
	return fmt.Sprintf("%s <%s>", d.Name, d.Email)
}
