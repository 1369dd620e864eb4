package models

// DispatchRecord is the summary sent to the workflow collaborator.
// Keys match the columns of the intake workflow.
type DispatchRecord struct {
	ID       string `json:"ID"`
	Date     string `json:"Date"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Issue    string `json:"issue"`
	Category string `json:"category"`
	Urgency  string `json:"urgency"`
	Location string `json:"location"`
}

// DispatchDateLayout is the layout of DispatchRecord.Date
const DispatchDateLayout = "2006-01-02 15:04"

// SendReportResponse is returned to the citizen on success
type SendReportResponse struct {
	Status           string              `json:"status"`
	ID               string              `json:"id"`
	Department       string              `json:"department"`
	Urgency          string              `json:"urgency"`
	RoutedEmail      string              `json:"routed_email"`
	RoutedDepartment string              `json:"routed_department"`
	KeywordScore     int                 `json:"keyword_score"`
	Verification     *VerificationResult `json:"verification,omitempty"`
}
