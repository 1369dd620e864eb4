package directory

import "cityguardian/models"

// DefaultEmail is the built-in General Grievance Cell address.
const DefaultEmail = "grievance@civic.example.org"

// BuiltinDepartments are the departments served when no external directory is configured.
// Multi-word keywords never match the single-word tokens of the keyword router.
func BuiltinDepartments() []models.Department {
	return []models.Department{
		{
			Name:     "Water Supply Department",
			Email:    "water.supply@civic.example.org",
			Keywords: []string{"water", "leak", "pipe", "no water", "dirty water", "tanker"},
		},
		{
			Name:     "Sewage & Drainage Department",
			Email:    "sewage.drainage@civic.example.org",
			Keywords: []string{"sewage", "drain", "gutter", "overflow", "blocked", "smell"},
		},
		{
			Name:     "Roads & Traffic Department",
			Email:    "roads.traffic@civic.example.org",
			Keywords: []string{"road", "pothole", "traffic", "signal", "accident"},
		},
		{
			Name:     "Electricity Department",
			Email:    "electricity@civic.example.org",
			Keywords: []string{"street light", "power cut", "wire", "pole", "shock"},
		},
	}
}

// Builtin returns the built-in directory with the given default address.
func Builtin(defaultEmail string) (*Directory, error) {
	if defaultEmail == "" {
		defaultEmail = DefaultEmail
	}
	return New(BuiltinDepartments(), defaultEmail)
}
