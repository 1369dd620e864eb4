// Package directory holds the municipal department registry used for routing.
//
// A Directory is built once at startup and never modified afterwards; it is
// safe to share between requests without locking.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"cityguardian/models"
)

// GeneralGrievanceCell is the department that receives complaints no
// specialised department could be resolved for.
const GeneralGrievanceCell = "General Grievance Cell"

var ErrEmptyDirectory = errors.New("directory has no departments")

// Directory is an immutable set of departments plus the derived allow-list.
type Directory struct {
	departments []models.Department
	byEmail     map[string]int
	fallback    models.Department
}

// New validates departments and builds a directory around them.
// defaultEmail is the address of the General Grievance Cell.
func New(departments []models.Department, defaultEmail string) (*Directory, error) {
	if len(departments) == 0 {
		return nil, ErrEmptyDirectory
	}
	defaultEmail = strings.TrimSpace(defaultEmail)
	if defaultEmail == "" {
		return nil, errors.New("default department email is required")
	}

	d := &Directory{
		departments: make([]models.Department, 0, len(departments)),
		byEmail:     make(map[string]int, len(departments)),
		fallback:    models.Department{Name: GeneralGrievanceCell, Email: defaultEmail},
	}

	for i, dept := range departments {
		name := strings.TrimSpace(dept.Name)
		email := strings.TrimSpace(dept.Email)
		if name == "" {
			return nil, fmt.Errorf("department %d: name is required", i)
		}
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("department %q: invalid email %q", name, dept.Email)
		}
		key := normalize(email)
		if _, dup := d.byEmail[key]; dup {
			return nil, fmt.Errorf("department %q: email %s is already assigned", name, email)
		}

		keywords := make([]string, 0, len(dept.Keywords))
		for _, kw := range dept.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}

		d.byEmail[key] = len(d.departments)
		d.departments = append(d.departments, models.Department{Name: name, Email: email, Keywords: keywords})
	}

	return d, nil
}

// Departments returns a copy of the departments in registration order.
func (d *Directory) Departments() []models.Department {
	out := make([]models.Department, len(d.departments))
	for i, dept := range d.departments {
		dept.Keywords = append([]string(nil), dept.Keywords...)
		out[i] = dept
	}
	return out
}

// AllowList returns the sorted set of department addresses.
func (d *Directory) AllowList() []string {
	out := make([]string, 0, len(d.departments))
	for _, dept := range d.departments {
		out = append(out, dept.Email)
	}
	sort.Strings(out)
	return out
}

// IsAllowed reports whether email belongs to a department. Comparison ignores case
// and surrounding whitespace.
func (d *Directory) IsAllowed(email string) bool {
	_, ok := d.byEmail[normalize(email)]
	return ok
}

// Lookup returns the department owning email.
func (d *Directory) Lookup(email string) (models.Department, bool) {
	i, ok := d.byEmail[normalize(email)]
	if !ok {
		return models.Department{}, false
	}
	return d.departments[i], true
}

// Default returns the General Grievance Cell.
func (d *Directory) Default() models.Department {
	return d.fallback
}

// IsDispatchable reports whether email is in the allow-list or is the default address.
func (d *Directory) IsDispatchable(email string) bool {
	return d.IsAllowed(email) || normalize(email) == normalize(d.fallback.Email)
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
