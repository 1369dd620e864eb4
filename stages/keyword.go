package stages

import (
	"fmt"
	"regexp"
	"strings"

	"cityguardian/directory"
	"cityguardian/models"
)

var wordRe = regexp.MustCompile(`\b[a-z]+\b`)

// KeywordRouter scores complaints against department keywords. It does no I/O.
type KeywordRouter struct {
	dir         *directory.Directory
	departments []models.Department
}

func NewKeywordRouter(dir *directory.Directory) *KeywordRouter {
	return &KeywordRouter{dir: dir, departments: dir.Departments()}
}

// Match returns the department with the most keywords present as whole words.
// Ties go to the department registered first.
func (k *KeywordRouter) Match(complaint string) models.KeywordMatch {
	tokens := tokenize(complaint)

	var best *models.Department
	score := 0
	for i := range k.departments {
		s := 0
		for _, kw := range k.departments[i].Keywords {
			if _, ok := tokens[kw]; ok {
				s++
			}
		}
		if s > score {
			dept := k.departments[i]
			best, score = &dept, s
		}
	}

	return models.KeywordMatch{Department: best, Score: score}
}

// Describe turns a match into the informational decision reported to the citizen.
func (k *KeywordRouter) Describe(m models.KeywordMatch) models.RoutingDecision {
	if m.Matched() {
		return models.RoutingDecision{
			Name:   m.Department.Name,
			Email:  m.Department.Email,
			Reason: fmt.Sprintf("Matched %d keywords", m.Score),
		}
	}
	def := k.dir.Default()
	return models.RoutingDecision{
		Name:   def.Name,
		Email:  def.Email,
		Reason: "No strong keyword match",
	}
}

func tokenize(text string) map[string]struct{} {
	words := wordRe.FindAllString(strings.ToLower(text), -1)
	tokens := make(map[string]struct{}, len(words))
	for _, w := range words {
		tokens[w] = struct{}{}
	}
	return tokens
}
