package stages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cityguardian/directory"
	"cityguardian/llm"
	"cityguardian/models"
)

// FallbackRoutingReason is the reason attached to the General Grievance Cell fallback.
const FallbackRoutingReason = "AI routing failed, fallback applied"

// ErrAddressNotAllowed is returned when the completion names an address outside the directory.
var ErrAddressNotAllowed = errors.New("routed address is not in the department allow-list")

// Router asks the completion service to choose a department from the directory.
// Every decision it returns is addressed to a directory department or to the
// General Grievance Cell.
type Router struct {
	dir   *directory.Directory
	guard guard[models.RoutingDecision]
}

func NewRouter(client llm.Client, dir *directory.Directory, timeout time.Duration) *Router {
	r := &Router{dir: dir}
	r.guard = guard[models.RoutingDecision]{
		stage:   StageRouting,
		client:  client,
		timeout: timeout,
		decode:  jsonDecoder(r.validate),
	}
	return r
}

// Route resolves the department for category at location ("Latitude X, Longitude Y").
func (r *Router) Route(ctx context.Context, category, location string) models.RoutingDecision {
	prompt := fmt.Sprintf(routingPrompt, category, location, departmentList(r.dir.Departments()))
	return r.guard.run(ctx, prompt, r.Fallback())
}

// Fallback is the decision used whenever AI routing cannot be trusted.
func (r *Router) Fallback() models.RoutingDecision {
	def := r.dir.Default()
	return models.RoutingDecision{
		Name:   def.Name,
		Email:  def.Email,
		Reason: FallbackRoutingReason,
	}
}

// validate enforces the allow-list and replaces name and address with the
// directory's own record.
func (r *Router) validate(d *models.RoutingDecision) error {
	dept, ok := r.dir.Lookup(d.Email)
	if !ok {
		return fmt.Errorf("%w: %q", ErrAddressNotAllowed, d.Email)
	}
	d.Name = dept.Name
	d.Email = dept.Email
	d.Reason = strings.TrimSpace(d.Reason)
	return nil
}
