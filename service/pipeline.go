package service

import (
	"context"
	"time"

	"cityguardian/config"
	"cityguardian/directory"
	"cityguardian/email"
	"cityguardian/llm"
	"cityguardian/metrics"
	"cityguardian/models"
	"cityguardian/stages"
	"cityguardian/workflow"

	"github.com/apex/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Response statuses.
const (
	StatusSuccess      = "success"
	StatusManualReview = "manual_review"
	StatusError        = "error"
)

// ManualReviewReason replaces the routing reason when verification holds a complaint back.
const ManualReviewReason = "Verification did not confirm routing, manual review required"

// Options configures dispatch and verification.
type Options struct {
	FromAddress      string
	FromName         string
	LLMTimeout       time.Duration
	EmailTimeout     time.Duration
	VerificationMode string
	MinConfidence    float64
	Now              func() time.Time
	NewID            func() string
}

// Pipeline turns one complaint into a routed, drafted and delivered email.
// It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	dir        *directory.Directory
	classifier *stages.Classifier
	keywords   *stages.KeywordRouter
	router     *stages.Router
	verifier   *stages.Verifier
	drafter    *stages.Drafter
	sender     email.Sender
	notifier   *workflow.Dispatcher
	opts       Options
}

func NewPipeline(client llm.Client, dir *directory.Directory, sender email.Sender, notifier *workflow.Dispatcher, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewReportID
	}
	if opts.VerificationMode == "" {
		opts.VerificationMode = config.VerificationOff
	}
	if notifier == nil {
		notifier = workflow.NewDispatcher(0)
	}

	return &Pipeline{
		dir:        dir,
		classifier: stages.NewClassifier(client, opts.LLMTimeout),
		keywords:   stages.NewKeywordRouter(dir),
		router:     stages.NewRouter(client, dir, opts.LLMTimeout),
		verifier:   stages.NewVerifier(client, opts.LLMTimeout),
		drafter:    stages.NewDrafter(client, opts.LLMTimeout),
		sender:     sender,
		notifier:   notifier,
		opts:       opts,
	}
}

// NewReportID returns an 8-character token.
func NewReportID() string {
	return uuid.New().String()[:8]
}

// Process runs the full pipeline. Classification, routing and verification
// degrade to fallbacks; drafting and delivery failures are returned as *PipelineError.
func (p *Pipeline) Process(ctx context.Context, c models.Complaint) (*models.SendReportResponse, error) {
	metrics.ReportsInFlight.Inc()
	defer metrics.ReportsInFlight.Dec()
	start := time.Now()
	defer func() { metrics.ReportDurationSeconds.Observe(time.Since(start).Seconds()) }()

	reportID := p.opts.NewID()
	logger := log.WithField("report_id", reportID)

	var (
		cls   models.Classification
		match models.KeywordMatch
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cls = p.classifier.Classify(gctx, c.Description)
		return nil
	})
	g.Go(func() error {
		match = p.keywords.Match(c.Description)
		return nil
	})
	// Neither goroutine fails; both fall back internally.
	g.Wait()

	p.notifier.NotifyAsync(models.DispatchRecord{
		ID:       reportID,
		Date:     p.opts.Now().Format(models.DispatchDateLayout),
		Name:     c.Name,
		Email:    c.Email,
		Issue:    c.Description,
		Category: cls.Category,
		Urgency:  cls.Urgency,
		Location: c.Coordinates(),
	})

	informational := p.keywords.Describe(match)
	location := c.LocationText()
	decision := p.router.Route(ctx, cls.Category, location)
	status := StatusSuccess

	logger.WithFields(log.Fields{
		"category":       cls.Category,
		"urgency":        cls.Urgency,
		"keyword_dept":   informational.Name,
		"keyword_score":  match.Score,
		"routed_email":   decision.Email,
		"routing_reason": decision.Reason,
	}).Info("Complaint routed")

	var verification *models.VerificationResult
	if p.opts.VerificationMode != config.VerificationOff {
		v := p.verify(ctx, c, cls, decision)
		verification = &v
		if p.opts.VerificationMode == config.VerificationGate && !p.confirmed(v) {
			def := p.dir.Default()
			decision = models.RoutingDecision{Name: def.Name, Email: def.Email, Reason: ManualReviewReason}
			status = StatusManualReview
			logger.Warnf("Routing held for manual review (approve=%t confidence=%.2f)", v.Approve, v.Confidence)
		}
	}

	if !p.dir.IsDispatchable(decision.Email) {
		logger.Errorf("Refusing to dispatch to %q, using fallback", decision.Email)
		decision = p.router.Fallback()
	}

	drafted, err := p.drafter.Draft(ctx, stages.DraftInput{
		CitizenName:  c.Name,
		CitizenEmail: c.Email,
		Complaint:    c.Description,
		Location:     location,
		Category:     cls.Category,
		Urgency:      cls.Urgency,
	})
	if err != nil {
		metrics.ReportsTotal.WithLabelValues(StageDrafting).Inc()
		return nil, &PipelineError{Stage: StageDrafting, ReportID: reportID, Err: err}
	}

	if err := p.deliver(ctx, c, decision, drafted); err != nil {
		metrics.ReportsTotal.WithLabelValues(StageDelivery).Inc()
		return nil, &PipelineError{Stage: StageDelivery, ReportID: reportID, Err: err}
	}
	metrics.ReportsTotal.WithLabelValues(status).Inc()

	return &models.SendReportResponse{
		Status:           status,
		ID:               reportID,
		Department:       informational.Name,
		Urgency:          cls.Urgency,
		RoutedEmail:      decision.Email,
		RoutedDepartment: decision.Name,
		KeywordScore:     match.Score,
		Verification:     verification,
	}, nil
}

func (p *Pipeline) verify(ctx context.Context, c models.Complaint, cls models.Classification, d models.RoutingDecision) models.VerificationResult {
	dept, ok := p.dir.Lookup(d.Email)
	if !ok {
		dept = p.dir.Default()
	}
	v := p.verifier.Verify(ctx, c.Description, cls.Category, dept, d.Reason)
	if !v.Approve {
		metrics.VerificationRejectedTotal.Inc()
	}
	return v
}

func (p *Pipeline) confirmed(v models.VerificationResult) bool {
	return v.Approve && v.Confidence >= p.opts.MinConfidence
}

func (p *Pipeline) deliver(ctx context.Context, c models.Complaint, d models.RoutingDecision, drafted models.DraftedEmail) error {
	if p.opts.EmailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.EmailTimeout)
		defer cancel()
	}

	msg := email.Message{
		FromAddress: p.opts.FromAddress,
		FromName:    p.opts.FromName,
		To:          d.Email,
		Subject:     drafted.Subject,
		Text:        drafted.Body,
		HTML:        email.BuildHTML(drafted.Body),
	}
	if c.HasImage() {
		msg.Attachments = []email.Attachment{email.NewAttachment(c.Image, c.ImageType)}
	}

	if err := p.sender.Send(ctx, msg); err != nil {
		metrics.DispatchTotal.WithLabelValues(d.Name, metrics.OutcomeError).Inc()
		return err
	}
	metrics.DispatchTotal.WithLabelValues(d.Name, metrics.OutcomeOK).Inc()
	metrics.LastDispatchSeconds.Set(metrics.NowUnixSeconds())
	return nil
}
