package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cityguardian/config"
	"cityguardian/directory"
	"cityguardian/email"
	"cityguardian/models"
	"cityguardian/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient answers each pipeline prompt by its opening line.
type scriptedClient struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	prompts []string
}

func (s *scriptedClient) SourceName() string { return "Scripted" }

func (s *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	for prefix, err := range s.errs {
		if strings.HasPrefix(prompt, prefix) {
			return "", err
		}
	}
	for prefix, reply := range s.replies {
		if strings.HasPrefix(prompt, prefix) {
			return reply, nil
		}
	}
	return "", errors.New("unscripted prompt")
}

func (s *scriptedClient) promptWith(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if strings.HasPrefix(p, prefix) {
			return p
		}
	}
	return ""
}

const (
	classifyPrefix = "Classify the civic complaint."
	routePrefix    = "You are an AI routing agent"
	verifyPrefix   = "Verify this routing decision."
	draftPrefix    = "You are an AI assistant writing official municipal emails."
)

type recordingSender struct {
	messages []email.Message
	err      error
}

func (r *recordingSender) Send(ctx context.Context, msg email.Message) error {
	r.messages = append(r.messages, msg)
	return r.err
}

type recordingNotifier struct {
	mu      sync.Mutex
	records []models.DispatchRecord
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, rec models.DispatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func happyClient() *scriptedClient {
	return &scriptedClient{
		replies: map[string]string{
			classifyPrefix: `{"category": "water supply", "urgency": "high"}`,
			routePrefix:    "```json\n{\"name\": \"Water Supply Department\", \"email\": \"water.supply@civic.example.org\", \"reason\": \"pipe burst\"}\n```",
			verifyPrefix:   `{"approve": true, "confidence": 0.9}`,
			draftPrefix:    "Dear Sir/Madam,\n\nThere is a burst pipe.\n\nRegards",
		},
	}
}

type fixture struct {
	pipeline *Pipeline
	client   *scriptedClient
	sender   *recordingSender
	notifier *recordingNotifier
	dispatch *workflow.Dispatcher
}

func newFixture(t *testing.T, client *scriptedClient, opts Options) *fixture {
	t.Helper()
	dir, err := directory.Builtin(directory.DefaultEmail)
	require.NoError(t, err)

	f := &fixture{client: client, sender: &recordingSender{}, notifier: &recordingNotifier{}}
	f.dispatch = workflow.NewDispatcher(time.Second, f.notifier)

	opts.FromAddress = "no-reply@cityguardian.local"
	opts.FromName = "CityGuardian"
	opts.LLMTimeout = time.Second
	opts.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC) }
	opts.NewID = func() string { return "abcd1234" }
	f.pipeline = NewPipeline(client, dir, f.sender, f.dispatch, opts)
	return f
}

var burstPipe = models.Complaint{
	Name:        "Asha",
	Email:       "asha@example.com",
	Description: "There is a burst pipe and no water since yesterday, water tanker needed",
	Latitude:    12.9716,
	Longitude:   77,
}

func TestProcessBurstPipe(t *testing.T) {
	f := newFixture(t, happyClient(), Options{})

	resp, err := f.pipeline.Process(context.Background(), burstPipe)
	require.NoError(t, err)
	f.dispatch.Wait()

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, "abcd1234", resp.ID)
	assert.Equal(t, "Water Supply Department", resp.Department)
	assert.GreaterOrEqual(t, resp.KeywordScore, 2)
	assert.Equal(t, "high", resp.Urgency)
	assert.Equal(t, "water.supply@civic.example.org", resp.RoutedEmail)
	assert.Nil(t, resp.Verification)
	assert.Empty(t, f.client.promptWith(verifyPrefix))

	require.Len(t, f.sender.messages, 1)
	msg := f.sender.messages[0]
	assert.Equal(t, "water.supply@civic.example.org", msg.To)
	assert.Equal(t, "Civic Complaint Report (AI Routed)", msg.Subject)
	assert.Equal(t, "CityGuardian", msg.FromName)
	assert.Equal(t, "Dear Sir/Madam,<br><br>There is a burst pipe.<br><br>Regards", msg.HTML)
	assert.Empty(t, msg.Attachments)

	assert.Contains(t, f.client.promptWith(routePrefix), "Latitude 12.9716, Longitude 77.0")

	require.Len(t, f.notifier.records, 1)
	assert.Equal(t, models.DispatchRecord{
		ID:       "abcd1234",
		Date:     "2026-03-14 09:05",
		Name:     "Asha",
		Email:    "asha@example.com",
		Issue:    burstPipe.Description,
		Category: "water supply",
		Urgency:  "high",
		Location: "12.9716, 77.0",
	}, f.notifier.records[0])
}

func TestProcessStagesFallBack(t *testing.T) {
	client := &scriptedClient{
		replies: map[string]string{draftPrefix: "Formal complaint body"},
		errs: map[string]error{
			classifyPrefix: errors.New("service unavailable"),
			routePrefix:    errors.New("service unavailable"),
		},
	}
	f := newFixture(t, client, Options{})

	resp, err := f.pipeline.Process(context.Background(), models.Complaint{
		Name:        "Ravi",
		Email:       "ravi@example.com",
		Description: "Something strange happened in the park",
		Latitude:    19,
		Longitude:   72.8,
	})
	require.NoError(t, err)
	f.dispatch.Wait()

	assert.Equal(t, StatusSuccess, resp.Status)
	assert.Equal(t, directory.GeneralGrievanceCell, resp.Department)
	assert.Equal(t, directory.DefaultEmail, resp.RoutedEmail)
	assert.Equal(t, "medium", resp.Urgency)
	assert.Equal(t, 0, resp.KeywordScore)

	draft := client.promptWith(draftPrefix)
	assert.Contains(t, draft, "Complaint Category: general")
	assert.Contains(t, draft, "Urgency Level: medium")

	require.Len(t, f.sender.messages, 1)
	assert.Equal(t, directory.DefaultEmail, f.sender.messages[0].To)
}

func TestProcessDeliveryFailure(t *testing.T) {
	f := newFixture(t, happyClient(), Options{})
	f.sender.err = &email.DeliveryError{StatusCode: 500, Body: "internal error"}

	resp, err := f.pipeline.Process(context.Background(), burstPipe)
	f.dispatch.Wait()

	assert.Nil(t, resp)
	var perr *PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageDelivery, perr.Stage)
	assert.Equal(t, "abcd1234", perr.ReportID)

	var derr *email.DeliveryError
	require.True(t, errors.As(err, &derr))
	assert.Equal(t, 500, derr.StatusCode)

	assert.Len(t, f.notifier.records, 1)
}

func TestProcessDraftingFailure(t *testing.T) {
	client := happyClient()
	client.errs = map[string]error{draftPrefix: errors.New("quota exceeded")}
	f := newFixture(t, client, Options{})

	_, err := f.pipeline.Process(context.Background(), burstPipe)
	f.dispatch.Wait()

	var perr *PipelineError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, StageDrafting, perr.Stage)
	assert.Empty(t, f.sender.messages)
	assert.Len(t, f.notifier.records, 1)
}

func TestProcessAttachment(t *testing.T) {
	testCases := []struct {
		name         string
		imageType    string
		expectedType string
	}{
		{name: "Declared type", imageType: "image/png", expectedType: "image/png"},
		{name: "Missing type", imageType: "", expectedType: "image/jpeg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, happyClient(), Options{})
			complaint := burstPipe
			complaint.Image = []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
			complaint.ImageType = tc.imageType

			_, err := f.pipeline.Process(context.Background(), complaint)
			require.NoError(t, err)
			f.dispatch.Wait()

			require.Len(t, f.sender.messages, 1)
			require.Len(t, f.sender.messages[0].Attachments, 1)
			att := f.sender.messages[0].Attachments[0]
			assert.Equal(t, "complaint.jpg", att.FileName)
			assert.Equal(t, tc.expectedType, att.Type)

			decoded, err := base64.StdEncoding.DecodeString(att.Content)
			require.NoError(t, err)
			assert.Equal(t, complaint.Image, decoded)
		})
	}
}

func TestProcessVerificationModes(t *testing.T) {
	testCases := []struct {
		name           string
		mode           string
		verifyReply    string
		expectedStatus string
		expectedEmail  string
		expectVerdict  bool
	}{
		{
			name:           "Advisory rejection does not change dispatch",
			mode:           config.VerificationAdvisory,
			verifyReply:    `{"approve": false, "confidence": 0.2}`,
			expectedStatus: StatusSuccess,
			expectedEmail:  "water.supply@civic.example.org",
			expectVerdict:  true,
		}, {
			name:           "Gate approval dispatches",
			mode:           config.VerificationGate,
			verifyReply:    `{"approve": true, "confidence": 0.8}`,
			expectedStatus: StatusSuccess,
			expectedEmail:  "water.supply@civic.example.org",
			expectVerdict:  true,
		}, {
			name:           "Gate rejection goes to manual review",
			mode:           config.VerificationGate,
			verifyReply:    `{"approve": false, "confidence": 0.9}`,
			expectedStatus: StatusManualReview,
			expectedEmail:  directory.DefaultEmail,
			expectVerdict:  true,
		}, {
			name:           "Gate low confidence goes to manual review",
			mode:           config.VerificationGate,
			verifyReply:    `{"approve": true, "confidence": 0.4}`,
			expectedStatus: StatusManualReview,
			expectedEmail:  directory.DefaultEmail,
			expectVerdict:  true,
		}, {
			name:           "Gate verification failure goes to manual review",
			mode:           config.VerificationGate,
			verifyReply:    `not json`,
			expectedStatus: StatusManualReview,
			expectedEmail:  directory.DefaultEmail,
			expectVerdict:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := happyClient()
			client.replies[verifyPrefix] = tc.verifyReply
			f := newFixture(t, client, Options{VerificationMode: tc.mode, MinConfidence: 0.6})

			resp, err := f.pipeline.Process(context.Background(), burstPipe)
			require.NoError(t, err)
			f.dispatch.Wait()

			assert.Equal(t, tc.expectedStatus, resp.Status)
			assert.Equal(t, tc.expectedEmail, resp.RoutedEmail)
			assert.Equal(t, tc.expectedEmail, f.sender.messages[0].To)
			assert.Equal(t, tc.expectVerdict, resp.Verification != nil)
			assert.Contains(t, client.promptWith(verifyPrefix), "Water Supply Department <water.supply@civic.example.org>")
		})
	}
}

func TestProcessNeverDispatchesOutsideDirectory(t *testing.T) {
	client := happyClient()
	client.replies[routePrefix] = `{"name": "Water Supply Department", "email": "attacker@evil.example", "reason": "trust me"}`
	f := newFixture(t, client, Options{})

	resp, err := f.pipeline.Process(context.Background(), burstPipe)
	require.NoError(t, err)
	f.dispatch.Wait()

	assert.Equal(t, directory.DefaultEmail, resp.RoutedEmail)
	assert.Equal(t, directory.GeneralGrievanceCell, resp.RoutedDepartment)
	assert.Equal(t, directory.DefaultEmail, f.sender.messages[0].To)
}

func TestNewReportID(t *testing.T) {
	id := NewReportID()
	assert.Len(t, id, 8)
	assert.NotEqual(t, id, NewReportID())
}
