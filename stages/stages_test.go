package stages

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cityguardian/directory"
	"cityguardian/models"
)

// fakeClient answers every prompt with reply/err and records the prompts it saw.
type fakeClient struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeClient) SourceName() string { return "Fake" }

// slowClient blocks until the context expires.
type slowClient struct{}

func (slowClient) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (slowClient) SourceName() string { return "Slow" }

func builtinDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir, err := directory.Builtin(directory.DefaultEmail)
	if err != nil {
		t.Fatalf("Builtin() error = %v", err)
	}
	return dir
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name     string
		reply    string
		err      error
		expected models.Classification
	}{
		{
			name:     "Plain JSON",
			reply:    `{"category": "water supply", "urgency": "high"}`,
			expected: models.Classification{Category: "water supply", Urgency: "high"},
		}, {
			name:     "Fenced JSON with upper case urgency",
			reply:    "```json\n{\"category\": \"roads\", \"urgency\": \"LOW\"}\n```",
			expected: models.Classification{Category: "roads", Urgency: "low"},
		}, {
			name:     "Service error",
			err:      errors.New("connection refused"),
			expected: models.Classification{Category: "general", Urgency: "medium"},
		}, {
			name:     "Prose instead of JSON",
			reply:    "This looks like a water problem.",
			expected: models.Classification{Category: "general", Urgency: "medium"},
		}, {
			name:     "Unknown urgency",
			reply:    `{"category": "roads", "urgency": "critical"}`,
			expected: models.Classification{Category: "general", Urgency: "medium"},
		}, {
			name:     "Missing category",
			reply:    `{"urgency": "low"}`,
			expected: models.Classification{Category: "general", Urgency: "medium"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{reply: tc.reply, err: tc.err}
			got := NewClassifier(client, time.Second).Classify(context.Background(), "Burst pipe on Main Street")
			if got != tc.expected {
				t.Errorf("Classify() = %+v, want %+v", got, tc.expected)
			}
			if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "Burst pipe on Main Street") {
				t.Errorf("Classify() prompt does not carry complaint text: %v", client.prompts)
			}
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	got := NewClassifier(slowClient{}, 10*time.Millisecond).Classify(context.Background(), "anything")
	if got != FallbackClassification() {
		t.Errorf("Classify() = %+v, want fallback", got)
	}
}

func TestKeywordMatch(t *testing.T) {
	dir := builtinDirectory(t)
	router := NewKeywordRouter(dir)

	testCases := []struct {
		name         string
		complaint    string
		expectedDept string
		minScore     int
	}{
		{
			name:         "Burst pipe",
			complaint:    "There is a burst pipe and no water since yesterday, water tanker needed",
			expectedDept: "Water Supply Department",
			minScore:     2,
		}, {
			name:         "Pothole and traffic",
			complaint:    "Huge POTHOLE near the market is causing traffic jams",
			expectedDept: "Roads & Traffic Department",
			minScore:     2,
		}, {
			name:         "Drain overflow",
			complaint:    "The drain is blocked and overflow everywhere",
			expectedDept: "Sewage & Drainage Department",
			minScore:     3,
		}, {
			name:         "Substring is not a word",
			complaint:    "The roadside cafe is noisy",
			expectedDept: "",
		}, {
			name:         "Multi-word keyword never matches",
			complaint:    "power cut in the whole block",
			expectedDept: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := router.Match(tc.complaint)
			if tc.expectedDept == "" {
				if m.Matched() {
					t.Fatalf("Match() = %s (%d), want no match", m.Department.Name, m.Score)
				}
				return
			}
			if !m.Matched() {
				t.Fatalf("Match() found no department, want %s", tc.expectedDept)
			}
			if m.Department.Name != tc.expectedDept {
				t.Errorf("Match() department = %s, want %s", m.Department.Name, tc.expectedDept)
			}
			if m.Score < tc.minScore {
				t.Errorf("Match() score = %d, want >= %d", m.Score, tc.minScore)
			}
		})
	}
}

func TestKeywordMatchTieGoesToFirst(t *testing.T) {
	dir, err := directory.New([]models.Department{
		{Name: "Parks", Email: "parks@city.gov", Keywords: []string{"tree"}},
		{Name: "Forestry", Email: "forestry@city.gov", Keywords: []string{"tree"}},
	}, "help@city.gov")
	if err != nil {
		t.Fatal(err)
	}

	m := NewKeywordRouter(dir).Match("a fallen tree")
	if !m.Matched() || m.Department.Name != "Parks" || m.Score != 1 {
		t.Errorf("Match() = %+v, want Parks with score 1", m)
	}
}

func TestKeywordMatchDeterministic(t *testing.T) {
	router := NewKeywordRouter(builtinDirectory(t))
	text := "pothole and traffic signal broken near the water pipe"
	first := router.Match(text)
	for i := 0; i < 20; i++ {
		m := router.Match(text)
		if m.Score != first.Score || m.Department.Name != first.Department.Name {
			t.Fatalf("Match() run %d = %s (%d), want %s (%d)", i, m.Department.Name, m.Score, first.Department.Name, first.Score)
		}
	}
}

func TestKeywordDescribe(t *testing.T) {
	router := NewKeywordRouter(builtinDirectory(t))

	matched := router.Describe(router.Match("pothole causing traffic"))
	if matched.Name != "Roads & Traffic Department" || matched.Reason != "Matched 2 keywords" {
		t.Errorf("Describe() = %+v", matched)
	}

	unmatched := router.Describe(router.Match("nothing relevant here"))
	if unmatched.Name != directory.GeneralGrievanceCell || unmatched.Email != directory.DefaultEmail {
		t.Errorf("Describe() = %+v, want General Grievance Cell", unmatched)
	}
	if unmatched.Reason != "No strong keyword match" {
		t.Errorf("Describe() reason = %q", unmatched.Reason)
	}
}

func TestRoute(t *testing.T) {
	dir := builtinDirectory(t)
	fallback := models.RoutingDecision{
		Name:   directory.GeneralGrievanceCell,
		Email:  directory.DefaultEmail,
		Reason: FallbackRoutingReason,
	}

	testCases := []struct {
		name     string
		reply    string
		err      error
		expected models.RoutingDecision
	}{
		{
			name:  "Allowed address",
			reply: `{"name": "Water Supply Department", "email": "water.supply@civic.example.org", "reason": "pipe burst"}`,
			expected: models.RoutingDecision{
				Name:   "Water Supply Department",
				Email:  "water.supply@civic.example.org",
				Reason: "pipe burst",
			},
		}, {
			name:  "Address canonicalised from directory",
			reply: `{"name": "Roads", "email": " ROADS.TRAFFIC@civic.example.org ", "reason": "pothole"}`,
			expected: models.RoutingDecision{
				Name:   "Roads & Traffic Department",
				Email:  "roads.traffic@civic.example.org",
				Reason: "pothole",
			},
		}, {
			name:     "Address outside the allow-list",
			reply:    `{"name": "Mayor", "email": "mayor@elsewhere.org", "reason": "important"}`,
			expected: fallback,
		}, {
			name:     "Default address is not a routing target",
			reply:    `{"name": "General", "email": "grievance@civic.example.org", "reason": "unsure"}`,
			expected: fallback,
		}, {
			name:     "Service error",
			err:      errors.New("503"),
			expected: fallback,
		}, {
			name:     "Malformed reply",
			reply:    `{"name": "Water"`,
			expected: fallback,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{reply: tc.reply, err: tc.err}
			got := NewRouter(client, dir, time.Second).Route(context.Background(), "water", "Latitude 1.0, Longitude 2.0")
			if got != tc.expected {
				t.Errorf("Route() = %+v, want %+v", got, tc.expected)
			}
		})
	}
}

func TestRoutePromptListsDirectory(t *testing.T) {
	dir := builtinDirectory(t)
	client := &fakeClient{err: errors.New("unused")}
	NewRouter(client, dir, time.Second).Route(context.Background(), "roads", "Latitude 12.5, Longitude 77.0")

	if len(client.prompts) != 1 {
		t.Fatalf("expected 1 prompt, got %d", len(client.prompts))
	}
	prompt := client.prompts[0]
	for _, email := range dir.AllowList() {
		if !strings.Contains(prompt, email) {
			t.Errorf("routing prompt is missing %s", email)
		}
	}
	if !strings.Contains(prompt, "Latitude 12.5, Longitude 77.0") {
		t.Errorf("routing prompt is missing location")
	}
}

func TestVerify(t *testing.T) {
	dept := models.Department{Name: "Water Supply Department", Email: "water.supply@civic.example.org"}

	testCases := []struct {
		name     string
		reply    string
		err      error
		expected models.VerificationResult
	}{
		{
			name:     "Approved",
			reply:    `{"approve": true, "confidence": 0.92}`,
			expected: models.VerificationResult{Approve: true, Confidence: 0.92},
		}, {
			name:     "Rejected",
			reply:    `{"approve": false, "confidence": 0.3}`,
			expected: models.VerificationResult{Approve: false, Confidence: 0.3},
		}, {
			name:     "Confidence out of range",
			reply:    `{"approve": true, "confidence": 7}`,
			expected: models.VerificationResult{},
		}, {
			name:     "Service error",
			err:      errors.New("timeout"),
			expected: models.VerificationResult{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{reply: tc.reply, err: tc.err}
			got := NewVerifier(client, time.Second).Verify(context.Background(), "burst pipe", "water", dept, "pipe")
			if got != tc.expected {
				t.Errorf("Verify() = %+v, want %+v", got, tc.expected)
			}
			if !strings.Contains(client.prompts[0], "Water Supply Department <water.supply@civic.example.org>") {
				t.Errorf("verification prompt is missing the department label")
			}
		})
	}
}

func TestDraft(t *testing.T) {
	in := DraftInput{
		CitizenName:  "Asha",
		CitizenEmail: "asha@example.com",
		Complaint:    "Burst pipe",
		Location:     "Latitude 12.9, Longitude 77.6",
		Category:     "general",
		Urgency:      "medium",
	}

	t.Run("Body returned verbatim", func(t *testing.T) {
		body := "Dear Sir,\n\nThe pipe burst.\n"
		client := &fakeClient{reply: body}
		got, err := NewDrafter(client, time.Second).Draft(context.Background(), in)
		if err != nil {
			t.Fatalf("Draft() error = %v", err)
		}
		if got.Subject != DraftSubject || got.Body != body {
			t.Errorf("Draft() = %+v", got)
		}
		for _, want := range []string{"Asha", "asha@example.com", "general", "medium", "Burst pipe", "Latitude 12.9, Longitude 77.6"} {
			if !strings.Contains(client.prompts[0], want) {
				t.Errorf("drafting prompt is missing %q", want)
			}
		}
	})

	t.Run("Empty completion", func(t *testing.T) {
		_, err := NewDrafter(&fakeClient{reply: "  \n"}, time.Second).Draft(context.Background(), in)
		if !errors.Is(err, ErrEmptyCompletion) {
			t.Errorf("Draft() error = %v, want ErrEmptyCompletion", err)
		}
	})

	t.Run("Service error", func(t *testing.T) {
		cause := errors.New("quota exceeded")
		_, err := NewDrafter(&fakeClient{err: cause}, time.Second).Draft(context.Background(), in)
		if !errors.Is(err, cause) {
			t.Errorf("Draft() error = %v, want %v", err, cause)
		}
	})
}
