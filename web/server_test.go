// ABOUTME: Tests for the web Server: page rendering, session cookies, the submit and example API,
// ABOUTME: staged reveals driven by a manual scheduler, the SSE stream and the metrics endpoint.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/modelselector/visualizer"
	"github.com/2389-research/modelselector/visualizer/visualizertest"
	"github.com/2389-research/modelselector/workflow"
)

var testResult = &workflow.Result{
	Plan:     "Use the **large** model.",
	Think:    "The task involves code generation.",
	Response: "Selected: large",
}

// wireState mirrors StateView with plain strings for decoding.
type wireState struct {
	SessionID     string `json:"session_id"`
	Query         string `json:"query"`
	Phase         string `json:"phase"`
	InFlight      bool   `json:"in_flight"`
	LastErrorKind string `json:"last_error_kind"`
	Version       uint64 `json:"version"`
	Stages        []struct {
		Stage   string `json:"stage"`
		Status  string `json:"status"`
		Content string `json:"content"`
		HTML    string `json:"html"`
	} `json:"stages"`
}

func newTestServer(t *testing.T, client workflow.Submitter, mutate ...func(*ServerConfig)) (*Server, *visualizertest.ManualScheduler) {
	t.Helper()
	sched := visualizertest.NewManualScheduler()
	cfg := ServerConfig{
		Client:    client,
		Scheduler: sched,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	return srv, sched
}

// visit performs one request, carrying the session cookie if set.
func visit(t *testing.T, srv http.Handler, cookie *http.Cookie, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, srv http.Handler) *http.Cookie {
	t.Helper()
	rec := visit(t, srv, nil, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func fetchState(t *testing.T, srv http.Handler, cookie *http.Cookie) wireState {
	t.Helper()
	rec := visit(t, srv, cookie, http.MethodGet, "/api/state", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var st wireState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return st
}

func waitForPhase(t *testing.T, srv http.Handler, cookie *http.Cookie, phase string) wireState {
	t.Helper()
	var st wireState
	require.Eventually(t, func() bool {
		st = fetchState(t, srv, cookie)
		return st.Phase == phase
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestNewServerRequiresClient(t *testing.T) {
	_, err := NewServer(ServerConfig{})
	assert.Error(t, err)
}

func TestNewServerDefaults(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	assert.Equal(t, DefaultAddr, srv.addr)
	assert.Equal(t, 30*time.Minute, srv.ttl)
}

func TestNewServerRejectsInvertedDelays(t *testing.T) {
	_, err := NewServer(ServerConfig{
		Client:      visualizertest.NewSubmitter(testResult, nil),
		ThinkDelay:  5 * time.Second,
		OutputDelay: time.Second,
	})
	assert.ErrorIs(t, err, visualizer.ErrInvalidDelays)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))

	rec := visit(t, srv, nil, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestIndexRendersIdlePage(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))

	rec := visit(t, srv, nil, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, visualizer.Title)
	for _, id := range []string{"stage-plan", "stage-think", "stage-output"} {
		assert.Contains(t, body, id)
	}
	assert.Contains(t, body, visualizer.WaitingText)
	assert.Contains(t, body, "example-button")
	assert.Equal(t, 1, srv.Sessions().Len())
}

func TestIndexHidesExamplesWhenCatalogEmpty(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil), func(cfg *ServerConfig) {
		cfg.Catalog = visualizer.Catalog{}
	})

	rec := visit(t, srv, nil, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "example-button")
}

func TestSessionCookieIsReused(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	cookie := sessionCookie(t, srv)

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	st := fetchState(t, srv, cookie)
	assert.Equal(t, "idle", st.Phase)
	assert.Equal(t, 1, srv.Sessions().Len())
}

func TestUnknownCookieStartsNewSession(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))

	rec := visit(t, srv, &http.Cookie{Name: SessionCookie, Value: "stale"}, http.MethodGet, "/api/state", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Result().Cookies())
	assert.NotEqual(t, "stale", rec.Result().Cookies()[0].Value)
}

func TestSubmitRevealsStagesInOrder(t *testing.T) {
	client := visualizertest.Blocking(testResult, nil)
	srv, sched := newTestServer(t, client)
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"  Write and debug code  "}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted struct {
		State wireState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "submitting", accepted.State.Phase)
	assert.True(t, accepted.State.InFlight)
	assert.Equal(t, "Write and debug code", accepted.State.Query)
	assert.Equal(t, "loading", accepted.State.Stages[0].Status)
	assert.Equal(t, "queued", accepted.State.Stages[1].Status)

	<-client.Started()
	client.Release()

	st := waitForPhase(t, srv, cookie, "plan_revealed")
	assert.Equal(t, "revealed", st.Stages[0].Status)
	assert.Contains(t, st.Stages[0].HTML, "<strong>large</strong>")
	assert.Equal(t, "queued", st.Stages[1].Status)
	assert.Contains(t, st.Stages[1].HTML, "Processing")

	sched.Advance(2 * time.Second)
	st = fetchState(t, srv, cookie)
	assert.Equal(t, "think_revealed", st.Phase)
	assert.Equal(t, testResult.Think, st.Stages[1].Content)

	sched.Advance(2 * time.Second)
	st = fetchState(t, srv, cookie)
	assert.Equal(t, "complete", st.Phase)
	assert.False(t, st.InFlight)
	assert.Equal(t, testResult.Response, st.Stages[2].Content)

	calls := client.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Write and debug code", calls[0].Query)
	assert.Equal(t, st.SessionID, calls[0].SessionID)
}

func TestSubmitRejectsBlankQuery(t *testing.T) {
	client := visualizertest.NewSubmitter(testResult, nil)
	srv, _ := newTestServer(t, client)
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, client.Calls())
	assert.Equal(t, "idle", fetchState(t, srv, cookie).Phase)
}

func TestSubmitRejectsBadBodies(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	cookie := sessionCookie(t, srv)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"query":`, http.StatusBadRequest},
		{"too long", `{"query":"` + strings.Repeat("a", maxQueryLen+1) + `"}`, http.StatusBadRequest},
		{"too large", `{"query":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestSubmitWhileInFlightConflicts(t *testing.T) {
	client := visualizertest.Blocking(testResult, nil)
	srv, _ := newTestServer(t, client)
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"first"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-client.Started()

	rec = visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"second"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	client.Release()
	waitForPhase(t, srv, cookie, "plan_revealed")
	assert.Len(t, client.Calls(), 1)
}

func TestSubmitFormRedirects(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	cookie := sessionCookie(t, srv)

	req := httptest.NewRequest(http.MethodPost, "/api/submit", strings.NewReader(url.Values{"query": {"Plan a weekend trip"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	st := waitForPhase(t, srv, cookie, "plan_revealed")
	assert.Equal(t, "Plan a weekend trip", st.Query)
}

func TestSubmitFailureShowsErrorInEveryStage(t *testing.T) {
	apiErr := &workflow.APIError{
		ClientError: workflow.ClientError{Message: "workflow API request failed with status 500"},
		StatusCode:  http.StatusInternalServerError,
	}
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(nil, apiErr))
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"anything"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	st := waitForPhase(t, srv, cookie, "errored")
	assert.Equal(t, workflow.KindAPI, st.LastErrorKind)
	assert.False(t, st.InFlight)
	for i, stage := range visualizer.Stages {
		assert.Equal(t, "failed", st.Stages[i].Status)
		assert.Equal(t, stage.ErrorText(), st.Stages[i].Content)
		assert.Contains(t, st.Stages[i].HTML, `class="error"`)
	}
}

func TestExamplePicksFromCatalog(t *testing.T) {
	catalog := visualizer.Catalog{"Summarize news articles"}
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil), func(cfg *ServerConfig) {
		cfg.Catalog = catalog
	})
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/example", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Query string    `json:"query"`
		State wireState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Summarize news articles", resp.Query)
	assert.Equal(t, "Summarize news articles", resp.State.Query)
	assert.Equal(t, "idle", resp.State.Phase)
}

func TestExampleUnavailable(t *testing.T) {
	t.Run("empty catalog", func(t *testing.T) {
		srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil), func(cfg *ServerConfig) {
			cfg.Catalog = visualizer.Catalog{}
		})
		rec := visit(t, srv, sessionCookie(t, srv), http.MethodPost, "/api/example", "", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("in flight", func(t *testing.T) {
		client := visualizertest.Blocking(testResult, nil)
		srv, _ := newTestServer(t, client)
		cookie := sessionCookie(t, srv)

		rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"busy"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		<-client.Started()

		rec = visit(t, srv, cookie, http.MethodPost, "/api/example", "", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "busy", fetchState(t, srv, cookie).Query)
		client.Release()
	})
}

func TestStaticAssetsServed(t *testing.T) {
	srv, _ := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))

	for _, path := range []string{"/static/css/app.css", "/static/js/app.js"} {
		rec := visit(t, srv, nil, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Body.String(), path)
	}
}

func TestMetricsCountSubmissions(t *testing.T) {
	srv, sched := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	cookie := sessionCookie(t, srv)

	rec := visit(t, srv, cookie, http.MethodPost, "/api/submit", "application/json", `{"query":"count me"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	waitForPhase(t, srv, cookie, "plan_revealed")
	sched.Advance(4 * time.Second)

	want := []string{
		`modelselector_submissions_total{outcome="ok"} 1`,
		`modelselector_controller_events_total{type="submitted"} 1`,
		`modelselector_controller_events_total{type="stage_revealed"} 3`,
		`modelselector_controller_events_total{type="completed"} 1`,
		"modelselector_sessions 1",
		`modelselector_http_requests_total{method="POST",route="/api/submit",status="202"} 1`,
	}
	// The Plan event is emitted just after the state changes, so poll.
	var body string
	assert.Eventually(t, func() bool {
		rec := visit(t, srv, nil, http.MethodGet, "/metrics", "", "")
		body = rec.Body.String()
		for _, line := range want {
			if !strings.Contains(body, line) {
				return false
			}
		}
		return true
	}, 2*time.Second, 5*time.Millisecond, body)
}

func TestEventsStreamStartsWithStateThenFollowsSubmission(t *testing.T) {
	srv, sched := newTestServer(t, visualizertest.NewSubmitter(testResult, nil))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	stream, err := client.Do(req)
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	reader := bufio.NewReader(stream.Body)
	nextEvent := func() (string, map[string]any) {
		var name string
		var data map[string]any
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &data))
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := nextEvent()
	assert.Equal(t, "state", name)

	post, err := client.Post(ts.URL+"/api/submit", "application/json", strings.NewReader(`{"query":"stream it"}`))
	require.NoError(t, err)
	io.Copy(io.Discard, post.Body)
	post.Body.Close()
	require.Equal(t, http.StatusAccepted, post.StatusCode)

	name, data := nextEvent()
	assert.Equal(t, "submitted", name)
	assert.Equal(t, "submitting", data["state"].(map[string]any)["phase"])

	name, data = nextEvent()
	assert.Equal(t, "stage_revealed", name)
	assert.Equal(t, "plan", data["stage"])

	sched.Advance(4 * time.Second)
	var names []string
	for range 3 {
		name, _ = nextEvent()
		names = append(names, name)
	}
	assert.Equal(t, []string{"stage_revealed", "stage_revealed", "completed"}, names)
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		accept string
		want   bool
	}{
		{"", true},
		{"application/json", true},
		{"*/*", true},
		{"text/html,application/xhtml+xml", false},
		{"text/plain", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		assert.Equal(t, tt.want, wantsJSON(req), tt.accept)
	}
}
