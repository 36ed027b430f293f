package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"giftmatch/internal/config"
	"giftmatch/internal/core"
	"giftmatch/internal/nodes"
	"giftmatch/internal/services"
	"giftmatch/internal/storage"
	"giftmatch/pkg"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResponder struct {
	chunks       []string
	err          error
	systemPrompt string
	history      []pkg.ConversationMessage
}

func (f *fakeResponder) Generate(_ context.Context, systemPrompt string, history []pkg.ConversationMessage) (string, error) {
	f.systemPrompt, f.history = systemPrompt, history
	if f.err != nil {
		return "", f.err
	}
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeResponder) Stream(_ context.Context, systemPrompt string, history []pkg.ConversationMessage, onDelta func(string) error) (string, error) {
	f.systemPrompt, f.history = systemPrompt, history
	if f.err != nil {
		return "", f.err
	}
	for _, c := range f.chunks {
		if err := onDelta(c); err != nil {
			return "", err
		}
	}
	return strings.Join(f.chunks, ""), nil
}

type fakeWizard struct {
	resp *pkg.RecommendationResponse
	err  error
	got  pkg.GiftContext
}

func (f *fakeWizard) Wizard(_ context.Context, giftCtx pkg.GiftContext) (*pkg.RecommendationResponse, error) {
	f.got = giftCtx
	return f.resp, f.err
}

type fakeAssistant struct {
	resp *pkg.AssistantResponse
	err  error
}

func (f *fakeAssistant) Run(context.Context, []pkg.ConversationMessage) (*pkg.AssistantResponse, error) {
	return f.resp, f.err
}

type staticClassifier struct{ flagged bool }

func (c staticClassifier) Classify(context.Context, string) (services.ModerationResult, error) {
	if !c.flagged {
		return services.ModerationResult{}, nil
	}
	return services.ModerationResult{Flagged: true, Category: "hate", DenialMessage: "I can't engage with hateful content. Please be respectful."}, nil
}

type staticRecommender struct{}

func (staticRecommender) Recommend(context.Context, pkg.GiftContext, []pkg.GiftEntry) (string, error) {
	return "1. Herb Garden Kit", nil
}

type testServer struct {
	*Server
	responder *fakeResponder
	wizard    *fakeWizard
	sessions  *storage.MemorySessionManager
}

func newTestServer(t *testing.T, flagged bool) *testServer {
	t.Helper()
	catalog := services.NewCatalogStore(func() ([]pkg.GiftEntry, error) {
		return []pkg.GiftEntry{{Name: "Herb Garden Kit", RecipientGroup: "Mother", Occasion: "Birthday", PriceBand: "Medium"}}, nil
	})
	_, err := catalog.Load()
	require.NoError(t, err)

	processor, err := nodes.NewChatProcessor(core.GraphConfig{DefaultFlow: config.DefaultFlow()}, nodes.ChatDeps{
		Classifier:  staticClassifier{flagged: flagged},
		Catalog:     catalog,
		Recommender: staticRecommender{},
	})
	require.NoError(t, err)

	ts := &testServer{
		responder: &fakeResponder{chunks: []string{"Who ", "is it for?"}},
		wizard:    &fakeWizard{},
		sessions:  storage.NewMemorySessionManager(0, 0),
	}
	ts.Server = NewServer(Deps{
		Processor: processor,
		Responder: ts.responder,
		Wizard:    ts.wizard,
		Sessions:  ts.sessions,
		Catalog:   catalog,
	}, core.ServerConfig{})
	return ts
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// dataEvents returns the decoded data lines of an event stream, without the [DONE] marker
func dataEvents(t *testing.T, body string) []streamEvent {
	t.Helper()
	var events []streamEvent
	for _, line := range strings.Split(body, "\n") {
		payload, ok := strings.CutPrefix(line, "data: ")
		if !ok || payload == "[DONE]" {
			continue
		}
		var ev streamEvent
		require.NoError(t, sonic.UnmarshalString(payload, &ev))
		events = append(events, ev)
	}
	return events
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	rec := do(t, ts, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","gifts":1}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"messages":[{"role":"user","content":"gift for mom"}]}`)

	rec := do(t, ts, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "giftmatch_chat_turns_total")
}

func TestOptions(t *testing.T) {
	ts := newTestServer(t, false)
	rec := do(t, ts, http.MethodGet, "/api/options", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Under ₹1,500")
}

func TestChatStreamsReply(t *testing.T) {
	ts := newTestServer(t, false)
	rec := do(t, ts, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"gift for mom"}]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events := dataEvents(t, rec.Body.String())
	require.Len(t, events, 6)
	assert.Equal(t, eventStart, events[0].Type)
	assert.Equal(t, eventTextStart, events[1].Type)
	assert.Equal(t, "Who ", events[2].Delta)
	assert.Equal(t, "is it for?", events[3].Delta)
	assert.Equal(t, eventTextEnd, events[4].Type)
	assert.Equal(t, eventFinish, events[5].Type)
	assert.Equal(t, events[1].ID, events[2].ID)
	assert.True(t, strings.HasSuffix(rec.Body.String(), "data: [DONE]\n\n"))

	assert.Contains(t, ts.responder.systemPrompt, "Politely ask")
	assert.Len(t, ts.responder.history, 1)
}

func TestChatModerationDenial(t *testing.T) {
	ts := newTestServer(t, true)
	rec := do(t, ts, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hateful"}]}`)

	events := dataEvents(t, rec.Body.String())
	require.Len(t, events, 5)
	assert.Equal(t, moderationTextID, events[1].ID)
	assert.Equal(t, "I can't engage with hateful content. Please be respectful.", events[2].Delta)
	assert.Nil(t, ts.responder.history, "the model must not be called")
}

func TestChatJSONMode(t *testing.T) {
	ts := newTestServer(t, false)
	rec := do(t, ts, http.MethodPost, "/api/chat?stream=false",
		`{"messages":[{"role":"user","content":"gift for mom for her birthday"},{"role":"assistant","content":"Budget?"},{"role":"user","content":"medium"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp pkg.ChatResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Who is it for?", resp.Text)
	assert.True(t, resp.Ready)
	assert.Equal(t, 1, resp.MatchedGifts)
	assert.Equal(t, pkg.PriceBandMedium, resp.Context.PriceBand)
	assert.Contains(t, ts.responder.systemPrompt, "1. Herb Garden Kit")
}

func TestChatSessionMode(t *testing.T) {
	ts := newTestServer(t, false)

	rec := do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"s1","message":"gift for mom"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"s1","message":"birthday"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp pkg.ChatResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Mother", resp.Context.RecipientGroup)
	assert.Equal(t, "Birthday", resp.Context.Occasion)

	session, err := ts.sessions.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, session.Messages, 4)

	rec = do(t, ts, http.MethodDelete, "/api/sessions/s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err = ts.sessions.GetSession(context.Background(), "s1")
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)
}

func TestChatSessionKeepsContextPastTrim(t *testing.T) {
	ts := newTestServer(t, false)

	rec := do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"long","message":"a gift for my mom"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	// 30 more turns push the first message out of the 50-message window
	var resp pkg.ChatResponse
	for i := 0; i < 30; i++ {
		rec = do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"long","message":"ok thanks"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "Mother", resp.Context.RecipientGroup, "turn %d", i+2)
	}

	session, err := ts.sessions.GetSession(context.Background(), "long")
	require.NoError(t, err)
	assert.Len(t, session.Messages, storage.DefaultMaxMessages)
	assert.Equal(t, "ok thanks", session.Messages[0].Content)
	assert.Equal(t, "Mother", session.Context.RecipientGroup)

	rec = do(t, ts, http.MethodDelete, "/api/sessions/long", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"long","message":"ok thanks"}`)
	var fresh pkg.ChatResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &fresh))
	assert.Empty(t, fresh.Context.RecipientGroup, "reset discards the context")
}

func TestChatSessionModeratedTurnKeepsContext(t *testing.T) {
	ts := newTestServer(t, true)
	_, err := ts.sessions.AppendTurn(context.Background(), "m", pkg.GiftContext{RecipientGroup: "Mother"},
		pkg.ConversationMessage{Role: pkg.RoleUser, Content: "gift for mom"})
	require.NoError(t, err)

	rec := do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"sessionId":"m","message":"hateful"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	session, err := ts.sessions.GetSession(context.Background(), "m")
	require.NoError(t, err)
	assert.Equal(t, "Mother", session.Context.RecipientGroup)
}

func TestRecommendationsUnknownBandPassesThrough(t *testing.T) {
	ts := newTestServer(t, false)
	ts.wizard.resp = &pkg.RecommendationResponse{}

	rec := do(t, ts, http.MethodPost, "/api/recommendations",
		`{"recipientGroup":"Mother","occasion":"Diwali","priceBand":"Pricey"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pkg.PriceBand("Pricey"), ts.wizard.got.PriceBand)
	assert.False(t, ts.wizard.got.PriceBand.Valid())
}

func TestChatValidation(t *testing.T) {
	ts := newTestServer(t, false)

	rec := do(t, ts, http.MethodPost, "/api/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, ts, http.MethodPost, "/api/chat", `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatGenerationFailureIsGeneric(t *testing.T) {
	ts := newTestServer(t, false)
	ts.responder.err = errors.New("api key sk-secret rejected")

	rec := do(t, ts, http.MethodPost, "/api/chat?stream=false", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Something went wrong"}`, rec.Body.String())

	rec = do(t, ts, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"hi"}]}`)
	assert.NotContains(t, rec.Body.String(), "sk-secret")
	assert.Contains(t, rec.Body.String(), `"type":"error"`)
}

func TestRecommendations(t *testing.T) {
	ts := newTestServer(t, false)
	ts.wizard.resp = &pkg.RecommendationResponse{Context: "Gift for: Mother", Recommendations: "1. Silk Saree", MatchedGifts: 3}

	rec := do(t, ts, http.MethodPost, "/api/recommendations",
		`{"recipientGroup":"Mother","occasion":"Diwali","priceBand":"₹4,000+","interests":["fashion"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"context":"Gift for: Mother","recommendations":"1. Silk Saree","matchedGifts":3}`, rec.Body.String())
	assert.Equal(t, pkg.PriceBandHigh, ts.wizard.got.PriceBand)
}

func TestRecommendationsErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{services.ErrMissingContext, http.StatusBadRequest, "Missing required context fields"},
		{services.ErrNoMatches, http.StatusBadRequest, "No gifts match your criteria. Please try different selections."},
		{errors.New("model down"), http.StatusInternalServerError, "Failed to generate recommendations"},
	}
	for _, tc := range cases {
		ts := newTestServer(t, false)
		ts.wizard.err = tc.err
		rec := do(t, ts, http.MethodPost, "/api/recommendations", `{"recipientGroup":"Mother"}`)
		assert.Equal(t, tc.code, rec.Code)
		assert.JSONEq(t, `{"error":"`+tc.msg+`"}`, rec.Body.String())
	}
}

func TestAssistantEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	rec := do(t, ts, http.MethodPost, "/api/assistant", `{"messages":[{"role":"user","content":"late policy?"}]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	ts.deps.Assistant = &fakeAssistant{resp: &pkg.AssistantResponse{Text: "Ten percent per day.", ToolsExecuted: []string{"read_syllabus"}}}
	rec = do(t, ts, http.MethodPost, "/api/assistant", `{"messages":[{"role":"user","content":"late policy?"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"Ten percent per day.","toolsExecuted":["read_syllabus"]}`, rec.Body.String())

	ts.deps.Assistant = &fakeAssistant{err: errors.New("boom")}
	rec = do(t, ts, http.MethodPost, "/api/assistant", `{"messages":[{"role":"user","content":"late policy?"}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
