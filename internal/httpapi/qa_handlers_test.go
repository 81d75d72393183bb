package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/llm"
)

func qaRouter(deps *QADeps, auth *harness) *gin.Engine {
	router := gin.New()
	router.Use(RequestIDMiddleware(), ErrorMiddleware())
	group := router.Group("/", PublisherAuthMiddleware(auth.auth))
	group.POST("/ask", deps.AskHandler)
	return router
}

func newLLMRegistry(responses ...string) *llm.Registry {
	reg := llm.NewRegistry()
	reg.RegisterChatProvider(&llm.FakeChatProvider{Responses: responses}, "claude")
	return reg
}

func TestAskHandlerReturnsAnswerWithoutGrounding(t *testing.T) {
	h := newHarness(t, 10)
	deps := &QADeps{Content: h.content, LLM: newLLMRegistry("42")}
	router := qaRouter(deps, h)

	body, _ := json.Marshal(map[string]string{"question": "what is the meaning of life?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("X-API-Key", h.pub.APIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	result := got.Result.(map[string]interface{})
	assert.Equal(t, "42", result["answer"])
}

func TestAskHandlerGroundsOnExistingSummaryAndQuestions(t *testing.T) {
	h := newHarness(t, 10)
	url := "https://acme.example/post-a"
	blogID, err := h.content.SaveBlog(t.Context(), url, "Title", "Author", "body", "en", 100)
	require.NoError(t, err)
	require.NoError(t, h.content.SaveSummary(t.Context(), blogID, url, "a short summary", []string{"point"}, nil))
	require.NoError(t, h.content.SaveQuestions(t.Context(), blogID, url, []content.QuestionInput{
		{Question: "why?", Answer: "because"},
	}))

	fake := &llm.FakeChatProvider{Responses: []string{"grounded answer"}}
	reg := llm.NewRegistry()
	reg.RegisterChatProvider(fake, "claude")
	deps := &QADeps{Content: h.content, LLM: reg}
	router := qaRouter(deps, h)

	body, _ := json.Marshal(map[string]string{"question": "why?", "blog_url": url})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("X-API-Key", h.pub.APIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fake.Calls, 1)
	assert.Contains(t, fake.Calls[0].UserPrompt, "a short summary")
	assert.Contains(t, fake.Calls[0].UserPrompt, "because")
}

func TestAskHandlerRejectsMissingQuestion(t *testing.T) {
	h := newHarness(t, 10)
	router := qaRouter(&QADeps{Content: h.content, LLM: newLLMRegistry()}, h)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-API-Key", h.pub.APIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskHandlerSurfacesUpstreamLLMFailure(t *testing.T) {
	h := newHarness(t, 10)
	reg := llm.NewRegistry()
	reg.RegisterChatProvider(&llm.FakeChatProvider{Err: assert.AnError}, "claude")
	router := qaRouter(&QADeps{Content: h.content, LLM: reg}, h)

	body, _ := json.Marshal(map[string]string{"question": "why?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	req.Header.Set("X-API-Key", h.pub.APIKey)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
