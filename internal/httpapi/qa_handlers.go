package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/the-monkeys/blogqa/internal/apperr"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/llm"
)

// QADeps wires the collaborators POST /api/v1/qa/ask needs
// (SPEC_FULL.md §4.19): a Content Store for optional grounding context
// and the LLM Registry for the single chat call.
type QADeps struct {
	Content content.Store
	LLM     *llm.Registry
}

// askRequest is the POST /api/v1/qa/ask body (spec.md §6, SPEC_FULL.md
// §4.19). BlogURL is optional: omit it for a context-free question.
type askRequest struct {
	Question string `json:"question" binding:"required"`
	BlogURL  string `json:"blog_url,omitempty"`
}

// AskHandler serves POST /api/v1/qa/ask: stateless, writes nothing to
// any store and consumes no quota slot (SPEC_FULL.md §4.19).
func (d *QADeps) AskHandler(c *gin.Context) {
	pub := MustPublisher(c)

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "question is required")
		return
	}

	ctx := c.Request.Context()
	var groundingSummary string
	var groundingQuestions []string

	if req.BlogURL != "" {
		if summary, err := d.Content.GetSummary(ctx, req.BlogURL); err == nil && summary != nil {
			groundingSummary = summary.Text
		}
		if questions, err := d.Content.GetQuestions(ctx, req.BlogURL, 5); err == nil {
			for _, q := range questions {
				groundingQuestions = append(groundingQuestions, fmt.Sprintf("Q: %s A: %s", q.Question, q.Answer))
			}
		}
	}

	sysPrompt, userPrompt := llm.BuildAskPrompt(req.Question, groundingSummary, groundingQuestions, pub.Config.CustomQuestionPrompt)
	answer, err := d.LLM.Chat(ctx, pub.Config.LLMModel, sysPrompt, userPrompt, 0, "qa")
	if err != nil {
		_ = c.Error(apperr.Upstream("QA_LLM_CALL", "cannot generate answer", err))
		return
	}

	success(c, http.StatusOK, "answer generated", gin.H{"answer": answer})
}
