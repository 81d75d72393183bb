// Package orchestrator implements the Processing Orchestrator (spec.md
// §4.9): crawl, summarize, generate questions, embed, and persist, for a
// single leased QueueEntry. It never touches the Queue Store itself —
// the Worker Runtime (§4.10) owns every transition and audit write, per
// §7's propagation policy ("only the worker decides retry vs fail, and
// only the worker writes audit rows").
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/the-monkeys/blogqa/constants"
	"github.com/the-monkeys/blogqa/internal/content"
	"github.com/the-monkeys/blogqa/internal/crawler"
	"github.com/the-monkeys/blogqa/internal/llm"
	"github.com/the-monkeys/blogqa/internal/metrics"
	"github.com/the-monkeys/blogqa/internal/publisher"
)

// Outcome summarizes a successful run for the caller's audit row
// (spec.md §3 AuditEntry.question_count/summary_length/embedding_count).
type Outcome struct {
	BlogID         string
	BlogTitle      string
	ContentLength  int
	SummaryLength  int
	QuestionCount  int
	EmbeddingCount int
}

// Error classifies an orchestrator failure for the Worker Runtime's
// retry-vs-fail decision (spec.md §4.9/§7): ErrorType is one of the
// constants.ErrorType* values and Retryable says whether the attempt
// budget, not the error itself, is what eventually fails the job.
type Error struct {
	ErrorType string
	Retryable bool
	cause     error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.ErrorType, e.cause) }
func (e *Error) Unwrap() error { return e.cause }

func newError(errorType string, retryable bool, cause error) *Error {
	return &Error{ErrorType: errorType, Retryable: retryable, cause: cause}
}

// classifyCrawlError maps a *crawler.Error to the orchestrator's own
// Error, per spec.md §4.9 step 1 ("HTTP 4xx is fatal; 5xx and network
// errors are retryable") and §7 ("empty extractions are retryable").
func classifyCrawlError(err error) *Error {
	crawlErr, ok := err.(*crawler.Error)
	if !ok {
		return newError(constants.ErrorTypeInternal, false, err)
	}
	switch crawlErr.Kind {
	case crawler.ErrorKindClientError:
		return newError(constants.ErrorTypeCrawlClientError, false, crawlErr)
	default:
		return newError(string(crawlErr.Kind), true, crawlErr)
	}
}

// Orchestrator wires the Crawler, the LLM Registry and the Content Store
// — the three collaborators spec.md §4.9's sequential algorithm touches.
type Orchestrator struct {
	crawler *crawler.Crawler
	llm     *llm.Registry
	content content.Store
}

// New builds an Orchestrator.
func New(c *crawler.Crawler, registry *llm.Registry, contentStore content.Store) *Orchestrator {
	return &Orchestrator{crawler: c, llm: registry, content: contentStore}
}

// Run executes spec.md §4.9 steps 1-7 for url, using pub's configured
// models and prompts. It never transitions the QueueEntry or writes an
// audit row — see the package doc.
func (o *Orchestrator) Run(ctx context.Context, url string, pub *publisher.Publisher) (*Outcome, error) {
	// 1. Crawl.
	crawlStart := time.Now()
	crawled, err := o.crawler.Fetch(ctx, url)
	metrics.CrawlDurationSeconds.Observe(time.Since(crawlStart).Seconds())
	if err != nil {
		return nil, classifyCrawlError(err)
	}

	// 2. Persist blog (idempotent).
	blogID, err := o.content.SaveBlog(ctx, url, crawled.Title, crawled.Author, crawled.Text, crawled.Language, crawled.WordCount)
	if err != nil {
		return nil, newError(constants.ErrorTypeInternal, true, fmt.Errorf("save blog: %w", err))
	}

	// 3. Generate summary.
	sysPrompt, userPrompt := llm.BuildSummaryPrompt(crawled.Title, crawled.Text, pub.Config.CustomSummaryPrompt)
	rawSummary, err := o.llm.Chat(ctx, pub.Config.LLMModel, sysPrompt, userPrompt, 0, "summary")
	if err != nil {
		return nil, newError(constants.ErrorTypeLLMUpstream, true, err)
	}
	summary, err := llm.ParseSummary(rawSummary)
	if err != nil {
		return nil, newError(constants.ErrorTypeLLMParseError, true, err)
	}

	// 4. Embed + persist summary.
	summaryEmbedding, err := o.llm.Embed(ctx, pub.Config.EmbeddingModel, summary.Summary)
	if err != nil {
		return nil, newError(constants.ErrorTypeEmbeddingError, true, err)
	}
	if err := o.content.SaveSummary(ctx, blogID, url, summary.Summary, summary.KeyPoints, summaryEmbedding); err != nil {
		return nil, newError(constants.ErrorTypeInternal, true, fmt.Errorf("save summary: %w", err))
	}

	// 5. Generate questions.
	qSysPrompt, qUserPrompt := llm.BuildQuestionsPrompt(crawled.Title, crawled.Text, pub.Config.CustomQuestionPrompt, pub.Config.QuestionsPerBlog)
	rawQuestions, err := o.llm.Chat(ctx, pub.Config.LLMModel, qSysPrompt, qUserPrompt, 0, "questions")
	if err != nil {
		return nil, newError(constants.ErrorTypeLLMUpstream, true, err)
	}
	questions, err := llm.ParseQuestions(rawQuestions)
	if err != nil {
		return nil, newError(constants.ErrorTypeLLMParseError, true, err)
	}

	// 6. Embed each question.
	inputs := make([]content.QuestionInput, len(questions))
	for i, q := range questions {
		embedding, err := o.llm.Embed(ctx, pub.Config.EmbeddingModel, q.Question)
		if err != nil {
			return nil, newError(constants.ErrorTypeEmbeddingError, true, err)
		}
		inputs[i] = content.QuestionInput{Question: q.Question, Answer: q.Answer, Embedding: embedding}
	}

	// 7. Persist questions.
	if err := o.content.SaveQuestions(ctx, blogID, url, inputs); err != nil {
		return nil, newError(constants.ErrorTypeInternal, true, fmt.Errorf("save questions: %w", err))
	}

	return &Outcome{
		BlogID:         blogID,
		BlogTitle:      crawled.Title,
		ContentLength:  len(crawled.Text),
		SummaryLength:  len(summary.Summary),
		QuestionCount:  len(inputs),
		EmbeddingCount: len(inputs) + 1,
	}, nil
}
