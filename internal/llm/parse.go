package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/the-monkeys/blogqa/constants"
)

// ParseError classifies a malformed LLM response for the worker's
// retry-vs-fail decision (spec.md §4.9 step 3/5: "Parse errors are
// retryable up to the attempt limit").
type ParseError struct {
	Kind string
	msg  string
}

func (e *ParseError) Error() string { return e.msg }

func newParseError(msg string) *ParseError {
	return &ParseError{Kind: constants.ErrorTypeLLMParseError, msg: msg}
}

// stripFences removes a ```json ... ``` or ``` ... ``` wrapper some models
// add despite being told not to.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseSummary parses and validates the step-3 JSON contract.
func ParseSummary(raw string) (*SummaryResult, error) {
	var result SummaryResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &result); err != nil {
		return nil, newParseError(fmt.Sprintf("llm: invalid summary JSON: %v", err))
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, newParseError("llm: summary field missing or empty")
	}
	if len(result.KeyPoints) == 0 {
		return nil, newParseError("llm: key_points field missing or empty")
	}
	return &result, nil
}

// ParseQuestions parses and validates the step-5 JSON contract.
func ParseQuestions(raw string) ([]QuestionResult, error) {
	var results []QuestionResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &results); err != nil {
		return nil, newParseError(fmt.Sprintf("llm: invalid questions JSON: %v", err))
	}
	if len(results) == 0 {
		return nil, newParseError("llm: questions array is empty")
	}
	for i, q := range results {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, newParseError(fmt.Sprintf("llm: question at index %d missing question or answer", i))
		}
	}
	return results, nil
}
