package llm

import "fmt"

// SummaryResult is the parsed JSON contract for step 3 of spec.md §4.9.
type SummaryResult struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// QuestionResult is one element of the parsed JSON array from step 5.
type QuestionResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const summaryRoleContract = `You are a precise technical summarizer. You must respond with a single ` +
	`JSON object and nothing else — no markdown fences, no commentary.`

const defaultSummaryInstructions = `Read the blog post below and produce a concise, accurate summary that ` +
	`captures its main argument and 3-5 supporting key points.`

const summaryJSONSchema = `Respond with exactly this shape:
{"summary": "<2-4 sentence summary>", "key_points": ["<point 1>", "<point 2>", ...]}`

// BuildSummaryPrompt composes the three-layer prompt of spec.md §4.9 step
// 3: (a) non-negotiable role + format contract, (b) default instructions
// unless the publisher supplied custom_summary_prompt, (c) the explicit
// JSON schema template.
func BuildSummaryPrompt(blogTitle, blogText, customSummaryPrompt string) (system, user string) {
	instructions := defaultSummaryInstructions
	if customSummaryPrompt != "" {
		instructions = customSummaryPrompt
	}
	system = summaryRoleContract
	user = fmt.Sprintf("%s\n\n%s\n\nTitle: %s\n\nContent:\n%s", instructions, summaryJSONSchema, blogTitle, blogText)
	return system, user
}

const questionsRoleContract = `You are a thoughtful reader generating exploratory questions and answers ` +
	`about a blog post. You must respond with a single JSON array and nothing else — no markdown fences, ` +
	`no commentary.`

const defaultQuestionsInstructions = `Read the blog post below and generate exploratory questions a curious ` +
	`reader might ask, each with a concise, accurate answer grounded only in the text.`

func questionsJSONSchema(count int) string {
	return fmt.Sprintf(`Respond with exactly %d elements in this shape:
[{"question": "<question text>", "answer": "<answer text>"}, ...]`, count)
}

// BuildQuestionsPrompt composes the three-layer prompt of spec.md §4.9
// step 5, requesting exactly `count` question/answer pairs.
func BuildQuestionsPrompt(blogTitle, blogText, customQuestionPrompt string, count int) (system, user string) {
	instructions := defaultQuestionsInstructions
	if customQuestionPrompt != "" {
		instructions = customQuestionPrompt
	}
	system = questionsRoleContract
	user = fmt.Sprintf("%s\n\n%s\n\nTitle: %s\n\nContent:\n%s", instructions, questionsJSONSchema(count), blogTitle, blogText)
	return system, user
}

const askRoleContract = `You are a precise assistant answering a single question about a blog post. ` +
	`You must respond with plain text and nothing else — no markdown fences, no commentary about these ` +
	`instructions.`

const askWithGroundingInstructions = `Answer the question using only the summary and sample Q&A pairs below as ` +
	`grounding context. If the grounding context does not contain the answer, say so plainly instead of guessing.`

const askWithoutGroundingInstructions = `Answer the question as accurately as you can. No grounding context was ` +
	`supplied for this request.`

// BuildAskPrompt composes the prompt for SPEC_FULL.md §4.19's stateless
// Q&A endpoint, following the same three-layer contract as
// BuildSummaryPrompt/BuildQuestionsPrompt (role+format contract,
// default-or-custom instructions, the grounding context itself standing
// in for an explicit JSON schema since the response here is plain
// text). groundingSummary and groundingQuestions are empty when the
// request carried no blog_url or the url has no generated content yet.
func BuildAskPrompt(question, groundingSummary string, groundingQuestions []string, customPrompt string) (system, user string) {
	system = askRoleContract

	instructions := askWithoutGroundingInstructions
	if groundingSummary != "" || len(groundingQuestions) > 0 {
		instructions = askWithGroundingInstructions
	}
	if customPrompt != "" {
		instructions = customPrompt
	}

	user = fmt.Sprintf("%s\n\nQuestion: %s", instructions, question)
	if groundingSummary != "" {
		user += fmt.Sprintf("\n\nSummary:\n%s", groundingSummary)
	}
	for _, q := range groundingQuestions {
		user += fmt.Sprintf("\n\nExisting Q&A: %s", q)
	}
	return system, user
}
