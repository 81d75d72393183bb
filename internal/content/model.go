// Package content implements the Content Store (spec.md §4.6): crawled
// blogs, their generated summary and the Q&A pairs derived from them.
//
// Blog is its own document in the blogs collection. Summary and Questions
// are nested inside a single per-blog document in the content collection,
// so save_questions/get_questions and delete_blog's cascade are each a
// single-document operation (SPEC_FULL.md §3).
package content

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Blog is the crawled record (spec.md §3).
type Blog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	URL       string    `bson:"url" json:"url"`
	Title     string    `bson:"title" json:"title"`
	Author    string    `bson:"author,omitempty" json:"author,omitempty"`
	Content   string    `bson:"content" json:"content"`
	Language  string    `bson:"language,omitempty" json:"language,omitempty"`
	WordCount int       `bson:"word_count" json:"word_count"`
	CrawledAt time.Time `bson:"crawled_at" json:"crawled_at"`
}

// Summary is the zero-or-one generated summary for a blog (spec.md §3).
type Summary struct {
	Text      string    `bson:"summary_text" json:"summary_text"`
	KeyPoints []string  `bson:"key_points" json:"key_points"`
	Embedding []float32 `bson:"embedding_vector,omitempty" json:"embedding_vector,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Question is one generated Q&A pair, embedded under its blog's content
// document (spec.md §3).
type Question struct {
	Question  string    `bson:"question_text" json:"question_text"`
	Answer    string    `bson:"answer_text" json:"answer_text"`
	Embedding []float32 `bson:"embedding_vector,omitempty" json:"embedding_vector,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// QuestionInput is a Q&A pair to be saved, before a created_at is stamped.
type QuestionInput struct {
	Question  string
	Answer    string
	Embedding []float32
}

// contentDoc is the document shape stored in the content collection: one
// per blog, holding the optional Summary and the full Questions array.
type contentDoc struct {
	BlogID    string     `bson:"_id"`
	BlogURL   string     `bson:"blog_url"`
	Summary   *Summary   `bson:"summary,omitempty"`
	Questions []Question `bson:"questions,omitempty"`
}
