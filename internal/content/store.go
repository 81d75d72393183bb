package content

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	blogsCollection   = "blogs"
	contentCollection = "content"
)

// Store is the Content Store contract (spec.md §4.6).
type Store interface {
	SaveBlog(ctx context.Context, url, title, author, contentText, lang string, wordCount int) (blogID string, err error)
	SaveSummary(ctx context.Context, blogID, blogURL, text string, keyPoints []string, embedding []float32) error
	SaveQuestions(ctx context.Context, blogID, blogURL string, questions []QuestionInput) error
	GetBlog(ctx context.Context, url string) (*Blog, error)
	GetQuestions(ctx context.Context, url string, limit int) ([]Question, error)
	GetSummary(ctx context.Context, url string) (*Summary, error)
	DeleteBlog(ctx context.Context, blogID string) error
}

type mongoStore struct {
	blogs   *mongo.Collection
	content *mongo.Collection
	log     *zap.Logger
}

// NewMongoStore wires the Content Store to the blogs and content
// collections.
func NewMongoStore(ctx context.Context, db *mongo.Database, log *zap.Logger) (Store, error) {
	blogs := db.Collection(blogsCollection)
	contentColl := db.Collection(contentCollection)

	_, err := blogs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	_, err = contentColl.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "blog_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &mongoStore{blogs: blogs, content: contentColl, log: log}, nil
}

// SaveBlog is idempotent (spec.md §4.6): a second call for the same
// normalized URL returns the existing id instead of inserting a duplicate.
func (s *mongoStore) SaveBlog(ctx context.Context, url, title, author, contentText, lang string, wordCount int) (string, error) {
	existing, err := s.GetBlog(ctx, url)
	if err == nil {
		return existing.ID.Hex(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return "", err
	}

	blog := Blog{
		URL:       url,
		Title:     title,
		Author:    author,
		Content:   contentText,
		Language:  lang,
		WordCount: wordCount,
		CrawledAt: time.Now().UTC(),
	}
	res, err := s.blogs.InsertOne(ctx, blog)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			existing, getErr := s.GetBlog(ctx, url)
			if getErr != nil {
				return "", getErr
			}
			return existing.ID.Hex(), nil
		}
		return "", err
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("content: unexpected inserted id type")
	}
	return oid.Hex(), nil
}

func (s *mongoStore) GetBlog(ctx context.Context, url string) (*Blog, error) {
	var blog Blog
	err := s.blogs.FindOne(ctx, bson.M{"url": url}).Decode(&blog)
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

func (s *mongoStore) SaveSummary(ctx context.Context, blogID, blogURL, text string, keyPoints []string, embedding []float32) error {
	summary := Summary{Text: text, KeyPoints: keyPoints, Embedding: embedding, CreatedAt: time.Now().UTC()}
	_, err := s.content.UpdateOne(ctx,
		bson.M{"_id": blogID},
		bson.M{"$set": bson.M{"blog_url": blogURL, "summary": summary}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *mongoStore) SaveQuestions(ctx context.Context, blogID, blogURL string, questions []QuestionInput) error {
	now := time.Now().UTC()
	toAppend := make([]Question, 0, len(questions))
	for _, q := range questions {
		toAppend = append(toAppend, Question{Question: q.Question, Answer: q.Answer, Embedding: q.Embedding, CreatedAt: now})
	}

	_, err := s.content.UpdateOne(ctx,
		bson.M{"_id": blogID},
		bson.M{
			"$set":      bson.M{"blog_url": blogURL},
			"$push":     bson.M{"questions": bson.M{"$each": toAppend}},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *mongoStore) GetSummary(ctx context.Context, url string) (*Summary, error) {
	var doc contentDoc
	err := s.content.FindOne(ctx, bson.M{"blog_url": url}).Decode(&doc)
	if err != nil {
		return nil, err
	}
	return doc.Summary, nil
}

func (s *mongoStore) GetQuestions(ctx context.Context, url string, limit int) ([]Question, error) {
	var doc contentDoc
	err := s.content.FindOne(ctx, bson.M{"blog_url": url}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	if limit > 0 && len(doc.Questions) > limit {
		return doc.Questions[:limit], nil
	}
	return doc.Questions, nil
}

// DeleteBlog cascades to the blog's summary and all of its questions
// (spec.md §3 ownership rule) since both live in the same content
// document, keyed by blog_id.
func (s *mongoStore) DeleteBlog(ctx context.Context, blogID string) error {
	if _, err := s.content.DeleteOne(ctx, bson.M{"_id": blogID}); err != nil {
		return err
	}

	oid, err := primitive.ObjectIDFromHex(blogID)
	if err != nil {
		return err
	}
	_, err = s.blogs.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
