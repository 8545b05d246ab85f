package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"quizgen-service/internal/domain"
)

// Connect dials uri and verifies the server is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Store keeps one document per quiz in the quizzes collection.
type Store struct {
	col *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{col: db.Collection("quizzes")}
}

type quizDocument struct {
	ID          string             `bson:"_id"`
	Topic       string             `bson:"topic"`
	Difficulty  string             `bson:"difficulty"`
	Questions   []questionDocument `bson:"questions"`
	UserAnswers map[string]string  `bson:"userAnswers,omitempty"`
	SubmittedAt *time.Time         `bson:"submittedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

type questionDocument struct {
	ID            string            `bson:"id"`
	QuestionText  string            `bson:"questionText"`
	Choices       map[string]string `bson:"choices"`
	CorrectChoice string            `bson:"correctChoice"`
	Explanation   string            `bson:"explanation,omitempty"`
}

func (s *Store) Save(ctx context.Context, quiz domain.Quiz) error {
	doc := toDocument(quiz)
	doc.UserAnswers = nil
	doc.SubmittedAt = nil
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": quiz.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, quizID string) (domain.Quiz, error) {
	var doc quizDocument
	err := s.col.FindOne(ctx, bson.M{"_id": quizID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return fromDocument(doc), nil
}

// RecordAnswers matches on _id without upsert, so unknown quizzes are reported, not created.
func (s *Store) RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error {
	fields := make(map[string]string, len(answers))
	for questionID, choice := range answers {
		fields[questionID] = string(choice)
	}
	res, err := s.col.UpdateOne(ctx, bson.M{"_id": quizID}, bson.M{"$set": bson.M{
		"userAnswers": fields,
		"submittedAt": submittedAt.UTC(),
	}})
	if err != nil {
		return fmt.Errorf("record answers: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func toDocument(q domain.Quiz) quizDocument {
	doc := quizDocument{
		ID:          q.ID,
		Topic:       q.Topic,
		Difficulty:  string(q.Difficulty),
		Questions:   make([]questionDocument, 0, len(q.Questions)),
		SubmittedAt: q.SubmittedAt,
		CreatedAt:   q.CreatedAt,
	}
	for _, question := range q.Questions {
		choices := make(map[string]string, len(question.Choices))
		for k, v := range question.Choices {
			choices[string(k)] = v
		}
		doc.Questions = append(doc.Questions, questionDocument{
			ID:            question.ID,
			QuestionText:  question.QuestionText,
			Choices:       choices,
			CorrectChoice: string(question.CorrectChoice),
			Explanation:   question.Explanation,
		})
	}
	if q.UserAnswers != nil {
		doc.UserAnswers = make(map[string]string, len(q.UserAnswers))
		for k, v := range q.UserAnswers {
			doc.UserAnswers[k] = string(v)
		}
	}
	return doc
}

func fromDocument(doc quizDocument) domain.Quiz {
	quiz := domain.Quiz{
		ID:         doc.ID,
		Topic:      doc.Topic,
		Difficulty: domain.Difficulty(doc.Difficulty),
		Questions:  make([]domain.Question, 0, len(doc.Questions)),
		CreatedAt:  doc.CreatedAt.UTC(),
	}
	for _, q := range doc.Questions {
		choices := make(map[domain.ChoiceKey]string, len(q.Choices))
		for k, v := range q.Choices {
			choices[domain.ChoiceKey(k)] = v
		}
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:            q.ID,
			QuestionText:  q.QuestionText,
			Choices:       choices,
			CorrectChoice: domain.ChoiceKey(q.CorrectChoice),
			Explanation:   q.Explanation,
		})
	}
	if doc.SubmittedAt != nil {
		at := doc.SubmittedAt.UTC()
		quiz.SubmittedAt = &at
		quiz.UserAnswers = make(domain.AnswerMap, len(doc.UserAnswers))
		for k, v := range doc.UserAnswers {
			quiz.UserAnswers[k] = domain.ChoiceKey(v)
		}
	}
	return quiz
}
