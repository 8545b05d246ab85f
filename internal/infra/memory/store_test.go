package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizgen-service/internal/domain"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.Fetch(ctx, "quiz-1"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if err := store.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save: %v", err)
	}

	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	if err := store.RecordAnswers(ctx, "quiz-1", domain.AnswerMap{"Q01": domain.ChoiceA}, at); err != nil {
		t.Fatalf("record answers: %v", err)
	}
	quiz, err := store.Fetch(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if quiz.UserAnswers["Q01"] != domain.ChoiceA {
		t.Fatalf("expected stored answer A, got %+v", quiz.UserAnswers)
	}
	if quiz.SubmittedAt == nil || !quiz.SubmittedAt.Equal(at) {
		t.Fatalf("expected submittedAt %v, got %v", at, quiz.SubmittedAt)
	}
}

func TestStoreRecordAnswersRequiresQuiz(t *testing.T) {
	store := NewStore()
	err := store.RecordAnswers(context.Background(), "ghost", domain.AnswerMap{"Q01": domain.ChoiceA}, time.Now())
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if _, err := store.Fetch(context.Background(), "ghost"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("answers must not create a quiz, got %v", err)
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if err := store.Save(ctx, sampleQuiz()); err != nil {
		t.Fatalf("save: %v", err)
	}
	quiz, _ := store.Fetch(ctx, "quiz-1")
	quiz.Questions[0].Choices[domain.ChoiceA] = "mutated"

	again, _ := store.Fetch(ctx, "quiz-1")
	if again.Questions[0].Choices[domain.ChoiceA] != "3" {
		t.Fatalf("store leaked internal state")
	}
}
