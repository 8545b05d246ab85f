package app

import (
	"github.com/samber/lo"

	"quizgen-service/internal/domain"
)

// Score compares answers against the stored correct choices, in question order.
// Missing or unknown choices count as unanswered. Feedback is left empty.
func Score(quizID string, questions []domain.Question, answers domain.AnswerMap) domain.QuizEvaluation {
	results := lo.Map(questions, func(q domain.Question, _ int) domain.QuestionResult {
		choice := answers[q.ID]
		if !choice.Valid() {
			choice = domain.Unanswered
		}
		result := domain.QuestionResult{
			QuestionID:        q.ID,
			QuestionText:      q.QuestionText,
			UserChoice:        choice,
			CorrectChoice:     q.CorrectChoice,
			CorrectChoiceText: q.Choices[q.CorrectChoice],
			IsCorrect:         choice != domain.Unanswered && choice == q.CorrectChoice,
			Explanation:       q.Explanation,
		}
		if choice != domain.Unanswered {
			result.UserChoiceText = q.Choices[choice]
		}
		return result
	})

	score := lo.CountBy(results, func(r domain.QuestionResult) bool { return r.IsCorrect })
	return domain.QuizEvaluation{
		QuizID:     quizID,
		Score:      score,
		Total:      len(questions),
		Percentage: Percentage(score, len(questions)),
		Results:    results,
	}
}

// Percentage is 100*score/total rounded half up. An empty quiz scores 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}
