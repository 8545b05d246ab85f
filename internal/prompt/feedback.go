package prompt

import (
	"fmt"
	"strings"

	"quizgen-service/internal/domain"
)

// Feedback builds the narrator prompt from a scored evaluation.
func Feedback(topic string, eval domain.QuizEvaluation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A learner just finished a quiz on %q and scored %d out of %d (%d%%).\n", topic, eval.Score, eval.Total, eval.Percentage)
	b.WriteString("Per-question outcome:\n")
	for _, r := range eval.Results {
		b.WriteString(outcomeLine(r))
		b.WriteString("\n")
	}
	b.WriteString("\nWrite 2-3 sentences of encouraging, personalized feedback in plain text. ")
	b.WriteString("Mention what they did well and what to review next. Do not use markdown, headings or bullet points.")
	return b.String()
}

func outcomeLine(r domain.QuestionResult) string {
	switch {
	case r.IsCorrect:
		return fmt.Sprintf("%s CORRECT: %s", r.QuestionID, r.QuestionText)
	case !r.Answered():
		return fmt.Sprintf("%s UNANSWERED: %s (answer: %s)", r.QuestionID, r.QuestionText, r.CorrectChoiceText)
	default:
		return fmt.Sprintf("%s WRONG: %s (chose: %s; answer: %s)", r.QuestionID, r.QuestionText, r.UserChoiceText, r.CorrectChoiceText)
	}
}
