// Package prompt assembles the text sent to the model. The format contract here is
// the only description of the output shape that llmjson expects.
package prompt

import (
	"fmt"
	"strings"

	"quizgen-service/internal/domain"
)

const (
	DocumentStart = "<<<DOCUMENT START>>>"
	DocumentEnd   = "<<<DOCUMENT END>>>"
)

// Topic builds the general-knowledge generation prompt.
func Topic(cfg domain.QuizConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert quiz author. Write exactly %d multiple-choice questions about %q.\n", cfg.QuestionCount, cfg.Topic)
	fmt.Fprintf(&b, "Target difficulty: %s. %s\n", cfg.Difficulty, difficultyHint(cfg.Difficulty))
	b.WriteString("Use only well-established general knowledge about the topic.\n")
	b.WriteString("Each question has exactly one correct answer and three plausible distractors.\n\n")
	b.WriteString(FormatContract(cfg.QuestionCount))
	return b.String()
}

// Document builds the grounded prompt. The nominal difficulty is ignored because a
// per-question mix is requested instead.
func Document(cfg domain.QuizConfig, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert quiz author. Write exactly %d multiple-choice questions based ONLY on the document below.\n", cfg.QuestionCount)
	b.WriteString("Do not use outside knowledge. Every correct answer must be supported by the document text.\n")
	b.WriteString("Aim for a difficulty mix of roughly 40% easy, 40% medium and 20% hard questions.\n\n")
	b.WriteString(DocumentStart)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(DocumentEnd)
	b.WriteString("\n\n")
	b.WriteString(FormatContract(cfg.QuestionCount))
	return b.String()
}

// FormatContract is appended to every generation prompt.
func FormatContract(n int) string {
	var b strings.Builder
	b.WriteString("OUTPUT FORMAT (strict):\n")
	b.WriteString("- Respond with a single JSON object and nothing else: no prose, no markdown, no code fences.\n")
	b.WriteString("- Use only straight ASCII double quotes (\") for JSON strings. Never use curly or smart quotes.\n")
	b.WriteString("- Do not put a trailing comma after the last element of any object or array.\n")
	b.WriteString("- Distribute the correct answers roughly evenly across A, B, C and D; do not favor any letter.\n")
	fmt.Fprintf(&b, "- Number question ids with zero-padded tokens %s.\n", idRange(n))
	b.WriteString("- The object must match this shape:\n")
	b.WriteString(`{"questions": [{"id": "Q01", "questionText": "...", "choices": {"A": "...", "B": "...", "C": "...", "D": "..."}, "correctChoice": "A", "explanation": "..."}]}`)
	b.WriteString("\n")
	fmt.Fprintf(&b, "- The questions array must contain exactly %d entries.\n", n)
	return b.String()
}

// QuestionID formats the zero-padded id for the 1-based position i.
func QuestionID(i int) string {
	return fmt.Sprintf("Q%02d", i)
}

func idRange(n int) string {
	if n <= 1 {
		return QuestionID(1)
	}
	return QuestionID(1) + " through " + QuestionID(n)
}

func difficultyHint(d domain.Difficulty) string {
	switch d {
	case domain.Beginner:
		return "Focus on core definitions and basic facts."
	case domain.Intermediate:
		return "Test applied understanding of common concepts."
	case domain.Advanced:
		return "Test nuanced trade-offs and less common details."
	case domain.Expert:
		return "Test edge cases and deep specialist knowledge."
	}
	return ""
}
