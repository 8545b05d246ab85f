package app

import (
	"context"
	"strings"

	"quizgen-service/internal/domain"
	"quizgen-service/internal/model"
	"quizgen-service/internal/prompt"
)

// Narrator asks the model for a short plain-text comment on a scored quiz.
type Narrator struct {
	model model.Client
}

func NewNarrator(client model.Client) *Narrator {
	return &Narrator{model: client}
}

// Narrate performs one model call. The output is free text and is only trimmed.
func (n *Narrator) Narrate(ctx context.Context, topic string, eval domain.QuizEvaluation) (string, error) {
	out, err := n.model.Invoke(ctx, prompt.Feedback(topic, eval))
	if err != nil {
		return "", invocationError(err)
	}
	return strings.TrimSpace(out), nil
}
