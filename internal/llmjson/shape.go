package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"quizgen-service/internal/domain"
)

const questionSchemaJSON = `{
	"type": "object",
	"properties": {
		"id": {"type": ["string", "number"]},
		"questionText": {"type": "string", "minLength": 1},
		"choices": {
			"type": "object",
			"properties": {
				"A": {"type": "string", "minLength": 1},
				"B": {"type": "string", "minLength": 1},
				"C": {"type": "string", "minLength": 1},
				"D": {"type": "string", "minLength": 1}
			},
			"required": ["A", "B", "C", "D"],
			"additionalProperties": false
		},
		"correctChoice": {"type": "string", "enum": ["A", "B", "C", "D"]},
		"explanation": {"type": ["string", "null"]}
	},
	"required": ["questionText", "choices", "correctChoice"]
}`

var questionSchema = mustSchema(questionSchemaJSON)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("llmjson: invalid question schema: %v", err))
	}
	return s
}

type questionOutput struct {
	QuestionText  string            `json:"questionText"`
	Choices       map[string]string `json:"choices"`
	CorrectChoice string            `json:"correctChoice"`
	Explanation   string            `json:"explanation"`
}

// Questions is the shape check. It requires an object whose "questions" field is an
// array of schema-valid questions. IDs are left empty; the generator assigns them.
func Questions(v any, label string) ([]domain.Question, error) {
	shapeErr := func(err error) error {
		raw, _ := json.Marshal(v)
		return &OutputError{Kind: domain.ErrUnexpectedResponseShape, Label: label, Raw: string(raw), Err: err}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, shapeErr(fmt.Errorf("top-level value is %T, want object", v))
	}
	field, ok := obj["questions"]
	if !ok {
		return nil, shapeErr(fmt.Errorf("missing \"questions\" field"))
	}
	items, ok := field.([]any)
	if !ok {
		return nil, shapeErr(fmt.Errorf("\"questions\" is %T, want array", field))
	}

	questions := make([]domain.Question, 0, len(items))
	for i, item := range items {
		q, err := decodeQuestion(item)
		if err != nil {
			return nil, shapeErr(fmt.Errorf("question %d: %w", i+1, err))
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func decodeQuestion(item any) (domain.Question, error) {
	normalizeKeys(item)

	result, err := questionSchema.Validate(gojsonschema.NewGoLoader(item))
	if err != nil {
		return domain.Question{}, err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Question{}, fmt.Errorf("%s", strings.Join(msgs, "; "))
	}

	b, err := json.Marshal(item)
	if err != nil {
		return domain.Question{}, err
	}
	var out questionOutput
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.Question{}, err
	}

	choices := make(map[domain.ChoiceKey]string, len(out.Choices))
	for k, text := range out.Choices {
		choices[domain.ChoiceKey(k)] = strings.TrimSpace(text)
	}
	return domain.Question{
		QuestionText:  strings.TrimSpace(out.QuestionText),
		Choices:       choices,
		CorrectChoice: domain.ChoiceKey(out.CorrectChoice),
		Explanation:   strings.TrimSpace(out.Explanation),
	}, nil
}

// normalizeKeys upper-cases choice keys and the correct choice ("b " -> "B") in place.
func normalizeKeys(item any) {
	q, ok := item.(map[string]any)
	if !ok {
		return
	}
	if cc, ok := q["correctChoice"].(string); ok {
		q["correctChoice"] = strings.ToUpper(strings.TrimSpace(cc))
	}
	if choices, ok := q["choices"].(map[string]any); ok {
		fixed := make(map[string]any, len(choices))
		for k, text := range choices {
			fixed[strings.ToUpper(strings.TrimSpace(k))] = text
		}
		q["choices"] = fixed
	}
}
