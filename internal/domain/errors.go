package domain

import "errors"

var (
	// ErrInvalidInput is returned for a nonsensical quiz config or answer submission.
	ErrInvalidInput = errors.New("invalid input")
	// ErrExtractionFailed indicates the uploaded document could not be parsed.
	ErrExtractionFailed = errors.New("document extraction failed")
	// ErrEmptyDocument indicates the document parsed but held no usable text (e.g. a scan).
	ErrEmptyDocument = errors.New("document contains no extractable text")
	// ErrModelInvocation wraps transport or service failures of the model backend.
	ErrModelInvocation = errors.New("model invocation failed")
	// ErrMalformedModelOutput means neither the strict nor the tolerant parse accepted the model text.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrUnexpectedResponseShape means the model returned valid JSON that is not a quiz.
	ErrUnexpectedResponseShape = errors.New("unexpected model response shape")
	// ErrQuizNotFound indicates the quiz does not exist in the store.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoAnswers is returned when evaluating a quiz nobody has answered yet.
	ErrNoAnswers = errors.New("no answers submitted for quiz")
)
