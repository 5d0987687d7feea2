package errors

import "strings"

// Outcome is how a failed remote call should be treated by the caller.
type Outcome int

const (
	// OutcomeFatal propagates the error.
	OutcomeFatal Outcome = iota
	// OutcomeAlreadyExists means the entity is already there; treat as success.
	OutcomeAlreadyExists
	// OutcomeAbsent means the entity was never there; treat a delete as done.
	OutcomeAbsent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyExists:
		return "already_exists"
	case OutcomeAbsent:
		return "absent"
	default:
		return "fatal"
	}
}

// Classifier decides what a remote failure means. The server reports most
// causes only as free text, so every vendor-specific pattern lives behind one
// of these instead of in business logic.
type Classifier interface {
	Classify(err error) Outcome
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(err error) Outcome

func (f ClassifierFunc) Classify(err error) Outcome {
	return f(err)
}

// PatternClassifier matches a RemoteError by status code first, then by
// case-insensitive substrings of its fault string or body.
// Errors that are not RemoteErrors are always fatal.
type PatternClassifier struct {
	Statuses      map[int]Outcome
	AlreadyExists []string
	Absent        []string
}

func (c PatternClassifier) Classify(err error) Outcome {
	re, ok := AsRemote(err)
	if !ok {
		return OutcomeFatal
	}
	if o, ok := c.Statuses[re.Status]; ok {
		return o
	}

	text := strings.ToLower(re.Text())
	if text == "" {
		return OutcomeFatal
	}
	for _, p := range c.AlreadyExists {
		if strings.Contains(text, strings.ToLower(p)) {
			return OutcomeAlreadyExists
		}
	}
	for _, p := range c.Absent {
		if strings.Contains(text, strings.ToLower(p)) {
			return OutcomeAbsent
		}
	}
	return OutcomeFatal
}
