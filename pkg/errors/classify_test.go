package errors

import (
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPatternClassifier(t *testing.T) {
	c := PatternClassifier{
		Statuses:      map[int]Outcome{http.StatusConflict: OutcomeAlreadyExists},
		AlreadyExists: []string{"already exists in the system"},
		Absent:        []string{"not found", "not authorized"},
	}

	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{name: "conflict status", err: &RemoteError{Status: 409}, want: OutcomeAlreadyExists},
		{name: "fault text", err: &RemoteError{Status: 500, Fault: "UserAlreadyExisting:Username already exists in the system. Please pick another username."}, want: OutcomeAlreadyExists},
		{name: "body text when no fault", err: &RemoteError{Status: 500, Body: "<x>Application Not Found</x>"}, want: OutcomeAbsent},
		{name: "wrapped", err: Wrap(fmt.Errorf("call: %w", &RemoteError{Status: 500, Fault: "User not authorized"}), ErrCodeRemoteFault, "delete"), want: OutcomeAbsent},
		{name: "other fault", err: &RemoteError{Status: 500, Fault: "Internal error"}, want: OutcomeFatal},
		{name: "empty text", err: &RemoteError{Status: 500}, want: OutcomeFatal},
		{name: "transport error", err: io.ErrUnexpectedEOF, want: OutcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestClassifierFunc(t *testing.T) {
	c := ClassifierFunc(func(error) Outcome { return OutcomeAbsent })
	assert.Equal(t, OutcomeAbsent, c.Classify(io.EOF))
	assert.Equal(t, "absent", OutcomeAbsent.String())
	assert.Equal(t, "fatal", OutcomeFatal.String())
}

func TestRemoteErrorText(t *testing.T) {
	e := &RemoteError{Method: "POST", URL: "https://h/services/X", Status: 500, Body: "<xml/>", Fault: "boom"}
	assert.Equal(t, "boom", e.Text())
	assert.Contains(t, e.Error(), "fault: boom")

	e.Fault = ""
	assert.Equal(t, "<xml/>", e.Text())

	re, ok := AsRemote(fmt.Errorf("wrapped: %w", e))
	assert.True(t, ok)
	assert.Same(t, e, re)
}
