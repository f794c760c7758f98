package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		instruction string
		trigger     string
		response    string
	}{
		{
			name:        "when someone says",
			instruction: "when someone says hello respond with hi there",
			trigger:     "hello",
			response:    "hi there",
		},
		{
			name:        "multi word trigger and response",
			instruction: "when someone says hello chris respond with Hi there! I'm Chris!",
			trigger:     "hello chris",
			response:    "Hi there! I'm Chris!",
		},
		{
			name:        "add response for",
			instruction: "add response for good morning: Good morning! How can I help?",
			trigger:     "good morning",
			response:    "Good morning! How can I help?",
		},
		{
			name:        "if someone says say",
			instruction: "if someone says thank you say You're welcome!",
			trigger:     "thank you",
			response:    "You're welcome!",
		},
		{
			name:        "bare says respond with",
			instruction: "says hello respond with hi",
			trigger:     "hello",
			response:    "hi",
		},
		{
			name:        "quoted trigger and response",
			instruction: `when someone says 'good evening' respond with "Good evening! How can I help?"`,
			trigger:     "good evening",
			response:    "Good evening! How can I help?",
		},
		{
			name:        "trigger lower-cased",
			instruction: "when someone says HELLO THERE respond with hi",
			trigger:     "hello there",
			response:    "hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := Parse(tt.instruction)
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, rule.Trigger)
			assert.Equal(t, tt.response, rule.Response)
		})
	}
}

func TestParse_NoTemplate(t *testing.T) {
	for _, instruction := range []string{
		"",
		"please be nicer to callers",
		"respond faster",
	} {
		_, err := Parse(instruction)
		assert.ErrorIs(t, err, ErrNoTemplate, "instruction %q", instruction)
	}
}
