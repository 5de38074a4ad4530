package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedError struct {
	msg  string
	code int
}

func (e *codedError) Error() string   { return e.msg }
func (e *codedError) StatusCode() int { return e.code }

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"plain error", errors.New("connection refused"), ClassTransient},
		{"quota message", errors.New("insufficient quota for this month"), ClassQuota},
		{"rate limit message", errors.New("Rate limit reached for requests"), ClassQuota},
		{"429 status", &codedError{msg: "too many requests", code: 429}, ClassQuota},
		{"500 status", &codedError{msg: "internal error", code: 500}, ClassTransient},
		{"wrapped 429", &codedError{msg: "upstream says no", code: 429}, ClassQuota},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultClassifier.Classify(tt.err))
		})
	}
}

func TestRuleClassifier(t *testing.T) {
	rc, err := NewRuleClassifier(`Code == 429 or Message contains "credit balance"`)
	require.NoError(t, err)

	assert.Equal(t, ClassQuota, rc.Classify(&codedError{msg: "slow down", code: 429}))
	assert.Equal(t, ClassQuota, rc.Classify(errors.New("your credit balance is too low")))
	assert.Equal(t, ClassTransient, rc.Classify(errors.New("connection reset")))

	// The default heuristic's triggers do not apply under a custom rule.
	assert.Equal(t, ClassTransient, rc.Classify(errors.New("quota exceeded")))
}

func TestRuleClassifierRejectsBadRule(t *testing.T) {
	_, err := NewRuleClassifier(`Message contains`)
	assert.Error(t, err)
}

func TestRuleClassifierNilError(t *testing.T) {
	rc, err := NewRuleClassifier(`Code == 429`)
	require.NoError(t, err)
	assert.Equal(t, ClassTransient, rc.Classify(nil))
}
