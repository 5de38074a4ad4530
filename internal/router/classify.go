package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrorClass partitions adapter failures for routing purposes.
type ErrorClass int

const (
	// ClassTransient covers ordinary failures: network errors,
	// timeouts, 5xx responses. Eligible for in-candidate retry.
	ClassTransient ErrorClass = iota

	// ClassQuota marks quota/rate-limit exhaustion. The provider is
	// put on a quota cooldown and the error is never retried.
	ClassQuota
)

// Classifier decides what an adapter error means for routing. Quota
// detection is inherently provider-specific, so each provider carries
// its own classifier rather than the router guessing from prose.
type Classifier interface {
	Classify(err error) ErrorClass
}

// statusCoder is implemented by upstream errors that carry an HTTP
// status code (see internal/providers.UpstreamError).
type statusCoder interface {
	StatusCode() int
}

func errorCode(err error) int {
	var sc statusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// ── Default heuristic ────────────────────────────────────────

// defaultClassifier reproduces the classic heuristic: HTTP 429, or a
// message mentioning quota/rate limiting, means quota exhaustion.
type defaultClassifier struct{}

// DefaultClassifier is shared by all providers without a custom rule.
var DefaultClassifier Classifier = defaultClassifier{}

func (defaultClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}
	if errorCode(err) == http.StatusTooManyRequests {
		return ClassQuota
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") {
		return ClassQuota
	}
	return ClassTransient
}

// ── Rule-based classifier ────────────────────────────────────

// classifyEnv is the expression environment a rule evaluates against.
type classifyEnv struct {
	Message string `expr:"Message"`
	Code    int    `expr:"Code"`
}

// RuleClassifier classifies via a compiled expr boolean rule, e.g.
//
//	Code == 429 or Message contains "insufficient_quota"
//
// A rule returning true means quota exhaustion.
type RuleClassifier struct {
	rule    string
	program *vm.Program
}

// NewRuleClassifier compiles a per-provider classification rule.
func NewRuleClassifier(rule string) (*RuleClassifier, error) {
	program, err := expr.Compile(rule, expr.Env(classifyEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile classify rule %q: %w", rule, err)
	}
	return &RuleClassifier{rule: rule, program: program}, nil
}

func (c *RuleClassifier) Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}
	out, runErr := expr.Run(c.program, classifyEnv{
		Message: err.Error(),
		Code:    errorCode(err),
	})
	if runErr != nil {
		// A broken rule must not mask the failure itself.
		return ClassTransient
	}
	if quota, ok := out.(bool); ok && quota {
		return ClassQuota
	}
	return ClassTransient
}
