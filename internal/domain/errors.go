package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure. Kinds are comparable constants so
// callers can match them with errors.Is.
type ErrorKind string

func (k ErrorKind) Error() string {
	return string(k) + " error"
}

const (
	ErrValidation          ErrorKind = "validation"
	ErrConfig              ErrorKind = "config"
	ErrTimeout             ErrorKind = "timeout"
	ErrNetwork             ErrorKind = "network"
	ErrAuth                ErrorKind = "auth"
	ErrRateLimit           ErrorKind = "rate_limit"
	ErrUpstream            ErrorKind = "upstream"
	ErrUpstreamUnavailable ErrorKind = "upstream_unavailable"
	ErrParse               ErrorKind = "parse"
)

// ErrorKinds lists every kind in a stable order.
var ErrorKinds = []ErrorKind{
	ErrValidation,
	ErrConfig,
	ErrTimeout,
	ErrNetwork,
	ErrAuth,
	ErrRateLimit,
	ErrUpstream,
	ErrUpstreamUnavailable,
	ErrParse,
}

// Parse step names reported by the response normalizer.
const (
	StepEnvelope     = "unrecognized envelope"
	StepNoJSON       = "no JSON object found"
	StepMalformed    = "malformed JSON"
	StepMissingField = "missing field"
)

// Error carries a failure kind together with the context it happened in.
type Error struct {
	Kind   ErrorKind
	Op     string
	Step   string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (http %d)", e.Status)
	}
	if e.Step != "" {
		b.WriteString(": ")
		b.WriteString(e.Step)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the ErrorKind carried by err, or "" when err is not a
// pipeline failure.
func KindOf(err error) ErrorKind {
	var pipelineErr *Error
	if errors.As(err, &pipelineErr) {
		return pipelineErr.Kind
	}
	for _, kind := range ErrorKinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ""
}

// Transient reports whether a failure of this kind may succeed on retry.
func (k ErrorKind) Transient() bool {
	switch k {
	case ErrTimeout, ErrNetwork, ErrRateLimit, ErrUpstream, ErrUpstreamUnavailable:
		return true
	default:
		return false
	}
}

// NewParseError builds an ErrParse failure for the given normalizer step.
func NewParseError(step, detail string, cause error) *Error {
	return &Error{Kind: ErrParse, Op: "normalize response", Step: step, Detail: detail, Err: cause}
}
