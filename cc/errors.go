package cc

import (
	"errors"
	"fmt"
	"strings"

	"xdao.co/cryptoconditions/oer"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	KindUnexpectedEndOfInput   Kind = "UnexpectedEndOfInput"
	KindUnsupportedLength      Kind = "UnsupportedLength"
	KindIllegalLengthIndicator Kind = "IllegalLengthIndicator"
	KindNonCanonical           Kind = "NonCanonical"
	KindIncompleteFulfillment  Kind = "IncompleteFulfillment"
	KindInvalidFulfillment     Kind = "InvalidFulfillment"
	KindInvalidCondition       Kind = "InvalidCondition"
	KindUnsatisfiableThreshold Kind = "UnsatisfiableThreshold"
	KindUnknownType            Kind = "UnknownType"
	KindCrypto                 Kind = "Crypto"
)

// Stable rule identifiers.
const (
	RuleUnexpectedEnd      = "CC-OER-001"
	RuleUnsupportedLength  = "CC-OER-002"
	RuleIllegalLength      = "CC-OER-003"
	RuleNonCanonical       = "CC-OER-004"
	RuleTrailingBytes      = "CC-OER-005"
	RuleMissingField       = "CC-FF-001"
	RuleUnknownType        = "CC-FF-002"
	RuleNesting            = "CC-FF-003"
	RuleRSAModulusRange    = "CC-FF-101"
	RuleRSASignatureLength = "CC-FF-102"
	RuleRSASignatureValue  = "CC-FF-103"
	RuleRSAExponent        = "CC-FF-104"
	RuleEd25519Length      = "CC-FF-111"
	RuleThresholdZero      = "CC-THR-001"
	RuleWeightZero         = "CC-THR-002"
	RuleThresholdRange     = "CC-THR-003"
	RuleUnsatisfiable      = "CC-THR-004"
	RuleEntryTag           = "CC-THR-005"
	RuleEntryOrder         = "CC-THR-006"
	RuleFeatures           = "CC-COND-001"
	RuleFingerprintLength  = "CC-COND-002"
	RuleConditionURI       = "CC-COND-003"
	RuleFulfillmentURI     = "CC-COND-004"
	RuleSign               = "CC-CRYPTO-001"
)

// Error is the library's structured error type.
//
// RuleID names the violated rule. Path holds the member indices leading
// from the outermost composite fulfillment to the failing one.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
	Path    []int
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if len(e.Path) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Path))
	for i, idx := range e.Path {
		parts[i] = fmt.Sprint(idx)
	}
	return "member " + strings.Join(parts, "/") + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

func wrapError(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// codecError maps an oer sentinel onto the matching Kind.
func codecError(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	msg := what + ": " + err.Error()
	switch {
	case errors.Is(err, oer.ErrUnexpectedEnd):
		return wrapError(KindUnexpectedEndOfInput, RuleUnexpectedEnd, msg, err)
	case errors.Is(err, oer.ErrIllegalLengthIndicator):
		return wrapError(KindIllegalLengthIndicator, RuleIllegalLength, msg, err)
	case errors.Is(err, oer.ErrNonCanonical):
		return wrapError(KindNonCanonical, RuleNonCanonical, msg, err)
	case errors.Is(err, oer.ErrUnsupportedLength):
		return wrapError(KindUnsupportedLength, RuleUnsupportedLength, msg, err)
	default:
		return wrapError(KindInvalidFulfillment, RuleMissingField, msg, err)
	}
}

// atMember prefixes the member index of a composite onto a structured error.
func atMember(err error, idx int) error {
	var e *Error
	if !errors.As(err, &e) {
		return err
	}
	out := *e
	out.Path = append([]int{idx}, e.Path...)
	return &out
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
