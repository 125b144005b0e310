package cc

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	conditionScheme   = "cc"
	fulfillmentScheme = "cf"
)

var b64 = base64.RawURLEncoding

// URI renders c as cc:<type hex>:<feature bitmask hex>:<base64url fingerprint>:<max length>.
func (c Condition) URI() string {
	return fmt.Sprintf("%s:%x:%x:%s:%d", conditionScheme, uint16(c.typ), uint8(c.features), b64.EncodeToString(c.fingerprint), c.maxLength)
}

func ParseConditionURI(s string) (Condition, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 5 || parts[0] != conditionScheme {
		return Condition{}, newError(KindInvalidCondition, RuleConditionURI, "condition URI must have the form cc:type:features:fingerprint:maxlength")
	}
	code, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return Condition{}, wrapError(KindInvalidCondition, RuleConditionURI, "condition URI type: "+err.Error(), err)
	}
	mask, err := strconv.ParseUint(parts[2], 16, 8)
	if err != nil {
		return Condition{}, wrapError(KindInvalidCondition, RuleConditionURI, "condition URI features: "+err.Error(), err)
	}
	fp, err := b64.DecodeString(parts[3])
	if err != nil {
		return Condition{}, wrapError(KindInvalidCondition, RuleConditionURI, "condition URI fingerprint: "+err.Error(), err)
	}
	maxLength, err := strconv.ParseUint(parts[4], 10, 32)
	if err != nil {
		return Condition{}, wrapError(KindInvalidCondition, RuleConditionURI, "condition URI max length: "+err.Error(), err)
	}
	c, err := newCondition(Type(code), Features(mask), fp, int(maxLength))
	if err != nil {
		return Condition{}, err
	}
	if c.URI() != strings.TrimSpace(s) {
		return Condition{}, newError(KindNonCanonical, RuleConditionURI, "condition URI is not in canonical form")
	}
	return c, nil
}

// FulfillmentURI renders f as cf:<type hex>:<base64url payload>.
func FulfillmentURI(f Fulfillment) (string, error) {
	if isNil(f) {
		return "", newError(KindIncompleteFulfillment, RuleMissingField, "missing fulfillment")
	}
	payload, err := f.payload(defaultProvider)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%x:%s", fulfillmentScheme, uint16(f.Type()), b64.EncodeToString(payload)), nil
}

func ParseFulfillmentURI(s string) (Fulfillment, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 || parts[0] != fulfillmentScheme {
		return nil, newError(KindInvalidFulfillment, RuleFulfillmentURI, "fulfillment URI must have the form cf:type:payload")
	}
	code, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return nil, wrapError(KindInvalidFulfillment, RuleFulfillmentURI, "fulfillment URI type: "+err.Error(), err)
	}
	payload, err := b64.DecodeString(parts[2])
	if err != nil {
		return nil, wrapError(KindInvalidFulfillment, RuleFulfillmentURI, "fulfillment URI payload: "+err.Error(), err)
	}
	return decodePayload(Type(code), payload, 0)
}
