package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns the validator used for inbound webhook payloads. Commerce
// payloads are checked structurally only (a present order id); business
// correctness is the storefront's concern, and a well-formed-but-irrelevant
// event must never be rejected with a 4xx.
func New() *validatorv10.Validate {
	return validatorv10.New()
}
