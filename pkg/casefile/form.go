// Package casefile holds the case-file questionnaire and turns a filled-in
// form into the prompt sent to the case-file generator.
package casefile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinDescriptionLength is the minimum length of the trimmed description.
const MinDescriptionLength = 20

// ErrInvalidForm is returned by Validate when the form cannot be submitted.
var ErrInvalidForm = errors.New("invalid case form")

var formValidate *validator.Validate

func init() {
	formValidate = validator.New()
	_ = formValidate.RegisterValidation("mintrimmed", validateMinTrimmed)
}

// validateMinTrimmed checks the rune length of a string field after
// surrounding whitespace is removed. The parameter is the minimum length.
func validateMinTrimmed(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
}

// Form is the case-file questionnaire. Only IssueType and Description are
// required; every other field may be left empty.
type Form struct {
	IssueType         string `json:"issueType" validate:"required"`
	IncidentDate      string `json:"incidentDate"`
	Location          string `json:"location"`
	State             string `json:"state"`
	PartiesInvolved   string `json:"partiesInvolved"`
	Description       string `json:"description" validate:"mintrimmed=20"`
	EvidenceAvailable string `json:"evidenceAvailable"`
	ActionTaken       string `json:"actionTaken"`
}

// Validate reports why the form cannot be submitted. The returned error wraps
// ErrInvalidForm.
func (f Form) Validate() error {
	err := formValidate.Struct(f)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	reasons := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Field() {
		case "IssueType":
			reasons = append(reasons, "an issue type is required")
		case "Description":
			reasons = append(reasons, fmt.Sprintf("the description needs at least %d characters", MinDescriptionLength))
		default:
			reasons = append(reasons, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidForm, strings.Join(reasons, "; "))
}

// CanSubmit reports whether the form passes Validate.
func (f Form) CanSubmit() bool {
	return f.Validate() == nil
}
