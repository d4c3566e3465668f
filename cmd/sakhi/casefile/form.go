package casefilecmder

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/huh"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/prompts"
)

// askForm fills the unanswered fields of f interactively. Answers already
// given as flags are kept as the initial values.
func askForm(f *casefile.Form, catalog *prompts.Catalog) error {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Case file").
				Description("Tell us what happened. Only the issue type and the description are required."),
			huh.NewSelect[string]().
				Title("Type of legal issue").
				Options(huh.NewOptions(catalog.IssueTypes...)...).
				Height(8).
				Value(&f.IssueType).
				Validate(required("Choose an issue type")),
			huh.NewText().
				Title("What happened?").
				Description(fmt.Sprintf("At least %d characters.", casefile.MinDescriptionLength)).
				Lines(5).
				CharLimit(5000).
				Value(&f.Description).
				Validate(validateDescription),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Date of incident").
				Placeholder("YYYY-MM-DD").
				Value(&f.IncidentDate).
				Validate(validateDate),
			huh.NewInput().
				Title("Location").
				Placeholder("City or area").
				Value(&f.Location),
			huh.NewSelect[string]().
				Title("State").
				Options(optional(catalog.States)...).
				Height(8).
				Value(&f.State),
			huh.NewInput().
				Title("Parties involved").
				Placeholder("Employer, landlord, company...").
				Value(&f.PartiesInvolved),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Evidence available").
				Options(optional(catalog.EvidenceOptions)...).
				Value(&f.EvidenceAvailable),
			huh.NewText().
				Title("Action already taken").
				Placeholder("Complaints filed, notices sent...").
				Lines(3).
				Value(&f.ActionTaken),
		),
	).WithTheme(huh.ThemeCharm())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("case file cancelled")
		}
		return fmt.Errorf("reading case details: %w", err)
	}
	return nil
}

// editContent lets the user revise the generated case file.
func editContent(content string) (string, error) {
	edited := content
	err := huh.NewText().
		Title("Review your case file").
		Description("Fix anything that is wrong. alt+enter adds a line, enter saves.").
		Lines(20).
		CharLimit(20000).
		Value(&edited).
		Run()
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return content, nil
		}
		return "", fmt.Errorf("editing case file: %w", err)
	}
	return edited, nil
}

// optional prepends an empty choice so a select can be left unanswered.
func optional(values []string) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(values)+1)
	opts = append(opts, huh.NewOption("Not specified", ""))
	return append(opts, huh.NewOptions(values...)...)
}

func required(msg string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New(msg)
		}
		return nil
	}
}

func validateDescription(s string) error {
	if utf8.RuneCountInString(strings.TrimSpace(s)) < casefile.MinDescriptionLength {
		return fmt.Errorf("please write at least %d characters", casefile.MinDescriptionLength)
	}
	return nil
}

func validateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, s); err != nil {
		return errors.New("use the YYYY-MM-DD format")
	}
	return nil
}
