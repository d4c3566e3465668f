package casefile

import (
	"fmt"
	"strings"
)

const (
	notSpecified = "Not specified"
	noAction     = "None"
)

// BuildPrompt renders the user prompt for f. Empty optional fields are
// replaced with placeholders so the model never sees a blank label.
func BuildPrompt(f Form) string {
	var b strings.Builder

	b.WriteString("Generate a legal case file based on the following details:\n\n")
	fmt.Fprintf(&b, "**Type of Legal Issue:** %s\n", f.IssueType)
	fmt.Fprintf(&b, "**Date of Incident:** %s\n", orDefault(f.IncidentDate, notSpecified))
	fmt.Fprintf(&b, "**Location:** %s\n", orDefault(f.Location, notSpecified))
	fmt.Fprintf(&b, "**State:** %s\n", orDefault(f.State, notSpecified))
	fmt.Fprintf(&b, "**Parties Involved:** %s\n", orDefault(f.PartiesInvolved, notSpecified))
	fmt.Fprintf(&b, "**Description of What Happened:** %s\n", f.Description)
	fmt.Fprintf(&b, "**Evidence Available:** %s\n", orDefault(f.EvidenceAvailable, notSpecified))
	fmt.Fprintf(&b, "**Action Already Taken:** %s\n", orDefault(f.ActionTaken, noAction))
	b.WriteString("\nPlease generate a comprehensive, structured case file.")

	return b.String()
}

// FileName returns the download name for a case file generated on date,
// formatted as YYYY-MM-DD.
func FileName(date string) string {
	return "Legal_Case_File_" + date + ".md"
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
