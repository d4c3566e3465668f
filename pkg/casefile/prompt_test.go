package casefile_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/legalsakhi/sakhi/pkg/casefile"
)

var _ = Describe("BuildPrompt", func() {
	It("fills placeholders for empty optional fields", func() {
		prompt := casefile.BuildPrompt(casefile.Form{
			IssueType:   "Consumer complaint",
			Description: "The shop refused to replace a faulty phone.",
		})

		Expect(prompt).To(Equal("Generate a legal case file based on the following details:\n\n" +
			"**Type of Legal Issue:** Consumer complaint\n" +
			"**Date of Incident:** Not specified\n" +
			"**Location:** Not specified\n" +
			"**State:** Not specified\n" +
			"**Parties Involved:** Not specified\n" +
			"**Description of What Happened:** The shop refused to replace a faulty phone.\n" +
			"**Evidence Available:** Not specified\n" +
			"**Action Already Taken:** None\n" +
			"\nPlease generate a comprehensive, structured case file."))
	})

	It("uses every provided field", func() {
		prompt := casefile.BuildPrompt(casefile.Form{
			IssueType:         "Tenant-landlord dispute",
			IncidentDate:      "2025-03-01",
			Location:          "Pune",
			State:             "Maharashtra",
			PartiesInvolved:   "Landlord Mr. X",
			Description:       "Deposit not returned after vacating.",
			EvidenceAvailable: "Yes — Messages / Chats",
			ActionTaken:       "Sent a reminder on WhatsApp",
		})

		Expect(prompt).To(ContainSubstring("**Date of Incident:** 2025-03-01\n"))
		Expect(prompt).To(ContainSubstring("**Location:** Pune\n"))
		Expect(prompt).To(ContainSubstring("**State:** Maharashtra\n"))
		Expect(prompt).To(ContainSubstring("**Parties Involved:** Landlord Mr. X\n"))
		Expect(prompt).To(ContainSubstring("**Evidence Available:** Yes — Messages / Chats\n"))
		Expect(prompt).To(ContainSubstring("**Action Already Taken:** Sent a reminder on WhatsApp\n"))
		Expect(prompt).NotTo(ContainSubstring("Not specified"))
	})
})

var _ = Describe("FileName", func() {
	It("names the markdown download by date", func() {
		Expect(casefile.FileName("2025-06-30")).To(Equal("Legal_Case_File_2025-06-30.md"))
	})
})
