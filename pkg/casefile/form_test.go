package casefile_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/legalsakhi/sakhi/pkg/casefile"
)

var _ = Describe("Form", func() {
	var form casefile.Form

	BeforeEach(func() {
		form = casefile.Form{
			IssueType:   "Salary not paid / Wage theft",
			Description: "My employer has not paid me for three months.",
		}
	})

	Describe("Validate", func() {
		It("accepts the two required fields", func() {
			Expect(form.Validate()).To(Succeed())
			Expect(form.CanSubmit()).To(BeTrue())
		})

		It("requires an issue type", func() {
			form.IssueType = ""
			err := form.Validate()
			Expect(err).To(MatchError(casefile.ErrInvalidForm))
			Expect(err.Error()).To(ContainSubstring("issue type"))
			Expect(form.CanSubmit()).To(BeFalse())
		})

		It("rejects a description shorter than the minimum once trimmed", func() {
			form.Description = "   " + strings.Repeat("a", 19) + "   "
			err := form.Validate()
			Expect(err).To(MatchError(casefile.ErrInvalidForm))
			Expect(err.Error()).To(ContainSubstring("at least 20 characters"))
		})

		It("accepts a description of exactly the minimum length", func() {
			form.Description = strings.Repeat("a", casefile.MinDescriptionLength)
			Expect(form.CanSubmit()).To(BeTrue())
		})

		It("counts characters rather than bytes", func() {
			form.Description = strings.Repeat("क", 19)
			Expect(form.CanSubmit()).To(BeFalse())

			form.Description = strings.Repeat("क", 20)
			Expect(form.CanSubmit()).To(BeTrue())
		})

		It("reports every failing field", func() {
			err := casefile.Form{}.Validate()
			Expect(err.Error()).To(ContainSubstring("issue type"))
			Expect(err.Error()).To(ContainSubstring("description"))
		})
	})

	It("uses camelCase keys on the wire", func() {
		form.IncidentDate = "2025-01-15"
		form.PartiesInvolved = "ABC Pvt Ltd"

		payload, err := json.Marshal(form)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]string
		Expect(json.Unmarshal(payload, &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("issueType", form.IssueType))
		Expect(got).To(HaveKeyWithValue("incidentDate", "2025-01-15"))
		Expect(got).To(HaveKeyWithValue("partiesInvolved", "ABC Pvt Ltd"))
		Expect(got).To(HaveKey("evidenceAvailable"))
		Expect(got).To(HaveKey("actionTaken"))
	})
})
