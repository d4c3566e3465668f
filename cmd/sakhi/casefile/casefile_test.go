package casefilecmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/legalsakhi/sakhi/pkg/casefile"
	"github.com/legalsakhi/sakhi/pkg/client"
	"github.com/legalsakhi/sakhi/pkg/conversation"
	"github.com/legalsakhi/sakhi/pkg/gateway"
	"github.com/legalsakhi/sakhi/pkg/logger"
	"github.com/legalsakhi/sakhi/pkg/sse"
)

func record(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]string{"content": content}}},
	})
	return "data: " + string(payload) + "\n\n"
}

type fakeStreamer struct {
	body  string
	err   error
	forms []casefile.Form
}

func (f *fakeStreamer) StreamCaseFile(_ context.Context, form casefile.Form) (*sse.Stream, error) {
	f.forms = append(f.forms, form)
	if f.err != nil {
		return nil, f.err
	}
	return sse.NewStream(strings.NewReader(f.body)), nil
}

var validForm = casefile.Form{
	IssueType:   "Salary not paid / Wage theft",
	Description: "My employer has not paid me for three months.",
	State:       "Karnataka",
}

var _ = Describe("NewCaseFileCmd", func() {
	It("creates a command with the correct use string and alias", func() {
		cmd := NewCaseFileCmd()
		Expect(cmd.Use).To(Equal("casefile"))
		Expect(cmd.Aliases).To(ContainElement("case-file"))
	})

	It("has a flag for every form field", func() {
		cmd := NewCaseFileCmd()
		for _, name := range []string{
			"issue-type", "incident-date", "location", "state",
			"parties", "description", "evidence", "action-taken",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("has output flags", func() {
		cmd := NewCaseFileCmd()
		Expect(cmd.Flags().Lookup("out").Shorthand).To(Equal("o"))
		Expect(cmd.Flags().Lookup("save")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("stream")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("copy")).NotTo(BeNil())
		Expect(cmd.Flags().Lookup("proxy-target")).NotTo(BeNil())
	})
})

var _ = Describe("casefileCommander", func() {
	var (
		out   *bytes.Buffer
		cmder *casefileCommander
		fake  *fakeStreamer
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		cmder = &casefileCommander{form: validForm, stdout: out, logger: logger.Nop()}
		fake = &fakeStreamer{body: record("# Case File\n") + record("## Summary\n") + "data: [DONE]\n\n"}
	})

	Describe("run", func() {
		It("refuses an incomplete form without asking when --no-form is set", func() {
			cmder.form = casefile.Form{IssueType: "Consumer complaint"}
			cmder.noForm = true

			err := cmder.run(context.Background())
			Expect(err).To(MatchError(casefile.ErrInvalidForm))
			Expect(err.Error()).To(ContainSubstring("description"))
		})
	})

	Describe("generate", func() {
		It("folds the streamed markdown into one document", func() {
			gen, err := cmder.generate(context.Background(), fake, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(gen.Step()).To(Equal(conversation.StepResult))
			Expect(gen.Content()).To(Equal("# Case File\n## Summary\n"))
			Expect(fake.forms).To(Equal([]casefile.Form{validForm}))
			Expect(out.String()).To(BeEmpty())
		})

		It("prints the document as it streams with --stream", func() {
			cmder.stream = true
			_, err := cmder.generate(context.Background(), fake, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.String()).To(Equal("# Case File\n## Summary\n\n"))
		})

		It("does not treat a cancelled stream as a finished case file", func() {
			fake.err = context.Canceled
			gen, err := cmder.generate(context.Background(), fake, false)
			Expect(err).To(MatchError(errIncomplete))
			Expect(gen).To(BeNil())
		})

		It("reports the cancelled context", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			fake.err = context.Canceled

			_, err := cmder.generate(ctx, fake, false)
			Expect(err).To(MatchError(errIncomplete))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("returns the user-facing message on failure", func() {
			fake.err = &gateway.StatusError{StatusCode: 402}
			_, err := cmder.generate(context.Background(), fake, false)
			Expect(err).To(MatchError(client.MsgUnavailable))
		})
	})

	Describe("print", func() {
		It("prints raw markdown outside a terminal", func() {
			cmder.print("# Case File", false)
			Expect(out.String()).To(Equal("# Case File\n"))
		})
	})

	Describe("write", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("does nothing without --out or --save", func() {
			Expect(cmder.write("content", time.Now())).To(Succeed())
			Expect(out.String()).To(BeEmpty())
		})

		It("writes to --out", func() {
			cmder.out = filepath.Join(dir, "salary.md")
			Expect(cmder.write("# Case File", time.Now())).To(Succeed())

			data, err := os.ReadFile(cmder.out)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("# Case File"))
			Expect(out.String()).To(ContainSubstring("salary.md"))
		})

		It("names the file after the date with --save", func() {
			wd, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(dir)).To(Succeed())
			DeferCleanup(os.Chdir, wd)

			cmder.save = true
			date := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
			Expect(cmder.write("# Case File", date)).To(Succeed())

			_, err = os.Stat(filepath.Join(dir, "Legal_Case_File_2025-03-09.md"))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

var _ = Describe("copyContent", func() {
	var (
		out    *bytes.Buffer
		cmder  *casefileCommander
		copied []string
	)

	BeforeEach(func() {
		out = &bytes.Buffer{}
		cmder = &casefileCommander{stdout: out, logger: logger.Nop()}
		copied = nil

		prev := writeClipboard
		writeClipboard = func(text string) error {
			copied = append(copied, text)
			return nil
		}
		DeferCleanup(func() { writeClipboard = prev })
	})

	It("does nothing without --copy", func() {
		Expect(cmder.copyContent("# Case File")).To(Succeed())
		Expect(copied).To(BeEmpty())
		Expect(out.String()).To(BeEmpty())
	})

	It("puts the case file on the clipboard", func() {
		cmder.copy = true
		Expect(cmder.copyContent("# Case File")).To(Succeed())
		Expect(copied).To(Equal([]string{"# Case File"}))
		Expect(out.String()).To(ContainSubstring("Copied to clipboard"))
	})

	It("wraps clipboard failures", func() {
		cmder.copy = true
		writeClipboard = func(string) error { return errors.New("no clipboard utility") }
		Expect(cmder.copyContent("# Case File")).To(MatchError(ContainSubstring("copying case file")))
	})
})

var _ = Describe("form validation", func() {
	DescribeTable("validateDate",
		func(input string, ok bool) {
			if ok {
				Expect(validateDate(input)).To(Succeed())
			} else {
				Expect(validateDate(input)).To(HaveOccurred())
			}
		},
		Entry("empty is allowed", "", true),
		Entry("ISO date", "2025-01-31", true),
		Entry("day first", "31-01-2025", false),
		Entry("impossible day", "2025-02-30", false),
	)

	It("counts the trimmed description in characters", func() {
		Expect(validateDescription("   too short   ")).To(HaveOccurred())
		Expect(validateDescription(strings.Repeat("क", casefile.MinDescriptionLength))).To(Succeed())
	})

	It("requires a value", func() {
		Expect(required("pick one")(" ")).To(MatchError("pick one"))
		Expect(required("pick one")("x")).To(Succeed())
	})

	It("offers an empty choice first", func() {
		opts := optional([]string{"Karnataka", "Kerala"})
		Expect(opts).To(HaveLen(3))
		Expect(opts[0].Value).To(BeEmpty())
		Expect(opts[1].Value).To(Equal("Karnataka"))
	})
})
