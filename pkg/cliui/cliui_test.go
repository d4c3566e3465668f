package cliui

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FormatDuration", func() {
	It("uses milliseconds below one second", func() {
		Expect(FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("uses seconds with one decimal above", func() {
		Expect(FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Step", func() {
	It("returns the error of fn and prints the message", func() {
		var buf bytes.Buffer
		boom := errors.New("boom")

		err := Step(&buf, "generating", func() error { return boom })
		Expect(err).To(MatchError(boom))
		Expect(buf.String()).To(ContainSubstring("generating"))
		Expect(buf.String()).To(HaveSuffix("\n"))
	})

	It("marks success", func() {
		var buf bytes.Buffer
		Expect(Step(&buf, "ok", func() error { return nil })).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(SuccessMark))
	})
})

var _ = Describe("renderMarkdown", func() {
	It("renders headings without color in notty mode", func() {
		out, err := renderMarkdown("# Case File\n\nSome **facts**.", 60, "notty")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Case File"))
		Expect(out).To(ContainSubstring("facts"))
	})

	It("falls back to width 80", func() {
		out, err := renderMarkdown("plain", 0, "notty")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("plain"))
	})
})
