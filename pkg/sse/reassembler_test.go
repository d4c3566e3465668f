package sse_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/legalsakhi/sakhi/pkg/sse"
)

// deltaRecord builds a single OpenAI-style streaming record carrying content.
func deltaRecord(content string) string {
	payload, err := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion.chunk",
		"choices": []map[string]any{
			{"index": 0, "delta": map[string]any{"content": content}},
		},
	})
	Expect(err).NotTo(HaveOccurred())
	return "data: " + string(payload) + "\n\n"
}

// feedAll feeds every chunk and flushes, failing the test on any error.
func feedAll(r *sse.Reassembler, chunks ...string) []string {
	var out []string
	for _, c := range chunks {
		deltas, err := r.Feed([]byte(c))
		Expect(err).NotTo(HaveOccurred())
		out = append(out, deltas...)
	}
	return append(out, r.Flush()...)
}

var _ = Describe("Reassembler", func() {
	var r *sse.Reassembler

	BeforeEach(func() {
		r = sse.NewReassembler()
	})

	Describe("Feed", func() {
		It("yields exactly one delta for a single record", func() {
			deltas, err := r.Feed([]byte(`data: {"choices":[{"delta":{"content":"hi"}}]}` + "\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"hi"}))
			Expect(r.Flush()).To(BeEmpty())
		})

		It("yields deltas in arrival order", func() {
			deltas, err := r.Feed([]byte(deltaRecord("Hel") + deltaRecord("lo") + deltaRecord(" world")))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"Hel", "lo", " world"}))
		})

		It("ignores comments and blank lines", func() {
			out := feedAll(r, ": keep-alive\n\n", "\n\n   \n", ": another\r\n")
			Expect(out).To(BeEmpty())
			Expect(r.Terminated()).To(BeFalse())
		})

		It("ignores lines without the literal data prefix", func() {
			out := feedAll(r,
				"event: message\n",
				`data:{"choices":[{"delta":{"content":"no-space"}}]}`+"\n",
				"id: 7\n\n",
			)
			Expect(out).To(BeEmpty())
		})

		It("strips a trailing carriage return before classifying", func() {
			deltas, err := r.Feed([]byte(`data: {"choices":[{"delta":{"content":"crlf"}}]}` + "\r\n\r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"crlf"}))
		})

		It("skips records with absent or empty content", func() {
			out := feedAll(r,
				`data: {"choices":[{"delta":{"role":"assistant"}}]}`+"\n\n",
				`data: {"choices":[{"delta":{"content":""}}]}`+"\n\n",
				`data: {"choices":[]}`+"\n\n",
				`data: {"usage":{"prompt_tokens":3}}`+"\n\n",
				`data: 42`+"\n\n",
			)
			Expect(out).To(BeEmpty())
		})

		It("reads only the first choice", func() {
			deltas, err := r.Feed([]byte(`data: {"choices":[{"delta":{"content":"a"}},{"delta":{"content":"b"}}]}` + "\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"a"}))
		})

		It("keeps an unterminated line for the next chunk", func() {
			deltas, err := r.Feed([]byte(`data: {"choices":[{"delta":{"con`))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(BeEmpty())
			Expect(r.Buffered()).To(BeNumerically(">", 0))

			deltas, err = r.Feed([]byte(`tent":"hi"}}]}` + "\n\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"hi"}))
			Expect(r.Buffered()).To(BeZero())
		})

		It("reassembles a multi-byte character split across chunks", func() {
			record := []byte(deltaRecord("नमस्ते"))
			split := strings.Index(string(record), "न") + 1

			first, err := r.Feed(record[:split])
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeEmpty())

			second, err := r.Feed(record[split:])
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal([]string{"नमस्ते"}))
		})
	})

	Describe("done sentinel", func() {
		It("stops processing at the sentinel within the same chunk", func() {
			deltas, err := r.Feed([]byte(deltaRecord("before") + "data: [DONE]\n\n" + deltaRecord("after")))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(Equal([]string{"before"}))
			Expect(r.Terminated()).To(BeTrue())
		})

		It("never parses bytes in later chunks or in the final flush", func() {
			out := feedAll(r, deltaRecord("one")+"data: [DONE]\n\ndata: {\"choices\":[{\"delta\":", `{"content":"late"}}]}`+"\n\n")
			Expect(out).To(Equal([]string{"one"}))
			Expect(r.Buffered()).To(BeZero())
		})

		It("tolerates surrounding whitespace in the sentinel payload", func() {
			_, err := r.Feed([]byte("data:  [DONE]  \r\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Terminated()).To(BeTrue())
		})
	})

	Describe("malformed records", func() {
		It("pushes a malformed line back and stops framing for the chunk", func() {
			deltas, err := r.Feed([]byte("data: {broken\n" + deltaRecord("queued")))
			Expect(err).NotTo(HaveOccurred())
			Expect(deltas).To(BeEmpty())
			Expect(r.Buffered()).To(BeNumerically(">", len("data: {broken\n")))
		})

		It("drops the malformed line during the final flush and keeps the rest", func() {
			out := feedAll(r, "data: {broken\n"+deltaRecord("kept"))
			Expect(out).To(Equal([]string{"kept"}))
		})

		It("fails closed once the pushback limit is exceeded", func() {
			r = sse.NewReassembler(sse.WithMaxPushbacks(2))

			_, err := r.Feed([]byte("data: {broken\n"))
			Expect(err).NotTo(HaveOccurred())
			_, err = r.Feed([]byte(": ping\n"))
			Expect(err).NotTo(HaveOccurred())
			_, err = r.Feed([]byte(": ping\n"))
			Expect(err).To(MatchError(sse.ErrMalformedRecord))
		})

		It("retries forever when the pushback limit is disabled", func() {
			r = sse.NewReassembler(sse.WithMaxPushbacks(0))

			for range 50 {
				_, err := r.Feed([]byte(": ping\n"))
				Expect(err).NotTo(HaveOccurred())
				_, err = r.Feed([]byte("data: {broken\n"))
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("fails closed when the buffered tail grows past the limit", func() {
			r = sse.NewReassembler(sse.WithMaxBuffer(32))

			_, err := r.Feed([]byte("data: " + strings.Repeat("x", 64)))
			Expect(err).To(MatchError(sse.ErrBufferOverflow))
		})
	})

	Describe("Flush", func() {
		It("parses a final line without a trailing newline", func() {
			out := feedAll(r, `data: {"choices":[{"delta":{"content":"tail"}}]}`)
			Expect(out).To(Equal([]string{"tail"}))
		})

		It("returns nothing for an empty buffer", func() {
			Expect(r.Flush()).To(BeEmpty())
		})

		It("stops at a sentinel left in the buffer", func() {
			_, err := r.Feed([]byte("data: {broken\n" + deltaRecord("a") + "data: [DONE]\n" + deltaRecord("b")))
			Expect(err).NotTo(HaveOccurred())

			Expect(r.Flush()).To(Equal([]string{"a"}))
			Expect(r.Terminated()).To(BeTrue())
		})
	})
})
