package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	openai "github.com/sashabaranov/go-openai"

	"github.com/legalsakhi/sakhi/pkg/gateway"
)

var _ = Describe("Upstream", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		gotReq  *http.Request
		gotBody openai.ChatCompletionRequest
	)

	BeforeEach(func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			gotReq = r
			Expect(json.NewDecoder(r.Body).Decode(&gotBody)).To(Succeed())
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	open := func() (*http.Response, error) {
		u, err := gateway.New(gateway.Config{URL: server.URL, APIKey: "sk-test"})
		Expect(err).NotTo(HaveOccurred())
		return u.Open(context.Background(), []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "be helpful"},
			{Role: openai.ChatMessageRoleUser, Content: "What are my rights?"},
		})
	}

	Describe("New", func() {
		It("requires an API key", func() {
			_, err := gateway.New(gateway.Config{APIKey: "  "})
			Expect(err).To(MatchError(gateway.ErrMissingAPIKey))
		})

		It("applies the default model", func() {
			u, err := gateway.New(gateway.Config{APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Model()).To(Equal(gateway.DefaultModel))
		})
	})

	Describe("Open", func() {
		It("posts a streaming chat completion with a bearer token", func() {
			resp, err := open()
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(gotReq.Method).To(Equal(http.MethodPost))
			Expect(gotReq.Header.Get("Authorization")).To(Equal("Bearer sk-test"))
			Expect(gotReq.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(gotBody.Stream).To(BeTrue())
			Expect(gotBody.Model).To(Equal(gateway.DefaultModel))
			Expect(gotBody.Messages).To(HaveLen(2))
			Expect(gotBody.Messages[1].Content).To(Equal("What are my rights?"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("data: [DONE]\n\n"))
		})

		DescribeTable("classifies non-2xx responses",
			func(status int, kind gateway.Kind) {
				handler = func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(status)
					_, _ = io.WriteString(w, `{"error":"nope"}`)
				}

				resp, err := open()
				Expect(resp).To(BeNil())

				var se *gateway.StatusError
				Expect(errors.As(err, &se)).To(BeTrue())
				Expect(se.StatusCode).To(Equal(status))
				Expect(se.Body).To(Equal(`{"error":"nope"}`))
				Expect(se.Kind()).To(Equal(kind))
			},
			Entry("rate limited", http.StatusTooManyRequests, gateway.KindRateLimited),
			Entry("quota exhausted", http.StatusPaymentRequired, gateway.KindQuotaExhausted),
			Entry("server error", http.StatusInternalServerError, gateway.KindFailure),
			Entry("bad request", http.StatusBadRequest, gateway.KindFailure),
		)

		It("reports a successful response without a body", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			}

			_, err := open()
			Expect(err).To(MatchError(gateway.ErrNoBody))
		})

		It("wraps transport failures", func() {
			u, err := gateway.New(gateway.Config{URL: "http://127.0.0.1:1", APIKey: "sk-test"})
			Expect(err).NotTo(HaveOccurred())

			_, err = u.Open(context.Background(), nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("calling gateway"))
		})
	})

	Describe("Kind", func() {
		It("has stable names", func() {
			Expect(gateway.KindRateLimited.String()).To(Equal("rate_limited"))
			Expect(gateway.KindQuotaExhausted.String()).To(Equal("quota_exhausted"))
			Expect(gateway.KindFailure.String()).To(Equal("failure"))
		})
	})
})
