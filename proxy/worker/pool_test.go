package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/legalsakhi/sakhi/pkg/eventstream"
	"github.com/legalsakhi/sakhi/pkg/logger"
)

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.ExchangeCompletedEvent
	err    error
	block  chan struct{}
}

func (r *recordingPublisher) Publish(_ context.Context, event *eventstream.ExchangeCompletedEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) published() []*eventstream.ExchangeCompletedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventstream.ExchangeCompletedEvent(nil), r.events...)
}

func newEvent(endpoint string, deltas int) *eventstream.ExchangeCompletedEvent {
	return eventstream.NewExchangeCompletedEvent(
		eventstream.EventSource{Endpoint: endpoint, Model: "test-model"},
		eventstream.RequestMeta{HTTPStatus: 200, MessageCount: 2},
		eventstream.StreamMeta{Deltas: deltas, Terminated: true},
	)
}

// newTestPool creates a worker pool backed by a recording publisher.
// Callers should "wp.Close()" to drain enqueued jobs before asserting state.
func newTestPool(pub *recordingPublisher, queueSize uint) *Pool {
	wp, err := NewPool(&Config{
		Publisher:  pub,
		NumWorkers: 1,
		QueueSize:  queueSize,
		Logger:     logger.Nop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return wp
}

var _ = Describe("Worker Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	Describe("NewPool", func() {
		It("requires a publisher", func() {
			_, err := NewPool(&Config{Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
		})

		It("applies defaults", func() {
			c := &Config{Publisher: pub, Logger: logger.Nop()}
			wp, err := NewPool(c)
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(c.NumWorkers).To(Equal(defaultNumWorkers))
			Expect(c.QueueSize).To(Equal(defaultJobQueueSize))
			Expect(c.PublishTimeout).To(Equal(defaultPublishTimeout))
		})
	})

	Describe("Enqueue", func() {
		It("returns true when the queue has capacity", func() {
			wp := newTestPool(pub, 4)
			Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 3)})).To(BeTrue())
			wp.Close()

			Expect(pub.published()).To(HaveLen(1))
		})

		It("rejects jobs without an event", func() {
			wp := newTestPool(pub, 4)
			defer wp.Close()
			Expect(wp.Enqueue(Job{})).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			pub.block = make(chan struct{})
			wp := newTestPool(pub, 1)

			// The single worker takes the first job and blocks on it.
			Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 1)})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(BeZero())

			Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 2)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 3)})).To(BeFalse())

			close(pub.block)
			wp.Close()
			Expect(pub.published()).To(HaveLen(2))
		})

		It("drops jobs after Close", func() {
			wp := newTestPool(pub, 4)
			wp.Close()
			Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 1)})).To(BeFalse())
		})
	})

	Describe("Close", func() {
		It("drains every queued job before returning", func() {
			wp := newTestPool(pub, 16)
			for i := range 10 {
				Expect(wp.Enqueue(Job{Event: newEvent("generate-case-file", i)})).To(BeTrue())
			}
			wp.Close()

			events := pub.published()
			Expect(events).To(HaveLen(10))
			for i, e := range events {
				Expect(e.Stream.Deltas).To(Equal(i))
			}
		})

		It("is safe to call twice", func() {
			wp := newTestPool(pub, 1)
			wp.Close()
			Expect(wp.Close).NotTo(Panic())
		})
	})

	It("keeps working after a publish failure", func() {
		pub.err = errors.New("broker down")
		wp := newTestPool(pub, 4)
		Expect(wp.Enqueue(Job{Event: newEvent("legal-chat", 1)})).To(BeTrue())
		wp.Close()
		Expect(pub.published()).To(BeEmpty())
	})
})
