package ringbuffer_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sinuca-go/ringbuffer"
)

func TestRingBuffer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "RingBuffer Suite")
}

var _ = Describe("Buffer", func() {
	It("reports Empty on a fresh buffer", func() {
		b := ringbuffer.New[int](4)
		Expect(b.IsEmpty()).To(BeTrue())

		_, ok := b.Dequeue()
		Expect(ok).To(BeFalse())
	})

	It("enqueues and dequeues in FIFO order", func() {
		b := ringbuffer.New[int](4)

		Expect(b.Enqueue(1)).To(BeTrue())
		Expect(b.Enqueue(2)).To(BeTrue())
		Expect(b.Enqueue(3)).To(BeTrue())

		v, ok := b.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))

		v, ok = b.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(2))
	})

	It("reports Full exactly when count == capacity", func() {
		b := ringbuffer.New[int](2)

		Expect(b.Enqueue(1)).To(BeTrue())
		Expect(b.IsFull()).To(BeFalse())

		Expect(b.Enqueue(2)).To(BeTrue())
		Expect(b.IsFull()).To(BeTrue())

		Expect(b.Enqueue(3)).To(BeFalse())
	})

	It("behaves as a single-slot mailbox at capacity 1", func() {
		b := ringbuffer.New[int](1)

		Expect(b.Enqueue(42)).To(BeTrue())
		Expect(b.Enqueue(43)).To(BeFalse())

		v, ok := b.Dequeue()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(42))

		Expect(b.Enqueue(44)).To(BeTrue())
	})

	It("keeps 0 <= count <= capacity across wraparound", func() {
		b := ringbuffer.New[int](3)

		for round := 0; round < 10; round++ {
			Expect(b.Enqueue(round)).To(BeTrue())
			Expect(b.Enqueue(round)).To(BeTrue())
			Expect(b.Len()).To(BeNumerically("<=", b.Capacity()))

			_, _ = b.Dequeue()
			Expect(b.Len()).To(BeNumerically(">=", 0))
		}
	})

	It("empties atomically on Flush", func() {
		b := ringbuffer.New[int](4)
		b.Enqueue(1)
		b.Enqueue(2)

		b.Flush()

		Expect(b.IsEmpty()).To(BeTrue())
		Expect(b.Len()).To(Equal(0))
	})

	It("peeks without removing", func() {
		b := ringbuffer.New[int](2)
		b.Enqueue(7)

		v, ok := b.Peek()
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(7))
		Expect(b.Len()).To(Equal(1))
	})
})
