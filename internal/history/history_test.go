package history_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/history"
)

// snap builds a one-block snapshot whose gain value identifies it.
func snap(k float64) []*block.Instance {
	in, err := block.Instantiate("gain", map[string]float64{"K": k})
	Expect(err).NotTo(HaveOccurred())
	return []*block.Instance{in}
}

func gainOf(e history.Entry) float64 {
	Expect(e.Blocks).To(HaveLen(1))
	return e.Blocks[0].Params["K"]
}

var _ = Describe("Log", func() {
	var log *history.Log

	BeforeEach(func() {
		log = history.New(history.DefaultCapacity)
	})

	Context("when empty", func() {
		It("refuses undo and redo", func() {
			_, err := log.Undo()
			Expect(err).To(MatchError(history.ErrNothingToUndo))
			_, err = log.Redo()
			Expect(err).To(MatchError(history.ErrNothingToRedo))
			Expect(log.CanUndo()).To(BeFalse())
			Expect(log.CanRedo()).To(BeFalse())
		})

		It("has no current entry", func() {
			_, ok := log.Current()
			Expect(ok).To(BeFalse())
		})
	})

	Context("with a single committed entry", func() {
		BeforeEach(func() {
			log.Commit("init", snap(1))
		})

		It("is at the bottom: no undo yet", func() {
			Expect(log.CanUndo()).To(BeFalse())
			_, err := log.Undo()
			Expect(err).To(MatchError(history.ErrNothingToUndo))
		})

		It("exposes the committed entry as current", func() {
			cur, ok := log.Current()
			Expect(ok).To(BeTrue())
			Expect(cur.Action).To(Equal("init"))
			Expect(cur.At).NotTo(BeZero())
		})
	})

	Context("after a sequence of commits", func() {
		BeforeEach(func() {
			log.Commit("init", snap(1))
			log.Commit("set K=2", snap(2))
			log.Commit("set K=3", snap(3))
		})

		It("undo walks back one state at a time", func() {
			e, err := log.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(gainOf(e)).To(Equal(2.0))

			e, err = log.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(gainOf(e)).To(Equal(1.0))

			_, err = log.Undo()
			Expect(err).To(MatchError(history.ErrNothingToUndo))
		})

		It("redo after undo restores the undone state", func() {
			_, err := log.Undo()
			Expect(err).NotTo(HaveOccurred())

			e, err := log.Redo()
			Expect(err).NotTo(HaveOccurred())
			Expect(gainOf(e)).To(Equal(3.0))
			Expect(log.CanRedo()).To(BeFalse())
		})

		It("committing after undo discards the redo tail", func() {
			_, err := log.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(log.CanRedo()).To(BeTrue())

			log.Commit("set K=4", snap(4))
			Expect(log.CanRedo()).To(BeFalse())
			_, err = log.Redo()
			Expect(err).To(MatchError(history.ErrNothingToRedo))
			Expect(log.Len()).To(Equal(3))

			// The discarded K=3 state is gone: undo now reaches K=2.
			e, err := log.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(gainOf(e)).To(Equal(2.0))
		})
	})

	Context("when committed past capacity", func() {
		BeforeEach(func() {
			for i := 1; i <= 150; i++ {
				log.Commit("edit", snap(float64(i)/10))
			}
		})

		It("retains exactly the capacity, evicting the oldest", func() {
			Expect(log.Len()).To(Equal(history.DefaultCapacity))
		})

		It("bottoms out at the oldest retained entry", func() {
			for log.CanUndo() {
				_, err := log.Undo()
				Expect(err).NotTo(HaveOccurred())
			}
			cur, ok := log.Current()
			Expect(ok).To(BeTrue())
			// Commits 1..50 were evicted; the floor is commit 51.
			Expect(gainOf(cur)).To(Equal(5.1))
			_, err := log.Undo()
			Expect(err).To(MatchError(history.ErrNothingToUndo))
		})

		It("still redoes forward to the newest entry", func() {
			for log.CanUndo() {
				_, err := log.Undo()
				Expect(err).NotTo(HaveOccurred())
			}
			var last history.Entry
			for log.CanRedo() {
				e, err := log.Redo()
				Expect(err).NotTo(HaveOccurred())
				last = e
			}
			Expect(gainOf(last)).To(Equal(15.0))
		})
	})

	Context("with a tiny capacity", func() {
		BeforeEach(func() {
			log = history.New(2)
			log.Commit("a", snap(1))
			log.Commit("b", snap(2))
			log.Commit("c", snap(3))
		})

		It("holds only the newest two entries", func() {
			Expect(log.Len()).To(Equal(2))
			e, err := log.Undo()
			Expect(err).NotTo(HaveOccurred())
			Expect(gainOf(e)).To(Equal(2.0))
			Expect(log.CanUndo()).To(BeFalse())
		})
	})
})
