package profiling

import (
	"errors"

	gomock "go.uber.org/mock/gomock"

	ginkgo "github.com/onsi/ginkgo/v2"
	gomega "github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Recorder", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		r          *Recorder
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		r = NewRecorderWithTimeTeller(timeTeller)
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should record one task", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(5))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		snapshot := r.Snapshot()
		gomega.Expect(snapshot).To(gomega.HaveLen(1))
		gomega.Expect(snapshot[0].StartTime).To(gomega.Equal(TimeNanos(1)))
		gomega.Expect(snapshot[0].EndTime).To(gomega.Equal(TimeNanos(5)))
		gomega.Expect(snapshot[0].Runtime).To(gomega.Equal(TimeNanos(4)))
		gomega.Expect(snapshot[0].Kind).To(gomega.Equal(KindGeneric))
	})

	ginkgo.It("should reject a duplicate start and keep the original timing",
		func() {
			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
			gomega.Expect(r.Start("t")).To(gomega.Succeed())

			err := r.Start("t")
			gomega.Expect(errors.Is(err, ErrAlreadyPending)).To(gomega.BeTrue())

			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(9))
			gomega.Expect(r.End("t")).To(gomega.Succeed())

			snapshot := r.Snapshot()
			gomega.Expect(snapshot).To(gomega.HaveLen(1))
			gomega.Expect(snapshot[0].StartTime).To(gomega.Equal(TimeNanos(1)))
		})

	ginkgo.It("should reject an end without a start and append nothing", func() {
		err := r.End("never-started")
		gomega.Expect(errors.Is(err, ErrNoSuchPending)).To(gomega.BeTrue())
		gomega.Expect(r.Snapshot()).To(gomega.BeEmpty())
	})

	ginkgo.It("should carry notes made before the end into the record", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())

		gomega.Expect(r.Note("t", "phase", "setup")).To(gomega.Succeed())
		gomega.Expect(r.Note("t", "phase", "work")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		snapshot := r.Snapshot()
		phase, ok := snapshot[0].Notes.Get("phase")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(phase).To(gomega.Equal("work"))
	})

	ginkgo.It("should not mutate a completed record through a late note", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		err := r.Note("t", "phase", "late")
		gomega.Expect(errors.Is(err, ErrNoSuchPending)).To(gomega.BeTrue())

		snapshot := r.Snapshot()
		_, ok := snapshot[0].Notes.Get("phase")
		gomega.Expect(ok).To(gomega.BeFalse())
	})

	ginkgo.It("should classify a task with a hash note as a transaction", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("tx1")).To(gomega.Succeed())
		gomega.Expect(r.Note("tx1", "hash", "0xabc123")).To(gomega.Succeed())
		gomega.Expect(r.Note("tx1", "status", "success")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("tx1")).To(gomega.Succeed())

		snapshot := r.Snapshot()
		gomega.Expect(snapshot[0].Kind).To(gomega.Equal(KindTransaction))
		gomega.Expect(snapshot[0].Hash).To(gomega.Equal("0xabc123"))
		gomega.Expect(snapshot[0].Status).To(gomega.Equal("success"))
	})

	ginkgo.It("should classify the reserved commit name as a commit", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("commit")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("commit")).To(gomega.Succeed())

		gomega.Expect(r.Snapshot()[0].Kind).To(gomega.Equal(KindCommit))
	})

	ginkgo.It("should let an explicit type note win over the name", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("commit")).To(gomega.Succeed())
		gomega.Expect(r.Note("commit", "type", "transaction")).To(gomega.Succeed())
		gomega.Expect(r.Note("commit", "hash", "0xff")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("commit")).To(gomega.Succeed())

		gomega.Expect(r.Snapshot()[0].Kind).To(gomega.Equal(KindTransaction))
	})

	ginkgo.It("should keep same-named tasks in different scopes independent",
		func() {
			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
			gomega.Expect(r.StartScoped("commit", "worker-0")).To(gomega.Succeed())

			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
			gomega.Expect(r.StartScoped("commit", "worker-1")).To(gomega.Succeed())

			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(10))
			gomega.Expect(r.EndScoped("commit", "worker-0")).To(gomega.Succeed())

			timeTeller.EXPECT().CurrentTime().Return(TimeNanos(20))
			gomega.Expect(r.EndScoped("commit", "worker-1")).To(gomega.Succeed())

			snapshot := r.Snapshot()
			gomega.Expect(snapshot).To(gomega.HaveLen(2))
			gomega.Expect(snapshot[0].Runtime).To(gomega.Equal(TimeNanos(9)))
			gomega.Expect(snapshot[1].Runtime).To(gomega.Equal(TimeNanos(18)))
		})

	ginkgo.It("should expose started-but-never-ended tasks as pending", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("leaked")).To(gomega.Succeed())

		keys := r.PendingKeys()
		gomega.Expect(keys).To(gomega.HaveLen(1))
		gomega.Expect(keys[0].Name).To(gomega.Equal("leaked"))
		gomega.Expect(r.Snapshot()).To(gomega.BeEmpty())
	})

	ginkgo.It("should reuse a key after the task finished", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(3))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(4))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		gomega.Expect(r.Snapshot()).To(gomega.HaveLen(2))
	})

	ginkgo.It("should notify observers of completed records", func() {
		total := NewTotalTimeObserver(nil)
		average := NewAverageTimeObserver(nil)
		r.AcceptObserver(total)
		r.AcceptObserver(average)

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("a")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(3))
		gomega.Expect(r.End("a")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(4))
		gomega.Expect(r.Start("b")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(10))
		gomega.Expect(r.End("b")).To(gomega.Succeed())

		gomega.Expect(total.TotalTime()).To(gomega.Equal(TimeNanos(8)))
		gomega.Expect(total.TotalCount()).To(gomega.Equal(uint64(2)))
		gomega.Expect(average.AverageTime()).To(gomega.Equal(TimeNanos(4)))
	})

	ginkgo.It("should record a note timestamp", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(r.Start("t")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(7))
		gomega.Expect(r.NoteTime("t", "checkpoint")).To(gomega.Succeed())

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(9))
		gomega.Expect(r.End("t")).To(gomega.Succeed())

		checkpoint, ok := r.Snapshot()[0].Notes.Get("checkpoint")
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(checkpoint).To(gomega.Equal("7"))
	})

	ginkgo.It("should clear pending and completed records", func() {
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1)).Times(3)
		gomega.Expect(r.Start("a")).To(gomega.Succeed())
		gomega.Expect(r.Start("b")).To(gomega.Succeed())
		gomega.Expect(r.End("a")).To(gomega.Succeed())

		r.Clear()

		gomega.Expect(r.Snapshot()).To(gomega.BeEmpty())
		gomega.Expect(r.PendingKeys()).To(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("ScopedRecorder", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		r          *Recorder
	)

	ginkgo.BeforeEach(func() {
		mockCtrl = gomock.NewController(ginkgo.GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		r = NewRecorderWithTimeTeller(timeTeller)
	})

	ginkgo.AfterEach(func() {
		mockCtrl.Finish()
	})

	ginkgo.It("should address scope-qualified keys", func() {
		view := r.Scope("worker-3")

		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(1))
		gomega.Expect(view.Start("t")).To(gomega.Succeed())
		gomega.Expect(view.Note("t", "k", "v")).To(gomega.Succeed())
		timeTeller.EXPECT().CurrentTime().Return(TimeNanos(2))
		gomega.Expect(view.End("t")).To(gomega.Succeed())

		snapshot := r.Snapshot()
		gomega.Expect(snapshot).To(gomega.HaveLen(1))
		gomega.Expect(snapshot[0].Scope).To(gomega.Equal("worker-3"))
	})
})
