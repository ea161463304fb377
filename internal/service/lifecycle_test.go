package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/internal/model"
	"codearena.app/arbiter/internal/service"
	"codearena.app/arbiter/internal/store"
)

var _ = Describe("Lifecycle", func() {
	var (
		ctx    context.Context
		states *fakeStateStore
		saved  *model.StateRecord
	)

	stateRecord := func(s model.SubmissionState) *model.StateRecord {
		return &model.StateRecord{
			SubmissionID: 42,
			State:        s,
			UpdatedAt:    time.Now().UTC(),
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		saved = nil
		states = &fakeStateStore{
			upsertFn: func(ctx context.Context, rec *model.StateRecord) error {
				saved = rec
				return nil
			},
		}
	})

	It("opens community voting for a scored submission", func() {
		states.getFn = func(ctx context.Context, id int64) (*model.StateRecord, error) {
			return stateRecord(model.StateScored), nil
		}

		err := service.NewLifecycle(states).Advance(ctx, 42, model.StateCommunityVoting)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).NotTo(BeNil())
		Expect(saved.State).To(Equal(model.StateCommunityVoting))
	})

	It("publishes a completed submission", func() {
		states.getFn = func(ctx context.Context, id int64) (*model.StateRecord, error) {
			return stateRecord(model.StateCompleted), nil
		}

		err := service.NewLifecycle(states).Advance(ctx, 42, model.StatePublished)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.State).To(Equal(model.StatePublished))
	})

	It("rejects targets that are not operator-driven", func() {
		err := service.NewLifecycle(states).Advance(ctx, 42, model.StateResearched)
		Expect(err).To(HaveOccurred())
		Expect(saved).To(BeNil())
	})

	It("rejects an advance out of the wrong state", func() {
		states.getFn = func(ctx context.Context, id int64) (*model.StateRecord, error) {
			return stateRecord(model.StateSubmitted), nil
		}

		err := service.NewLifecycle(states).Advance(ctx, 42, model.StateCommunityVoting)
		Expect(err).To(HaveOccurred())
		Expect(saved).To(BeNil())
	})

	It("propagates a missing state record", func() {
		states.getFn = func(ctx context.Context, id int64) (*model.StateRecord, error) {
			return nil, store.ErrNotFound
		}

		err := service.NewLifecycle(states).Advance(ctx, 42, model.StatePublished)
		Expect(err).To(MatchError(store.ErrNotFound))
	})
})
