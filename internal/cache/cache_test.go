package cache_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codearena.app/arbiter/internal/cache"
)

var _ = Describe("MemoryStore", func() {
	var (
		ctx   context.Context
		clock *cache.ManualClock
		store *cache.MemoryStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = cache.NewManualClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
		store = cache.NewMemoryStore(clock)
	})

	It("round-trips a value inside its TTL", func() {
		Expect(store.Set(ctx, "k", []byte("v"), time.Hour)).To(Succeed())

		clock.Advance(59 * time.Minute)

		got, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]byte("v")))
	})

	It("misses once the TTL has lapsed", func() {
		Expect(store.Set(ctx, "k", []byte("v"), time.Hour)).To(Succeed())

		clock.Advance(time.Hour)

		_, err := store.Get(ctx, "k")
		Expect(err).To(MatchError(cache.ErrMiss))
	})

	It("misses an absent key", func() {
		_, err := store.Get(ctx, "nope")
		Expect(err).To(MatchError(cache.ErrMiss))
	})

	It("misses after an explicit delete", func() {
		Expect(store.Set(ctx, "k", []byte("v"), time.Hour)).To(Succeed())
		Expect(store.Delete(ctx, "k")).To(Succeed())

		_, err := store.Get(ctx, "k")
		Expect(err).To(MatchError(cache.ErrMiss))
	})

	It("hands out copies, not aliases", func() {
		value := []byte("v1")
		Expect(store.Set(ctx, "k", value, time.Hour)).To(Succeed())
		value[0] = 'X'

		got, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]byte("v1")))

		got[0] = 'Y'
		again, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(again).To(Equal([]byte("v1")))
	})

	It("overwrites an entry and restarts its TTL", func() {
		Expect(store.Set(ctx, "k", []byte("old"), time.Hour)).To(Succeed())
		clock.Advance(50 * time.Minute)
		Expect(store.Set(ctx, "k", []byte("new"), time.Hour)).To(Succeed())
		clock.Advance(50 * time.Minute)

		got, err := store.Get(ctx, "k")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]byte("new")))
	})
})
