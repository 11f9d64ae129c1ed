package llm_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tabulahq/tabula/pkg/llm"
)

var _ = Describe("KeyPool", func() {
	Describe("NewKeyPool", func() {
		It("splits and trims a comma-separated list", func() {
			pool := llm.NewKeyPool(" k1 , k2,, k3 ")
			Expect(pool.Len()).To(Equal(3))
		})
	})

	Describe("Try", func() {
		It("fails fast with no keys", func() {
			err := llm.NewKeyPool("").Try(context.Background(),
				func(ctx context.Context, key string) error { return nil })
			Expect(err).To(HaveOccurred())
		})

		It("stops at the first success", func() {
			pool := llm.NewKeyPool("k1,k2,k3")
			var used []string

			err := pool.Try(context.Background(), func(ctx context.Context, key string) error {
				used = append(used, key)
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(Equal([]string{"k1"}))
		})

		It("rotates to the next key after a failure", func() {
			pool := llm.NewKeyPool("k1,k2")
			var used []string

			err := pool.Try(context.Background(), func(ctx context.Context, key string) error {
				used = append(used, key)
				if key == "k1" {
					return fmt.Errorf("quota exceeded")
				}
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(used).To(Equal([]string{"k1", "k2"}))
		})

		It("keeps the cursor across operations", func() {
			pool := llm.NewKeyPool("k1,k2")
			var used []string
			record := func(ctx context.Context, key string) error {
				used = append(used, key)
				return nil
			}

			Expect(pool.Try(context.Background(), record)).To(Succeed())
			Expect(pool.Try(context.Background(), record)).To(Succeed())
			Expect(used).To(Equal([]string{"k1", "k2"}))
		})

		It("makes at most one attempt per key and wraps the last error", func() {
			pool := llm.NewKeyPool("k1,k2")
			calls := 0

			err := pool.Try(context.Background(), func(ctx context.Context, key string) error {
				calls++
				return fmt.Errorf("boom %d", calls)
			})
			Expect(calls).To(Equal(2))
			Expect(err).To(MatchError(ContainSubstring("boom 2")))
		})

		It("honors the abort flag between attempts", func() {
			pool := llm.NewKeyPool("k1,k2,k3")
			calls := 0

			err := pool.Try(context.Background(), func(ctx context.Context, key string) error {
				calls++
				pool.Abort()
				return fmt.Errorf("failing")
			})
			Expect(err).To(MatchError(llm.ErrAborted))
			Expect(calls).To(Equal(1))
		})

		It("clears the abort flag on Reset", func() {
			pool := llm.NewKeyPool("k1")
			pool.Abort()
			Expect(pool.Aborted()).To(BeTrue())
			pool.Reset()
			Expect(pool.Aborted()).To(BeFalse())
		})

		It("respects context cancellation", func() {
			pool := llm.NewKeyPool("k1,k2")
			ctx, cancel := context.WithCancel(context.Background())

			err := pool.Try(ctx, func(ctx context.Context, key string) error {
				cancel()
				return fmt.Errorf("failing")
			})
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
