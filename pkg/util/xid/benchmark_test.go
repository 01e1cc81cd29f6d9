package xid

import (
	"context"
	"testing"

	"github.com/omeyang/xsnow/pkg/resilience/xbreaker"
)

func BenchmarkGenerator(b *testing.B) {
	ctx := context.Background()

	b.Run("snowflake/NewWithRetry", func(b *testing.B) {
		g, err := NewGenerator(SnowflakeSource(newSnowflake(b, 1, 1, nil)))
		if err != nil {
			b.Fatal(err)
		}
		for b.Loop() {
			_, _ = g.NewWithRetry(ctx) //nolint:errcheck // benchmark
		}
	})

	b.Run("snowflake/NewWithRetry+breaker", func(b *testing.B) {
		g, err := NewGenerator(SnowflakeSource(newSnowflake(b, 1, 1, nil)),
			WithBreaker(xbreaker.NewBreaker("bench")))
		if err != nil {
			b.Fatal(err)
		}
		for b.Loop() {
			_, _ = g.NewWithRetry(ctx) //nolint:errcheck // benchmark
		}
	})

	b.Run("snowflake/NewString", func(b *testing.B) {
		g, err := NewGenerator(SnowflakeSource(newSnowflake(b, 1, 1, nil)))
		if err != nil {
			b.Fatal(err)
		}
		for b.Loop() {
			_, _ = g.NewString() //nolint:errcheck // benchmark
		}
	})
}
