package xsnowflake

import (
	"strconv"
	"testing"
)

func BenchmarkNextID(b *testing.B) {
	g, err := New(testConfig(1, 1))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		_, _ = g.NextID() //nolint:errcheck // benchmark
	}
}

func BenchmarkNextID_Parallel(b *testing.B) {
	g, err := New(testConfig(1, 1))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = g.NextID() //nolint:errcheck // benchmark
		}
	})
}

func BenchmarkNextIDs(b *testing.B) {
	for _, n := range []int{16, 1024, 8192} {
		b.Run(strconv.Itoa(n), func(b *testing.B) {
			g, err := New(testConfig(1, 1))
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			for b.Loop() {
				_, _ = g.NextIDs(n) //nolint:errcheck // benchmark
			}
		})
	}
}

func BenchmarkDecompose(b *testing.B) {
	g, err := New(testConfig(1, 1))
	if err != nil {
		b.Fatal(err)
	}
	id, err := g.NextID()
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = g.Decompose(id)
	}
}
