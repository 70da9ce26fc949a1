package core

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/autoimport/internal/docstore/memstore"
)

// syntheticCSV builds an n-row file shaped like the automobile data set.
func syntheticCSV(n int) string {
	var b strings.Builder
	b.WriteString("make,fuelType,aspiration,numOfDoors,bodyStyle,horsepower,peakRpm,cityMpg,highwayMpg,price\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "make-%d,gas,std,four,sedan,%d,5500,%d,%d,%d\n", i%22, 70+i%200, 15+i%30, 20+i%30, 5000+i)
	}
	return b.String()
}

// BenchmarkCastValue benchmarks the per-cell cast. This runs for every cell
// of every import.
func BenchmarkCastValue(b *testing.B) {
	fields := DefaultFieldSet()
	cases := []struct{ col, val string }{
		{"price", "16500"},
		{"bore", "3.47"},
		{"price", "?"},
		{"make", "alfa-romero"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range cases {
			CastValue(c.col, c.val, fields)
		}
	}
}

// BenchmarkParseRecords benchmarks parsing at different file sizes.
func BenchmarkParseRecords(b *testing.B) {
	fields := DefaultFieldSet()

	for _, rows := range []int{100, 1000, 10000} {
		text := syntheticCSV(rows)
		b.Run(fmt.Sprintf("rows=%d", rows), func(b *testing.B) {
			b.SetBytes(int64(len(text)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ParseRecords(text, fields); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkBatchWriter benchmarks writes into the in-memory store at
// several batch sizes.
func BenchmarkBatchWriter(b *testing.B) {
	records, err := ParseRecords(syntheticCSV(5000), DefaultFieldSet())
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	for _, size := range []int{100, 500, 2500} {
		b.Run(fmt.Sprintf("batch=%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				w, err := NewBatchWriter(memstore.New(), DefaultCollection, size)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := w.Write(ctx, records); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
