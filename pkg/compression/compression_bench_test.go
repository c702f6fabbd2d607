package compression

import (
	"fmt"
	"testing"

	jsonpool "github.com/ajitpratap0/nebula-migrate/pkg/json"
	"github.com/ajitpratap0/nebula-migrate/pkg/models"
)

var benchAlgorithms = []Algorithm{Gzip, Snappy, LZ4, Zstd, S2}

// generateRecords builds a JSON Lines payload of roughly size bytes
func generateRecords(size int) []byte {
	records := make([]models.Record, size/120+1)
	for i := range records {
		records[i] = models.Record{
			"id":        i,
			"name":      fmt.Sprintf("User %d", i),
			"email":     fmt.Sprintf("user%d@example.com", i),
			"active":    i%2 == 0,
			"timestamp": "2024-01-15T10:30:00Z",
		}
	}
	data, _ := jsonpool.MarshalRecords(records, jsonpool.FormatLines)
	return data
}

func BenchmarkCompress(b *testing.B) {
	for _, size := range []int{10 << 10, 1 << 20} {
		data := generateRecords(size)
		for _, alg := range benchAlgorithms {
			b.Run(fmt.Sprintf("%s/%s", alg, formatBytes(size)), func(b *testing.B) {
				b.SetBytes(int64(len(data)))
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					if _, err := Compress(data, alg, Default); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkDecompress(b *testing.B) {
	data := generateRecords(1 << 20)
	for _, alg := range benchAlgorithms {
		compressed, err := Compress(data, alg, Default)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(string(alg), func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := Decompress(compressed, alg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkCompressionRatio reports the ratio per algorithm and level
func BenchmarkCompressionRatio(b *testing.B) {
	data := generateRecords(1 << 20)
	for _, alg := range benchAlgorithms {
		for _, level := range []Level{Fastest, Default, Best} {
			b.Run(fmt.Sprintf("%s/%s", alg, levelString(level)), func(b *testing.B) {
				var compressed []byte
				for i := 0; i < b.N; i++ {
					var err error
					if compressed, err = Compress(data, alg, level); err != nil {
						b.Fatal(err)
					}
				}
				b.ReportMetric(float64(len(data))/float64(len(compressed)), "ratio")
			})
		}
	}
}

func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%dB", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func levelString(level Level) string {
	switch level {
	case Fastest:
		return "Fastest"
	case Default:
		return "Default"
	case Better:
		return "Better"
	case Best:
		return "Best"
	default:
		return "Unknown"
	}
}
