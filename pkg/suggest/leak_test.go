//go:build test

package suggest

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/bastiangx/wordtrie/pkg/dictionary"
)

var leakPatterns = [][]string{
	{"a", "ab", "abc", "abcd", "abcde"},
	{"h", "he", "hel", "hell", "hello"},
	{"p", "pr", "pro", "prog", "progr", "progra", "program"},
	{"i", "in", "int", "inte", "inter", "intern", "interna", "internat"},
}

// syntheticVocabulary derives words from the patterns plus numbered variants.
func syntheticVocabulary() *Vocabulary {
	var entries []dictionary.Entry
	for _, pattern := range leakPatterns {
		base := pattern[len(pattern)-1]
		for i := range 500 {
			entries = append(entries, dictionary.Entry{Word: fmt.Sprintf("%s%d", base, i), Weight: i})
		}
	}
	return New(entries, WithTopK(10))
}

func heapAndGoroutines() (int64, int) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return int64(m.Alloc), runtime.NumGoroutine()
}

func TestMemoryLeakBasic(t *testing.T) {
	vocab := syntheticVocabulary()

	for _, iterations := range []int{100, 1000, 5000} {
		t.Run(fmt.Sprintf("iterations_%d", iterations), func(t *testing.T) {
			baseMem, baseGoroutines := heapAndGoroutines()

			ops := 0
			for range iterations {
				for _, pattern := range leakPatterns {
					for _, prefix := range pattern {
						_ = vocab.Complete(prefix, 10)
						ops++
					}
				}
			}

			finalMem, finalGoroutines := heapAndGoroutines()
			memPerOp := float64(finalMem-baseMem) / float64(ops)
			t.Logf("ops=%d mem_delta=%d bytes mem_per_op=%.2f goroutine_delta=%d",
				ops, finalMem-baseMem, memPerOp, finalGoroutines-baseGoroutines)

			if memPerOp > 100 {
				t.Errorf("retained memory per operation: %.2f bytes", memPerOp)
			}
			if finalGoroutines-baseGoroutines > 2 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", finalGoroutines-baseGoroutines)
			}
		})
	}
}

func TestMemoryLeakConcurrent(t *testing.T) {
	vocab := syntheticVocabulary()

	for _, workers := range []int{2, 4, 8} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			const iterationsPerWorker = 200
			baseMem, baseGoroutines := heapAndGoroutines()

			var wg sync.WaitGroup
			for range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range iterationsPerWorker {
						for _, pattern := range leakPatterns {
							for _, prefix := range pattern {
								_ = vocab.Complete(prefix, 10)
							}
						}
					}
				}()
			}
			wg.Wait()

			finalMem, finalGoroutines := heapAndGoroutines()
			perWorker := 0
			for _, pattern := range leakPatterns {
				perWorker += len(pattern)
			}
			ops := workers * iterationsPerWorker * perWorker
			memPerOp := float64(finalMem-baseMem) / float64(ops)
			t.Logf("workers=%d ops=%d mem_delta=%d bytes mem_per_op=%.2f", workers, ops, finalMem-baseMem, memPerOp)

			if memPerOp > 100 {
				t.Errorf("retained memory per operation: %.2f bytes", memPerOp)
			}
			if finalGoroutines-baseGoroutines > 2 {
				t.Errorf("goroutine leak detected: %d goroutines leaked", finalGoroutines-baseGoroutines)
			}
		})
	}
}
