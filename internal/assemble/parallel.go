package assemble

import (
	"runtime"
	"sync"

	"github.com/inodb/gff2seq/internal/transcript"
)

// WorkItem holds a transcript ready for assembly.
type WorkItem struct {
	Seq  int
	Node *transcript.Node
}

// WorkResult holds the assembled sequence for a single transcript.
type WorkResult struct {
	Seq    int
	Node   *transcript.Node
	Result Result
}

// ParallelAssemble assembles work items against regionSeq using a pool of
// workers. Results are sent to the returned channel in arrival order (not
// sequence order). Use OrderedCollect to consume results in sequence-number
// order. If workers is 0, runtime.NumCPU() is used.
func (a *Assembler) ParallelAssemble(regionSeq string, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for item := range items {
				results <- WorkResult{
					Seq:    item.Seq,
					Node:   item.Node,
					Result: a.Assemble(regionSeq, item.Node),
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// AssembleAll assembles nodes in parallel and calls fn with each result in
// the order of nodes.
func (a *Assembler) AssembleAll(regionSeq string, nodes []*transcript.Node, workers int, fn func(WorkResult) error) error {
	items := make(chan WorkItem)
	done := make(chan struct{})

	go func() {
		defer close(items)
		for i, n := range nodes {
			select {
			case items <- WorkItem{Seq: i, Node: n}:
			case <-done:
				return
			}
		}
	}()

	err := OrderedCollect(a.ParallelAssemble(regionSeq, items, workers), fn)
	close(done)
	return err
}
