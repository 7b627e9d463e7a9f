package view

import (
	"fmt"
	"sync"
	"testing"
)

func TestConcurrentReadersDuringApply(t *testing.T) {
	v := &View{}
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				_ = v.Entries()
				_ = v.Len()
				_ = v.Keys()
				_ = v.Focus()
				_ = v.AtBottom()
			}
		}()
	}
	for i := 0; i < 500; i++ {
		e := Entry{TS: fmt.Sprintf("%04d.1", i), Digest: "d"}
		v.Apply([]Patch{{Op: OpInsert, After: i - 1, Entry: e}}, true)
	}
	close(stop)
	wg.Wait()
	if v.Len() != 500 {
		t.Fatalf("expected 500 entries, got %d", v.Len())
	}
	if v.Focus() != "0499.1" {
		t.Fatalf("focus = %q", v.Focus())
	}
}
