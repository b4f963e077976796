package imagebuf

import (
	"runtime"
	"sync"
)

var (
	globalMu      sync.RWMutex
	globalThreads int
)

// SetGlobalThreads sets the process-wide default parallelism for
// buffer operations. 0 restores "one worker per CPU".
func SetGlobalThreads(n int) {
	if n < 0 {
		n = 0
	}
	globalMu.Lock()
	globalThreads = n
	globalMu.Unlock()
}

// GlobalThreads returns the process-wide default parallelism.
func GlobalThreads() int {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalThreads
}

// resolveThreads turns the buffer's hint and the global default into a
// concrete worker count.
func (ib *ImageBuf) resolveThreads() int {
	n := ib.impl.threads
	if n == 0 {
		n = GlobalThreads()
	}
	if n == 0 {
		n = runtime.NumCPU()
	}
	return n
}

// parallelFor calls fn for every index in [begin, end), fanning the
// work out over nthreads goroutines. nthreads 1 runs inline without
// spawning.
func parallelFor(nthreads, begin, end int, fn func(i int)) {
	count := end - begin
	if count <= 0 {
		return
	}
	if nthreads > count {
		nthreads = count
	}
	if nthreads <= 1 {
		for i := begin; i < end; i++ {
			fn(i)
		}
		return
	}
	chunk := (count + nthreads - 1) / nthreads
	var wg sync.WaitGroup
	for t := 0; t < nthreads; t++ {
		lo := begin + t*chunk
		hi := lo + chunk
		if hi > end {
			hi = end
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(lo, hi)
	}
	wg.Wait()
}
