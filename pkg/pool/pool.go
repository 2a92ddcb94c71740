package pool

import (
	"runtime"
	"sync"
)

// task asks a worker to evaluate f at index i, storing the result in results[i].
type task struct {
	i       int
	f       func(int) interface{}
	results []interface{}
	done    *sync.WaitGroup
}

// worker evaluates tasks until the channel is closed.
func worker(tasks <-chan task) {
	for t := range tasks {
		t.results[t.i] = t.f(t.i)
		t.done.Done()
	}
}

// Pool represents a pool of workers, used for parallelizing functions.
//
// Functions needing a *Pool will work with a nil receiver, doing the equivalent
// work on the current goroutine instead.
//
// By creating a pool, you avoid the overhead of spinning up goroutines for
// each new operation.
type Pool struct {
	// The common channel used to send tasks to the workers.
	tasks chan task
	// This holds the number of workers we've created
	workerCount int
	once        sync.Once
}

// NewPool creates a new pool, with a certain number of workers.
//
// If count <= 0, this will use the number of available CPUs instead.
func NewPool(count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}

	p := &Pool{
		tasks:       make(chan task, count),
		workerCount: count,
	}
	for i := 0; i < count; i++ {
		go worker(p.tasks)
	}
	return p
}

// Workers returns the number of goroutines serving p, 0 for a nil pool.
func (p *Pool) Workers() int {
	if p == nil {
		return 0
	}
	return p.workerCount
}

// TearDown stops the workers. The pool must not be used afterwards.
func (p *Pool) TearDown() {
	if p == nil {
		return
	}
	p.once.Do(func() { close(p.tasks) })
}

// Parallelize calls a function count times, passing in indices from 0..count-1.
//
// The result will be a slice containing [f(0), f(1), ..., f(count - 1)].
func (p *Pool) Parallelize(count int, f func(int) interface{}) []interface{} {
	results := make([]interface{}, count)
	if p == nil || count <= 1 {
		for i := range results {
			results[i] = f(i)
		}
		return results
	}

	var done sync.WaitGroup
	done.Add(count)
	for i := 0; i < count; i++ {
		p.tasks <- task{i: i, f: f, results: results, done: &done}
	}
	done.Wait()
	return results
}
