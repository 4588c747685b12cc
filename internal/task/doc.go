// Package task runs storage work on per-key serial lanes.
//
// Every Task names a key. The WorkerPool keeps one FIFO lane per key with
// pending work, so two tasks for the same key never overlap and finish in
// submission order, while tasks for different keys proceed independently.
// Lanes are created on demand and retired once idle; a semaphore bounds how
// many tasks execute at once across all lanes.
package task
