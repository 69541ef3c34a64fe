package reverb

import (
	"log/slog"
	"time"
)

// enqueue appends a job to the queue. The caller (MarkDirty) has
// already claimed the effect's pending flag, so each effect appears at
// most once until flushed.
func (e *Engine) enqueue(ef *Effect) {
	e.mu.Lock()
	e.queue = append(e.queue, ef)
	e.mu.Unlock()
}

// dequeue removes a job from the queue. Caller must hold e.mu and must
// not be inside a flush pass: outside a flush every effect has at most
// one queue entry, so removing the first match is removing the only
// match. During a flush entries stay put; the loop skips stopped jobs.
func (e *Engine) dequeue(ef *Effect) {
	for i, job := range e.queue {
		if job == ef {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

// Batch groups writes so their notifications coalesce into a single
// flush when the outermost batch exits. Batches nest.
func (e *Engine) Batch(fn func()) {
	e.mu.Lock()
	e.batchDepth++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.batchDepth--
		done := e.batchDepth == 0
		e.mu.Unlock()
		if done {
			e.Flush()
		}
	}()

	fn()
}

// Flush runs the queued jobs in insertion order. Jobs enqueued by a job
// running during the flush are executed within the same pass, so
// cascading updates settle in one tick. A job panic is recovered and
// logged, the remaining jobs still run, and the first fault is re-raised
// as *EffectPanicError once the pass completes.
//
// Flush is the engine's tick boundary: hosts that mutate outside Batch
// call it once per unit of work. Re-entrant calls are no-ops.
func (e *Engine) Flush() {
	e.mu.Lock()
	if e.flushing || e.batchDepth > 0 || len(e.queue) == 0 {
		e.mu.Unlock()
		return
	}
	e.flushing = true
	e.mu.Unlock()

	e.instr.FlushStart()
	start := time.Now()

	var fault *EffectPanicError
	ran := 0

	e.mu.Lock()
	for i := 0; i < len(e.queue); i++ {
		job := e.queue[i]
		if job.stopped.Load() || !job.pending.Load() {
			continue
		}

		if e.budget > 0 && ran >= e.budget {
			// Leave the unvisited tail queued for the next flush.
			remaining := e.requeueTail(i)
			e.flushing = false
			e.mu.Unlock()
			e.logger.Warn("reverb: flush stopped early",
				slog.Any("error", ErrBudgetExceeded),
				slog.Int("ran", ran),
				slog.Int("remaining", remaining))
			e.instr.BudgetExceeded(remaining)
			e.instr.FlushEnd(ran, time.Since(start))
			if fault != nil {
				panic(fault)
			}
			return
		}

		e.mu.Unlock()
		recovered := e.runJob(job)
		ran++
		if recovered != nil && fault == nil {
			fault = &EffectPanicError{EffectID: job.id, Value: recovered}
		}
		e.mu.Lock()
	}
	e.queue = e.queue[:0]
	e.flushing = false
	e.mu.Unlock()

	e.instr.FlushEnd(ran, time.Since(start))
	if fault != nil {
		panic(fault)
	}
}

// requeueTail replaces the queue with the jobs from index i onward.
// Caller must hold e.mu. Returns the number of jobs kept.
func (e *Engine) requeueTail(i int) int {
	tail := make([]*Effect, 0, len(e.queue)-i)
	for _, job := range e.queue[i:] {
		if !job.stopped.Load() && job.pending.Load() {
			tail = append(tail, job)
		}
	}
	e.queue = tail
	return len(tail)
}

// runJob executes one job, recovering and reporting a panic so the
// flush can continue with the rest of the queue.
func (e *Engine) runJob(job *Effect) (recovered any) {
	start := time.Now()
	defer func() {
		if recovered = recover(); recovered != nil {
			e.logger.Error("reverb: effect panicked during flush",
				slog.Uint64("effect", job.id),
				slog.Any("panic", recovered))
		}
		e.instr.EffectRun(job.id, time.Since(start), recovered)
	}()
	job.run()
	return nil
}

// PendingJobs reports the number of effects waiting for the next flush.
func (e *Engine) PendingJobs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, job := range e.queue {
		if !job.stopped.Load() && job.pending.Load() {
			n++
		}
	}
	return n
}
