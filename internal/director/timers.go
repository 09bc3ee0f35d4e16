package director

import "sort"

// timerKind distinguishes the scheduled tasks of one animation.
type timerKind int

const (
	timerDelay timerKind = iota
	timerFade
	timerTeardown
)

func (k timerKind) String() string {
	switch k {
	case timerDelay:
		return "delay"
	case timerFade:
		return "fade"
	case timerTeardown:
		return "teardown"
	}
	return "unknown"
}

type timerKey struct {
	id   string
	kind timerKind
}

type timer struct {
	key timerKey
	due float64
	seq uint64
	fn  func()
}

// timerQueue holds deferred callbacks on the frame clock. At most one task
// exists per (id, kind); scheduling replaces, and cancel is synchronous.
type timerQueue struct {
	now   float64
	seq   uint64
	tasks map[timerKey]*timer
}

func newTimerQueue() *timerQueue {
	return &timerQueue{tasks: make(map[timerKey]*timer)}
}

// schedule runs fn after delay seconds of frame time, replacing any task
// with the same key.
func (q *timerQueue) schedule(id string, kind timerKind, delay float64, fn func()) {
	key := timerKey{id: id, kind: kind}
	q.cancel(id, kind)
	if delay < 0 {
		delay = 0
	}
	q.seq++
	q.tasks[key] = &timer{key: key, due: q.now + delay, seq: q.seq, fn: fn}
}

func (q *timerQueue) cancel(id string, kind timerKind) bool {
	key := timerKey{id: id, kind: kind}
	if _, ok := q.tasks[key]; !ok {
		return false
	}
	delete(q.tasks, key)
	return true
}

// cancelAll drops every task for id and returns how many were pending.
func (q *timerQueue) cancelAll(id string) int {
	n := 0
	for key := range q.tasks {
		if key.id == id {
			delete(q.tasks, key)
			n++
		}
	}
	return n
}

func (q *timerQueue) pending(id string, kind timerKind) bool {
	_, ok := q.tasks[timerKey{id: id, kind: kind}]
	return ok
}

func (q *timerQueue) len() int {
	return len(q.tasks)
}

// advance moves the clock and fires due tasks in (due, seq) order. Tasks
// scheduled by a callback fire on a later advance, even with zero delay. A
// task cancelled by an earlier callback in the same pass does not fire.
func (q *timerQueue) advance(dt float64) {
	if dt > 0 {
		q.now += dt
	}
	var due []*timer
	for _, t := range q.tasks {
		if t.due <= q.now+1e-9 {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		if cur, ok := q.tasks[t.key]; !ok || cur != t {
			continue
		}
		delete(q.tasks, t.key)
		t.fn()
	}
}
