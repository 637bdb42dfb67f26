package transfer

import "sync"

// JobQueue hands table names to workers. A name is handed out at most once.
type JobQueue struct {
	mu      sync.Mutex
	pending []string
	seen    map[string]struct{}
}

func NewJobQueue() *JobQueue {
	return &JobQueue{seen: make(map[string]struct{})}
}

// Push appends names in order, ignoring names pushed before. It returns the
// number of names added.
func (q *JobQueue) Push(names ...string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	added := 0
	for _, name := range names {
		if _, ok := q.seen[name]; ok {
			continue
		}
		q.seen[name] = struct{}{}
		q.pending = append(q.pending, name)
		added++
	}
	return added
}

// Pop removes the next name. It reports false when the queue is empty.
func (q *JobQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return "", false
	}
	name := q.pending[0]
	q.pending[0] = ""
	q.pending = q.pending[1:]
	return name, true
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
