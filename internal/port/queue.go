package port

import (
	"sync"

	"firestige.xyz/timedemux/internal/core"
)

// Queue is an in-memory Input. Producers Push messages and Close the queue;
// the consuming worker sees them in order followed by end of stream.
type Queue struct {
	mu       sync.Mutex
	messages []core.Message
	closed   bool
}

// NewQueue creates a queue preloaded with msgs.
func NewQueue(msgs ...core.Message) *Queue {
	q := &Queue{}
	for _, m := range msgs {
		q.Push(m)
	}
	return q
}

// Push appends a copy of msg.
func (q *Queue) Push(msg core.Message) {
	payload := make([]byte, len(msg.Payload))
	copy(payload, msg.Payload)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.messages = append(q.messages, core.Message{Opcode: msg.Opcode, Payload: payload})
}

// Close signals end of stream after the queued messages.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Len returns the number of unconsumed messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Ready implements Input.
func (q *Queue) Ready() (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages) > 0 || q.closed, nil
}

// EOF implements Input.
func (q *Queue) EOF() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.messages) == 0
}

// Message implements Input. It returns the zero Message when nothing is queued.
func (q *Queue) Message() core.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return core.Message{}
	}
	return q.messages[0]
}

// Advance implements Input.
func (q *Queue) Advance() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return core.ErrNoMessage
	}
	q.messages[0] = core.Message{}
	q.messages = q.messages[1:]
	return nil
}
