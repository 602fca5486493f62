package io

import (
	"sync"
)

// Keyboard is a console input fed by the host. Typed words queue until an
// IN instruction polls them.
type Keyboard struct {
	mutex sync.Mutex
	queue []uint16
}

var _ Input = (*Keyboard)(nil)

// Rewind discards any pending input.
func (kb *Keyboard) Rewind() {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	kb.queue = nil
}

// Type queues words for input.
func (kb *Keyboard) Type(values ...uint16) {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	kb.queue = append(kb.queue, values...)
}

// TypeText queues each rune of the text as a word.
func (kb *Keyboard) TypeText(text string) {
	var values []uint16
	for _, c := range text {
		values = append(values, uint16(c))
	}
	kb.Type(values...)
}

// Pending returns the number of queued words.
func (kb *Keyboard) Pending() int {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	return len(kb.queue)
}

// Poll returns the oldest queued word.
func (kb *Keyboard) Poll() (value uint16, ok bool) {
	kb.mutex.Lock()
	defer kb.mutex.Unlock()

	if len(kb.queue) > 0 {
		ok = true
		value = kb.queue[0]
		kb.queue = kb.queue[1:]
	}
	return
}
