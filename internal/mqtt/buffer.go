package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while the
// broker is unreachable. Not safe for concurrent use; caller must
// synchronize.
type ringBuffer struct {
	buf      []bufferedMsg
	capacity int
	head     int // next write position
	count    int
	dropped  int // messages overwritten since last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{
		buf:      make([]bufferedMsg, capacity),
		capacity: capacity,
	}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	if r.count == r.capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", r.capacity)
		}
		r.dropped++
		// Overwrite oldest: head is already pointing at it
		r.buf[r.head] = msg
		r.head = (r.head + 1) % r.capacity
		// count stays at capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % r.capacity
	r.count++
}

// drainAll returns the buffered messages oldest-first and resets the
// buffer, reporting how many messages were lost to overflow.
func (r *ringBuffer) drainAll() (msgs []bufferedMsg, dropped int) {
	dropped = r.dropped
	r.dropped = 0

	if r.count == 0 {
		return nil, dropped
	}

	msgs = make([]bufferedMsg, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		msgs[i] = r.buf[(start+i)%r.capacity]
	}

	r.count = 0
	r.head = 0
	return msgs, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
