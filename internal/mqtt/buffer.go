package mqtt

import "log"

// message is a serialized publish held back while the broker is unreachable.
type message struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox keeps the most recent messages, oldest first.
// Not safe for concurrent use; RealPublisher holds its mutex around it.
type outbox struct {
	msgs    []message
	limit   int
	dropped int
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit}
}

// add queues m, discarding the oldest message when full.
func (o *outbox) add(m message) {
	if len(o.msgs) == o.limit {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", o.limit)
		}
		o.dropped++
		copy(o.msgs, o.msgs[1:])
		o.msgs[len(o.msgs)-1] = m
		return
	}
	o.msgs = append(o.msgs, m)
}

// take returns all queued messages and the number dropped since the last take.
func (o *outbox) take() ([]message, int) {
	msgs, dropped := o.msgs, o.dropped
	o.msgs = nil
	o.dropped = 0
	return msgs, dropped
}

func (o *outbox) len() int {
	return len(o.msgs)
}
