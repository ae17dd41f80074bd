package network

// egressQueue orders packets waiting for transmission. Implementations are
// not safe for concurrent use; the owning Interface serializes access.
type egressQueue interface {
	push(socket SocketHandle, pkt *Packet)
	pop() (*Packet, bool)
	len() int
}

func newEgressQueue(mode QDiscMode) egressQueue {
	if mode == QDiscRoundRobin {
		return &roundRobinQueue{queues: make(map[SocketHandle][]*Packet)}
	}
	return &fifoQueue{}
}

// fifoQueue transmits strictly in arrival order.
type fifoQueue struct {
	packets []*Packet
}

func (q *fifoQueue) push(_ SocketHandle, pkt *Packet) {
	q.packets = append(q.packets, pkt)
}

func (q *fifoQueue) pop() (*Packet, bool) {
	if len(q.packets) == 0 {
		return nil, false
	}
	pkt := q.packets[0]
	q.packets[0] = nil
	q.packets = q.packets[1:]
	return pkt, true
}

func (q *fifoQueue) len() int {
	return len(q.packets)
}

// roundRobinQueue keeps one queue per socket and services them in rotation,
// one packet per turn. Sockets join the rotation when their first packet
// arrives and leave it when their queue drains.
type roundRobinQueue struct {
	order  []SocketHandle
	queues map[SocketHandle][]*Packet
	next   int
	total  int
}

func (q *roundRobinQueue) push(socket SocketHandle, pkt *Packet) {
	if _, ok := q.queues[socket]; !ok {
		q.order = append(q.order, socket)
	}
	q.queues[socket] = append(q.queues[socket], pkt)
	q.total++
}

func (q *roundRobinQueue) pop() (*Packet, bool) {
	if q.total == 0 {
		return nil, false
	}

	for {
		if q.next >= len(q.order) {
			q.next = 0
		}
		socket := q.order[q.next]
		queue := q.queues[socket]
		if len(queue) == 0 {
			// Socket drained since its last turn; drop it from rotation.
			delete(q.queues, socket)
			q.order = append(q.order[:q.next], q.order[q.next+1:]...)
			continue
		}

		pkt := queue[0]
		queue[0] = nil
		q.queues[socket] = queue[1:]
		q.total--

		if len(q.queues[socket]) == 0 {
			delete(q.queues, socket)
			q.order = append(q.order[:q.next], q.order[q.next+1:]...)
		} else {
			q.next++
		}
		return pkt, true
	}
}

func (q *roundRobinQueue) len() int {
	return q.total
}
