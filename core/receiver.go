package core

import (
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const receiverPollTimeout = 100 * time.Millisecond

type listenerFunc func(pkt *ICMPPacket, receiveTime time.Time, source net.Addr)

type listenerToken struct {
	version IPVersion
	id      int
}

// ReceiverWorker is the process-wide, single-per-IP-version read loop
// described in §4.5. It is constructed explicitly by the process entry
// point (cmd's root command) rather than lazily on first use, so shutdown
// stays deterministic, per §9's design note.
type ReceiverWorker struct {
	logger *log.Entry

	mu        sync.Mutex
	listeners map[IPVersion]map[int]listenerFunc
	nextID    int
	running   bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewReceiverWorker builds an unstarted ReceiverWorker.
func NewReceiverWorker() *ReceiverWorker {
	return &ReceiverWorker{
		logger: newLogger(log.InfoLevel, "receiverworker"),
		listeners: map[IPVersion]map[int]listenerFunc{
			V4: {},
			V6: {},
		},
	}
}

// register adds fn as a listener for version's traffic, returning a token
// to later deregister it. Listener registration is mutex-protected, per
// §4.5.
func (r *ReceiverWorker) register(version IPVersion, fn listenerFunc) listenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.listeners[version][id] = fn

	return listenerToken{version: version, id: id}
}

func (r *ReceiverWorker) deregister(token listenerToken) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.listeners[token.version], token.id)
}

func (r *ReceiverWorker) fanOut(version IPVersion, pkt *ICMPPacket, receiveTime time.Time, source net.Addr) {
	r.mu.Lock()
	fns := make([]listenerFunc, 0, len(r.listeners[version]))
	for _, fn := range r.listeners[version] {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	// Listeners are never invoked while holding the listener-list lock,
	// per §5's shared-resource policy.
	for _, fn := range fns {
		fn(pkt, receiveTime, source)
	}
}

// Start opens one read socket per IP version and spawns one poll goroutine
// per socket. A version whose read socket cannot be opened (for example,
// IPv6 disabled in the running kernel) is logged and skipped rather than
// failing the whole worker, so a dual-stack-unaware host still gets useful
// IPv4 measurements.
func (r *ReceiverWorker) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.mu.Unlock()

	for _, version := range []IPVersion{V4, V6} {
		socket, err := CreateReadSocket(version)
		if err != nil {
			r.logger.Warnf("could not open %s read socket, %s measurements will not be delivered: %s", version, version, err)
			continue
		}

		r.wg.Add(1)
		go r.pollLoop(version, socket)
	}
}

// Stop signals every poll goroutine to exit and waits for them.
func (r *ReceiverWorker) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	close(r.stopCh)
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *ReceiverWorker) pollLoop(version IPVersion, socket *ICMPSocket) {
	defer r.wg.Done()
	defer socket.Close()

	buffer := make([]byte, 1500)

	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		n, source, err := socket.RecvFrom(buffer, receiverPollTimeout)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			r.logger.Tracef("%s receive error: %s", version, err)
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])
		receiveTime := time.Now()

		pkt := FromData(data, version)
		if pkt.ResultCode == Invalid {
			continue
		}

		r.fanOut(version, pkt, receiveTime, source)
	}
}
