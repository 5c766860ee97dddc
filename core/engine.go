package core

import (
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const outgoingPayloadLength = 52

// PingEngine is a long-running measurement loop multiplexing many targets
// across a single receive socket, per §4.4. It owns a transmitter
// goroutine and a timeout-scanner goroutine; receiving is delegated to the
// process-wide ReceiverWorker, which fans packets in via onPacketReceived.
type PingEngine struct {
	version IPVersion
	logger  *log.Entry

	receiver *ReceiverWorker

	targetsMu sync.Mutex
	targets   []*PingTarget

	table *requestTable

	settingsMu sync.Mutex
	interval   time.Duration
	timeout    time.Duration

	epochMu   sync.Mutex
	epochWall time.Time
	epochMono time.Time

	handlersMu sync.Mutex
	handlers   []func(PingResult)
	emitMu     sync.Mutex

	running       bool
	runMu         sync.Mutex
	stopCh        chan struct{}
	resetCh       chan time.Duration
	wg            sync.WaitGroup
	listenerToken listenerToken
}

// PingEngineFactory builds engines against a shared ReceiverWorker, per
// §6's PingEngineFactory.create(version).
type PingEngineFactory struct {
	receiver *ReceiverWorker
}

// NewPingEngineFactory returns a factory that hands every engine it creates
// the same ReceiverWorker, so a process never opens more read sockets than
// it has IP versions in use.
func NewPingEngineFactory(receiver *ReceiverWorker) *PingEngineFactory {
	return &PingEngineFactory{receiver: receiver}
}

// Create builds a new, stopped PingEngine for version.
func (f *PingEngineFactory) Create(version IPVersion) *PingEngine {
	return NewPingEngine(version, f.receiver)
}

// NewPingEngine builds a new, stopped PingEngine for version, fed by
// receiver.
func NewPingEngine(version IPVersion, receiver *ReceiverWorker) *PingEngine {
	settings := DefaultSettings()
	now := time.Now()

	return &PingEngine{
		version:   version,
		logger:    newLogger(settings.LoggingLevel, fmt.Sprintf("pingengine-%s", version)),
		receiver:  receiver,
		table:     newRequestTable(),
		interval:  settings.Interval,
		timeout:   settings.Timeout,
		epochWall: now,
		epochMono: now,
		resetCh:   make(chan time.Duration, 1),
	}
}

// AddTarget resolves host, registers it, and opens its write socket. ttl
// of 0 means "use the default", which is DefaultTTL.
func (e *PingEngine) AddTarget(host string, ttl int) (*PingTarget, error) {
	addr, err := resolveHost(host, e.version)
	if err != nil {
		return nil, err
	}

	target := newPingTarget(e, addr, ttl)

	if err := target.openWriteSocket(); err != nil {
		return nil, err
	}

	e.targetsMu.Lock()
	e.targets = append(e.targets, target)
	e.targetsMu.Unlock()

	e.logger.Infof("added target %s (id %d, ttl %d)", addr, target.id, ttl)

	return target, nil
}

// RemoveTarget stops the engine from sending further probes to target.
// Per the least-surprising reading of an unspecified original behaviour
// (see DESIGN.md), in-flight items for this target are left to run to
// completion or timeout rather than being torn down immediately.
func (e *PingEngine) RemoveTarget(target *PingTarget) bool {
	e.targetsMu.Lock()
	defer e.targetsMu.Unlock()

	for i, t := range e.targets {
		if t == target {
			e.targets = append(e.targets[:i], e.targets[i+1:]...)
			t.closeWriteSocket()
			return true
		}
	}

	return false
}

// SetInterval changes the transmitter's tick interval, taking effect on
// the next tick.
func (e *PingEngine) SetInterval(d time.Duration) bool {
	if d <= 0 {
		return false
	}

	e.settingsMu.Lock()
	e.interval = d
	e.settingsMu.Unlock()

	select {
	case e.resetCh <- d:
	default:
	}

	return true
}

// Interval returns the current transmitter tick interval.
func (e *PingEngine) Interval() time.Duration {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()

	return e.interval
}

// SetTimeout changes the age after which an outstanding item is reaped as
// NoReply.
func (e *PingEngine) SetTimeout(d time.Duration) bool {
	if d <= 0 {
		return false
	}

	e.settingsMu.Lock()
	e.timeout = d
	e.settingsMu.Unlock()

	return true
}

// Timeout returns the current request timeout.
func (e *PingEngine) Timeout() time.Duration {
	e.settingsMu.Lock()
	defer e.settingsMu.Unlock()

	return e.timeout
}

// SetEpoch rebases the wall-clock reference used to compute each
// PingResult's TransmitEpoch.
func (e *PingEngine) SetEpoch(wall time.Time) {
	e.epochMu.Lock()
	defer e.epochMu.Unlock()

	e.epochWall = wall
	e.epochMono = time.Now()
}

// Epoch returns the currently configured epoch reference.
func (e *PingEngine) Epoch() time.Time {
	e.epochMu.Lock()
	defer e.epochMu.Unlock()

	return e.epochWall
}

func (e *PingEngine) transmitEpochAt(now time.Time) time.Time {
	e.epochMu.Lock()
	defer e.epochMu.Unlock()

	return e.epochWall.Add(now.Sub(e.epochMono))
}

// OnResult registers a subscriber invoked for every completed probe, in
// the order results are emitted. Per §5, every subscriber observes the
// same linear sequence of results.
func (e *PingEngine) OnResult(handler func(PingResult)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()

	e.handlers = append(e.handlers, handler)
}

func (e *PingEngine) emitResult(result PingResult) {
	e.emitMu.Lock()
	defer e.emitMu.Unlock()

	e.handlersMu.Lock()
	handlers := make([]func(PingResult), len(e.handlers))
	copy(handlers, e.handlers)
	e.handlersMu.Unlock()

	for _, h := range handlers {
		h(result)
	}
}

// Start launches the transmitter and timeout-scanner goroutines and
// registers the engine with the shared ReceiverWorker. Returns false if
// the engine was already running.
func (e *PingEngine) Start() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	if e.running {
		return false
	}

	e.running = true
	e.stopCh = make(chan struct{})

	e.listenerToken = e.receiver.register(e.version, e.onPacketReceived)

	e.wg.Add(2)
	go e.transmitLoop()
	go e.timeoutLoop()

	e.logger.Info("engine started")

	return true
}

// Stop signals both goroutines to exit, waits for them, deregisters from
// the ReceiverWorker, closes every target's write socket and drains the
// request table without emitting results for what was still in flight,
// per §5's shutdown semantics.
func (e *PingEngine) Stop() bool {
	e.runMu.Lock()
	if !e.running {
		e.runMu.Unlock()
		return false
	}
	e.running = false
	close(e.stopCh)
	e.runMu.Unlock()

	e.wg.Wait()

	e.receiver.deregister(e.listenerToken)

	e.targetsMu.Lock()
	for _, t := range e.targets {
		t.closeWriteSocket()
	}
	e.targetsMu.Unlock()

	e.table.drain()

	e.logger.Info("engine stopped")

	return true
}

func (e *PingEngine) snapshotTargets() []*PingTarget {
	e.targetsMu.Lock()
	defer e.targetsMu.Unlock()

	out := make([]*PingTarget, len(e.targets))
	copy(out, e.targets)

	return out
}

func (e *PingEngine) transmitLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case d := <-e.resetCh:
			ticker.Reset(d)
		case <-ticker.C:
			e.transmitTick()
		}
	}
}

func (e *PingEngine) transmitTick() {
	for _, target := range e.snapshotTargets() {
		e.transmitToTarget(target)
	}
}

func (e *PingEngine) transmitToTarget(target *PingTarget) {
	sequence := target.nextSequence()
	sample := target.nextSampleNumber()

	buf := PingPacket(target.id, sequence, outgoingPayloadLength, target.hostAddress, e.version)

	now := time.Now()

	item := &PingItem{
		id:            target.id,
		sequence:      sequence,
		sampleNumber:  sample,
		target:        target,
		transmitTime:  now,
		transmitEpoch: e.transmitEpochAt(now),
	}

	// Insert before send: the table entry must be visible to the receiver
	// before the packet leaves the host, per §5's ordering guarantee.
	e.table.insert(pack32(target.id, sequence), item)

	if target.writeSocket == nil {
		if err := target.openWriteSocket(); err != nil {
			e.logger.Errorf("could not open write socket for %s: %s", target.hostAddress, err)
			return
		}
	}

	if _, err := target.writeSocket.SendTo(buf, &net.IPAddr{IP: target.hostAddress}); err != nil {
		e.logger.Warnf("send to %s (seq %d) failed: %s; item left for the timeout scanner", target.hostAddress, sequence, err)
	}
}

func (e *PingEngine) timeoutLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(defaultScanEvery)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.scanTimeouts()
		}
	}
}

func (e *PingEngine) scanTimeouts() {
	timeout := e.Timeout()
	now := time.Now()

	e.table.sweepExpired(now, timeout, func(key uint32, item *PingItem) {
		e.emitResult(PingResult{
			SampleNumber:  item.sampleNumber,
			Status:        NoReply,
			TransmitEpoch: item.transmitEpoch,
			RoundTrip:     now.Sub(item.transmitTime),
			Target:        item.target,
		})
	})
}

// onPacketReceived is the ReceiverWorker fan-out callback: it only ever
// sees packets of this engine's IP version, already parsed and filtered
// to non-Invalid types.
func (e *PingEngine) onPacketReceived(pkt *ICMPPacket, receiveTime time.Time, source net.Addr) {
	if pkt.ResultCode != EchoReply && pkt.ResultCode != TimeExceeded {
		return
	}

	key := pack32(pkt.ID, pkt.Sequence)

	item, ok := e.table.lookup(key)
	if !ok {
		return
	}

	if !item.claim() {
		return
	}

	e.table.remove(key)

	e.emitResult(PingResult{
		SampleNumber:  item.sampleNumber,
		Status:        Ok,
		ReplyAddress:  addrIP(source),
		TransmitEpoch: item.transmitEpoch,
		RoundTrip:     receiveTime.Sub(item.transmitTime),
		IsFinalReply:  pkt.ResultCode == EchoReply,
		Target:        item.target,
	})
}
