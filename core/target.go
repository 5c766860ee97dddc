package core

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net"
	"sync/atomic"
)

// PingTarget is one destination registered with a PingEngine, per §3. It
// holds a non-owning back-reference to its engine — Go's garbage collector
// makes the arena/handle scheme §9 describes for cyclic ownership
// unnecessary, but the "never an owning back-reference" rule is kept since
// it is what stops a target from keeping its engine alive after Stop.
type PingTarget struct {
	engine *PingEngine

	hostAddress net.IP
	ttl         int
	id          uint16

	sequence     uint16
	sampleNumber uint64

	writeSocket *ICMPSocket

	userData interface{}
}

func newPingTarget(engine *PingEngine, host net.IP, ttl int) *PingTarget {
	return &PingTarget{
		engine:      engine,
		hostAddress: host,
		ttl:         ttl,
		id:          randomID(),
	}
}

// randomID picks a per-target ICMP identifier uniformly in [1, 65535], per
// §3.
func randomID() uint16 {
	return uint16(rand.Intn(0xffff) + 1)
}

// HostAddress is the resolved destination of this target.
func (t *PingTarget) HostAddress() net.IP {
	return t.hostAddress
}

// TTL returns the configured TTL/HopLimit, or 0 for "use default".
func (t *PingTarget) TTL() int {
	return t.ttl
}

// ID is the 16-bit ICMP identifier used for every probe to this target.
func (t *PingTarget) ID() uint16 {
	return t.id
}

// UserData returns the opaque handle set via SetUserData.
func (t *PingTarget) UserData() interface{} {
	return t.userData
}

// SetUserData attaches an opaque handle, meaningless to the core, carried
// back on every PingResult for this target.
func (t *PingTarget) SetUserData(data interface{}) {
	t.userData = data
}

// nextSequence advances and returns the 16-bit wire sequence for the next
// probe. It is only ever called from the engine's single transmitter
// goroutine, so it needs no locking of its own.
func (t *PingTarget) nextSequence() uint16 {
	t.sequence = nextSequence(t.sequence)
	return t.sequence
}

// nextSampleNumber advances and returns the per-target monotonic sample
// index, independent of the wrapping wire sequence.
func (t *PingTarget) nextSampleNumber() uint64 {
	return atomic.AddUint64(&t.sampleNumber, 1)
}

func (t *PingTarget) openWriteSocket() error {
	ttl := t.ttl
	if ttl == 0 {
		ttl = DefaultTTL
	}

	socket, err := CreateWriteSocket(ttl, t.engine.version)
	if err != nil {
		return fmt.Errorf("could not open write socket for target %s: %w", t.hostAddress, err)
	}

	t.writeSocket = socket

	return nil
}

func (t *PingTarget) closeWriteSocket() {
	if t.writeSocket != nil {
		t.writeSocket.Close()
		t.writeSocket = nil
	}
}

// PersistedTargetConfig is the save/restore counterpart of PersistedConfig,
// scoped to a single target. UserData is deliberately absent: it is an
// opaque handle meaningful only within the process that set it, not
// something a saved document can restore.
type PersistedTargetConfig struct {
	HostAddress string `json:"hostAddress"`
	TTL         int    `json:"ttl"`
}

// SaveConfig serializes this target's host and TTL.
func (t *PingTarget) SaveConfig() ([]byte, error) {
	return json.Marshal(PersistedTargetConfig{
		HostAddress: t.hostAddress.String(),
		TTL:         t.ttl,
	})
}

// LoadConfig applies a previously saved target configuration. Malformed
// JSON is reported; a well-formed document missing ttl leaves it
// untouched. hostAddress, if present and parseable, replaces the target's
// current address and takes effect on the next probe. The write socket is
// left alone: its TTL/HopLimit is set when it is opened, so a loaded ttl
// applies only to a write socket opened afterwards.
func (t *PingTarget) LoadConfig(data []byte) error {
	var cfg PersistedTargetConfig

	if err := json.Unmarshal(data, &cfg); err != nil {
		return err
	}

	if cfg.HostAddress != "" {
		if addr := net.ParseIP(cfg.HostAddress); addr != nil {
			t.hostAddress = addr
		}
	}

	if cfg.TTL > 0 {
		t.ttl = cfg.TTL
	}

	return nil
}
