package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// mirrorQueueSize bounds the messages waiting for the publish worker.
const mirrorQueueSize = 256

// Publisher is the part of Client the mirror uses.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// OSCMessage is the JSON form of a mirrored OSC message.
type OSCMessage struct {
	Path string  `json:"path"`
	Args []int32 `json:"args"`
}

// Status is the retained per-device session status document.
type Status struct {
	Serial       string `json:"serial"`
	FriendlyName string `json:"friendly_name,omitempty"`
	State        string `json:"state"`
	Reason       string `json:"reason,omitempty"`
	ServerPort   int    `json:"server_port,omitempty"`
	Prefix       string `json:"prefix,omitempty"`
	Host         string `json:"host,omitempty"`
	Port         int    `json:"port,omitempty"`
	Rotation     int    `json:"rotation"`
	Timestamp    string `json:"timestamp"`
}

type outbound struct {
	topic    string
	payload  []byte
	retained bool
}

// Mirror republishes bridge activity without blocking the caller.
type Mirror struct {
	pub    Publisher
	topics Topics
	qos    byte
	logger Logger

	queue chan outbound
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool
	mu        sync.RWMutex // guards send on queue against close

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewMirror starts a mirror publishing through pub under root.
func NewMirror(pub Publisher, root string, qos byte, logger Logger) *Mirror {
	if logger == nil {
		logger = noopLogger{}
	}
	m := &Mirror{
		pub:    pub,
		topics: Topics{Root: root},
		qos:    qos,
		logger: logger,
		queue:  make(chan outbound, mirrorQueueSize),
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Message queues an outgoing OSC message for serial.
func (m *Mirror) Message(serial, path string, args []int32) error {
	payload, err := json.Marshal(OSCMessage{Path: path, Args: args})
	if err != nil {
		return err
	}
	return m.enqueue(outbound{topic: m.topics.DeviceOSC(serial), payload: payload})
}

// Status queues a retained status update. An empty Timestamp is filled in.
func (m *Mirror) Status(st Status) error {
	if st.Timestamp == "" {
		st.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return m.enqueue(outbound{topic: m.topics.DeviceStatus(st.Serial), payload: payload, retained: true})
}

func (m *Mirror) enqueue(o outbound) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return ErrMirrorClosed
	}
	select {
	case m.queue <- o:
		return nil
	default:
		m.dropped.Add(1)
		return nil
	}
}

func (m *Mirror) run() {
	defer m.wg.Done()
	for o := range m.queue {
		if err := m.pub.Publish(o.topic, o.payload, m.qos, o.retained); err != nil {
			m.failed.Add(1)
			if !errors.Is(err, ErrNotConnected) {
				m.logger.Warn("mqtt mirror publish failed", "topic", o.topic, "error", err)
			}
			continue
		}
		m.published.Add(1)
	}
}

// Close stops accepting messages, publishes what is queued, and waits for
// the worker to finish.
func (m *Mirror) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed.Store(true)
		close(m.queue)
		m.mu.Unlock()
		m.wg.Wait()
	})
	return nil
}

// Stats returns how many messages were published, dropped on a full queue,
// and rejected by the broker.
func (m *Mirror) Stats() (published, dropped, failed uint64) {
	return m.published.Load(), m.dropped.Load(), m.failed.Load()
}
