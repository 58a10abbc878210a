// Package device wraps the platform microphone and camera behind chunk-source
// interfaces. Device handles are exclusively owned by the adapter instance
// that acquired them and are released on every exit path.
package device

import (
	"io"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/omnitalk/omnitalk/pkg/core"
)

// FormatPCM and FormatWebM identify the raw chunk encoding a source produces.
const (
	FormatPCM  = "pcm_s16le"
	FormatWebM = "webm"
)

// Source is a stream of captured media chunks. Close releases the underlying
// device resources and must be safe to call on every exit path.
type Source interface {
	io.ReadCloser
	Format() string
	SampleRate() int
}

// Microphone captures mono 16-bit PCM from the default capture device.
type Microphone struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device

	mu     sync.Mutex
	cond   *sync.Cond
	buf    []byte
	closed bool

	sampleRate int
}

// OpenMicrophone acquires the default capture device. A missing or denied
// device surfaces as a capture-unavailable error.
func OpenMicrophone(sampleRate int) (*Microphone, error) {
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	ctxConfig := malgo.ContextConfig{}
	ctxConfig.ThreadPriority = malgo.ThreadPriorityRealtime
	malgoCtx, err := malgo.InitContext(nil, ctxConfig, nil)
	if err != nil {
		return nil, core.NewCaptureUnavailableError("init audio context", err)
	}

	m := &Microphone{
		ctx:        malgoCtx,
		buf:        make([]byte, 0, sampleRate*2),
		sampleRate: sampleRate,
	}
	m.cond = sync.NewCond(&m.mu)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			m.mu.Lock()
			if !m.closed {
				m.buf = append(m.buf, input...)
			}
			m.mu.Unlock()
			m.cond.Signal()
		},
	}

	dev, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, core.NewCaptureUnavailableError("init microphone", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = malgoCtx.Uninit()
		return nil, core.NewCaptureUnavailableError("start microphone", err)
	}

	m.device = dev
	return m, nil
}

// Read blocks until captured PCM is available. After Close it returns io.EOF.
func (m *Microphone) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.buf) == 0 && !m.closed {
		m.cond.Wait()
	}
	if m.closed && len(m.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

// Format returns the chunk encoding.
func (m *Microphone) Format() string { return FormatPCM }

// SampleRate returns the capture rate in Hz.
func (m *Microphone) SampleRate() int { return m.sampleRate }

// Close stops the device and releases it. Safe to call more than once.
func (m *Microphone) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	m.cond.Broadcast()

	if m.device != nil {
		_ = m.device.Stop()
		m.device.Uninit()
	}
	if m.ctx != nil {
		_ = m.ctx.Uninit()
	}
	return nil
}
