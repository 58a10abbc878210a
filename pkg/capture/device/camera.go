package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"

	"github.com/omnitalk/omnitalk/pkg/core"
)

// Camera captures audio+video as a webm chunk stream via an ffmpeg
// subprocess. ffmpeg handles device access and container muxing on every
// platform we support.
type Camera struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
	closed bool
}

// OpenCamera starts an ffmpeg capture of the default camera and microphone.
func OpenCamera() (*Camera, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, core.NewCaptureUnavailableError("ffmpeg is required for video capture", err)
	}
	args, err := cameraArgs(runtime.GOOS)
	if err != nil {
		return nil, core.NewCaptureUnavailableError("video capture", err)
	}

	cmd := exec.Command("ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, core.NewCaptureUnavailableError("open ffmpeg stdout", err)
	}
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, core.NewCaptureUnavailableError("start ffmpeg camera capture", err)
	}
	return &Camera{cmd: cmd, stdout: stdout}, nil
}

func cameraArgs(goos string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "avfoundation", "-framerate", "30", "-i", "0:0",
			"-c:v", "libvpx", "-c:a", "libopus",
			"-f", "webm", "-",
		}, nil
	case "linux":
		return []string{
			"-hide_banner", "-loglevel", "error",
			"-f", "v4l2", "-i", "/dev/video0",
			"-f", "pulse", "-i", "default",
			"-c:v", "libvpx", "-c:a", "libopus",
			"-f", "webm", "-",
		}, nil
	default:
		return nil, fmt.Errorf("video capture is not implemented for %s", goos)
	}
}

func (c *Camera) Read(p []byte) (int, error) {
	c.mu.Lock()
	stdout := c.stdout
	closed := c.closed
	c.mu.Unlock()
	if closed || stdout == nil {
		return 0, io.EOF
	}
	return stdout.Read(p)
}

// Format returns the chunk encoding.
func (c *Camera) Format() string { return FormatWebM }

// SampleRate is not meaningful for a muxed container stream.
func (c *Camera) SampleRate() int { return 0 }

// Close kills the capture process and releases the devices.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
		_ = c.cmd.Wait()
	}
	return nil
}

// FrameSource grabs one still frame for emotion correlation. A nil frame with
// nil error means no frame was available; callers treat that as best-effort.
type FrameSource interface {
	CaptureFrame(ctx context.Context) ([]byte, error)
}

// FFmpegFrameSource grabs a single JPEG from the live camera preview.
type FFmpegFrameSource struct{}

// CaptureFrame shells out to ffmpeg for one frame of the default camera.
func (FFmpegFrameSource) CaptureFrame(ctx context.Context) ([]byte, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, nil
	}

	var input []string
	switch runtime.GOOS {
	case "darwin":
		input = []string{"-f", "avfoundation", "-framerate", "30", "-i", "0"}
	case "linux":
		input = []string{"-f", "v4l2", "-i", "/dev/video0"}
	default:
		return nil, nil
	}

	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	args = append(args, "-frames:v", "1", "-f", "image2", "-c:v", "mjpeg", "-")

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stdout = &out
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	if out.Len() == 0 {
		return nil, nil
	}
	return out.Bytes(), nil
}
