package device

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"atlas/internal/config"
	"atlas/internal/logging"
	"atlas/internal/services"
)

// defaultCaptureArgs record 16 kHz mono PCM WAV to stdout.
var defaultCaptureArgs = []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-t", "wav", "-"}

// Stream is the live audio of an in-progress recording. Reads never block
// the recorder: chunks a slow reader cannot keep up with are dropped.
type Stream interface {
	io.Reader
}

// Recorder captures one voice clip at a time.
type Recorder interface {
	Start(ctx context.Context) (Stream, error)
	Stop() ([]byte, error)
}

// Visualizer draws levels from a live Stream while recording.
type Visualizer interface {
	Attach(stream Stream)
	Detach()
}

// ExecRecorder runs an external capture command that writes WAV to stdout.
type ExecRecorder struct {
	command  string
	args     []string
	soundDir string
	logger   *slog.Logger
	grace    time.Duration

	mu  sync.Mutex
	cur *recording
}

type recording struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr bytes.Buffer
	audio  bytes.Buffer
	tap    *tap
	copied chan error
}

// NewExecRecorder builds a recorder from the device configuration. The
// capture command may include arguments; a bare binary gets the default
// WAV capture arguments.
func NewExecRecorder(cfg *config.Config, logger *slog.Logger) *ExecRecorder {
	fields := strings.Fields(cfg.Device.CaptureCommand)
	command := "arecord"
	var args []string
	if len(fields) > 0 {
		command = fields[0]
		args = fields[1:]
	}
	if len(args) == 0 {
		args = append([]string(nil), defaultCaptureArgs...)
	}
	return &ExecRecorder{
		command:  command,
		args:     args,
		soundDir: cfg.Device.SoundDir,
		logger:   logging.NewComponentLogger(logger, "recorder"),
		grace:    2 * time.Second,
	}
}

// Recording reports whether a capture is in progress.
func (r *ExecRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur != nil
}

// Start launches the capture command.
func (r *ExecRecorder) Start(ctx context.Context) (Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cur != nil {
		return nil, services.Wrap(services.ErrBusy, "recorder", "start", "already recording", nil)
	}
	if r.soundDir != "" {
		if err := Probe(r.soundDir); err != nil {
			return nil, err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	rec := &recording{
		cmd:    exec.CommandContext(runCtx, r.command, r.args...), //nolint:gosec
		cancel: cancel,
		tap:    newTap(32),
		copied: make(chan error, 1),
	}
	rec.cmd.Stderr = &rec.stderr
	// Interrupt lets arecord finalize the WAV header before exiting.
	rec.cmd.Cancel = func() error { return rec.cmd.Process.Signal(os.Interrupt) }
	rec.cmd.WaitDelay = r.grace

	stdout, err := rec.cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, Classify(err)
	}
	if err := rec.cmd.Start(); err != nil {
		cancel()
		return nil, Classify(err)
	}
	go func() {
		_, copyErr := io.Copy(io.MultiWriter(&rec.audio, rec.tap), stdout)
		rec.tap.close()
		rec.copied <- copyErr
	}()

	r.cur = rec
	r.logger.Debug("capture started", logging.String("command", r.command))
	return rec.tap, nil
}

// Stop ends the capture and returns the recorded clip.
func (r *ExecRecorder) Stop() ([]byte, error) {
	r.mu.Lock()
	rec := r.cur
	r.cur = nil
	r.mu.Unlock()
	if rec == nil {
		return nil, services.Wrap(services.ErrValidation, "recorder", "stop", "not recording", nil)
	}

	rec.cancel()
	copyErr := <-rec.copied
	waitErr := rec.cmd.Wait()

	audio := rec.audio.Bytes()
	if len(audio) == 0 {
		cause := waitErr
		if cause == nil {
			cause = copyErr
		}
		if cause == nil {
			cause = errors.New("no audio captured")
		}
		if detail := strings.TrimSpace(rec.stderr.String()); detail != "" {
			cause = fmt.Errorf("%s: %w", detail, cause)
		}
		return nil, Classify(cause)
	}
	r.logger.Debug("capture finished", logging.Int("bytes", len(audio)))
	return audio, nil
}

// tap fans recorded chunks out to a single non-blocking reader.
type tap struct {
	chunks chan []byte
	once   sync.Once
	buf    []byte
}

func newTap(depth int) *tap {
	return &tap{chunks: make(chan []byte, depth)}
}

func (t *tap) Write(p []byte) (int, error) {
	chunk := append([]byte(nil), p...)
	select {
	case t.chunks <- chunk:
	default:
	}
	return len(p), nil
}

func (t *tap) Read(p []byte) (int, error) {
	if len(t.buf) == 0 {
		chunk, ok := <-t.chunks
		if !ok {
			return 0, io.EOF
		}
		t.buf = chunk
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	return n, nil
}

func (t *tap) close() {
	t.once.Do(func() { close(t.chunks) })
}
