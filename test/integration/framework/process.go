// Package framework runs the aka-* commands as child processes for
// end-to-end tests.
package framework

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// RoleProcess manages the lifecycle of one aka-* command.
type RoleProcess struct {
	pkgPath string
	args    []string
	logFile string

	cmd           *exec.Cmd
	stdin         io.WriteCloser
	output        *logWriter
	logFileHandle *os.File
	started       bool
	done          chan struct{}
	mu            sync.Mutex
}

// RoleProcessConfig holds configuration for a role process.
type RoleProcessConfig struct {
	// PkgPath is the command package directory (e.g., "cmd/aka-server").
	PkgPath string

	// Args are the command-line arguments.
	Args []string

	// LogFile is an optional path to write output to (in addition to test output).
	LogFile string
}

// NewRoleProcess creates a new role process manager.
func NewRoleProcess(config RoleProcessConfig) *RoleProcess {
	return &RoleProcess{
		pkgPath: config.PkgPath,
		args:    config.Args,
		logFile: config.LogFile,
		done:    make(chan struct{}),
	}
}

func (p *RoleProcess) command(ctx context.Context) (*exec.Cmd, error) {
	absPath, err := filepath.Abs(p.pkgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	cmd := exec.CommandContext(ctx, "go", append([]string{"run", "."}, p.args...)...)
	cmd.Dir = absPath
	cmd.Env = append(os.Environ(), "PION_LOG_INFO=all")

	if p.logFile != "" {
		f, err := os.OpenFile(p.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		p.logFileHandle = f
	}
	p.output = newLogWriter(fmt.Sprintf("[%s]", filepath.Base(p.pkgPath)), p.logFileHandle)
	cmd.Stdout = p.output
	cmd.Stderr = p.output
	return cmd, nil
}

// Start launches a long-running role and waits for it to come up.
func (p *RoleProcess) Start(startup time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("role process already started")
	}

	cmd, err := p.command(context.Background())
	if err != nil {
		return err
	}
	if p.stdin, err = cmd.StdinPipe(); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.pkgPath, err)
	}
	p.cmd = cmd
	p.started = true

	go func() {
		defer close(p.done)
		_ = cmd.Wait()
	}()

	time.Sleep(startup)
	return nil
}

// Run executes a role to completion and returns its combined output.
func (p *RoleProcess) Run(ctx context.Context) (string, error) {
	cmd, err := p.command(ctx)
	if err != nil {
		return "", err
	}
	defer p.closeLog()

	err = cmd.Run()
	return p.output.String(), err
}

// Stop types "stop" on the role's console, then falls back to SIGTERM and
// SIGKILL.
func (p *RoleProcess) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return nil
	}
	defer p.closeLog()
	p.started = false

	_, _ = io.WriteString(p.stdin, "stop\n")
	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
	}

	// go run does not forward stdin EOF to a stuck child; signal instead.
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		_ = p.cmd.Process.Kill()
	}
	return nil
}

// Output returns everything the role has written so far.
func (p *RoleProcess) Output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.output == nil {
		return ""
	}
	return p.output.String()
}

// IsRunning returns true if the role process is currently running.
func (p *RoleProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *RoleProcess) closeLog() {
	if p.logFileHandle != nil {
		p.logFileHandle.Close()
		p.logFileHandle = nil
	}
}

// logWriter prefixes output with a label, echoes it to stdout and an
// optional file, and keeps a copy.
type logWriter struct {
	prefix  string
	logFile *os.File
	buf     bytes.Buffer
	mu      sync.Mutex
}

func newLogWriter(prefix string, logFile *os.File) *logWriter {
	return &logWriter{
		prefix:  prefix,
		logFile: logFile,
	}
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fmt.Printf("%s %s", w.prefix, string(p))
	if w.logFile != nil {
		fmt.Fprintf(w.logFile, "%s %s", w.prefix, string(p))
	}
	return w.buf.Write(p)
}

// String returns the collected output.
func (w *logWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}
