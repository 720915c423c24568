// Package console watches an operator input stream for shutdown commands.
//
// Input is read word by word on a background goroutine; callers poll
// StopRequested or wait on Done without blocking their own loop.
package console

import (
	"bufio"
	"io"
	"strings"
	"sync"

	"github.com/pion/logging"
)

// DefaultCommands are the words that request shutdown.
var DefaultCommands = []string{"stop", "end"}

// Config configures a Console.
type Config struct {
	// Input is the operator stream (typically os.Stdin). Required.
	Input io.Reader

	// Commands lists the words that request shutdown.
	// If empty, DefaultCommands is used.
	Commands []string

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Console reports when a shutdown command has been entered.
type Console struct {
	commands map[string]struct{}
	log      logging.LeveledLogger

	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	command string
}

// New starts watching config.Input. The watcher exits at end of input or
// after the first shutdown command.
func New(config Config) *Console {
	c := &Console{
		commands: make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	commands := config.Commands
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	for _, cmd := range commands {
		c.commands[cmd] = struct{}{}
	}

	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("console")
	}

	if config.Input != nil {
		go c.watch(config.Input)
	}
	return c
}

func (c *Console) watch(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)

	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if _, ok := c.commands[word]; ok {
			c.request(word)
			return
		}
		if c.log != nil {
			c.log.Infof("unknown command %q", word)
		}
	}
	if err := scanner.Err(); err != nil && c.log != nil {
		c.log.Warnf("console input failed: %v", err)
	}
}

// request marks shutdown as requested by command.
func (c *Console) request(command string) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.command = command
		c.mu.Unlock()

		if c.log != nil {
			c.log.Infof("shutdown requested (%s)", command)
		}
		close(c.done)
	})
}

// RequestStop requests shutdown programmatically.
func (c *Console) RequestStop() {
	c.request("stop")
}

// StopRequested reports whether a shutdown command has been entered.
// It never blocks.
func (c *Console) StopRequested() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Done is closed once shutdown has been requested.
func (c *Console) Done() <-chan struct{} {
	return c.done
}

// Command returns the word that requested shutdown, or "".
func (c *Console) Command() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.command
}
