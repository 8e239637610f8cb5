package game

import (
	"bufio"
	"io"

	"go.uber.org/zap"
)

// CommandQueue carries commands from other goroutines to the game loop.
type CommandQueue struct {
	ch chan Command
}

func NewCommandQueue(size int) *CommandQueue {
	return &CommandQueue{ch: make(chan Command, size)}
}

// Push enqueues c without blocking; false means the queue was full.
func (q *CommandQueue) Push(c Command) bool {
	select {
	case q.ch <- c:
		return true
	default:
		return false
	}
}

// Drain runs every queued command against g. Game loop only.
func (q *CommandQueue) Drain(g *Game, log *zap.Logger) int {
	n := 0
	for {
		select {
		case c := <-q.ch:
			n++
			out, err := c.Run(g)
			if err != nil {
				log.Warn("command failed", zap.String("command", c.Name()), zap.Error(err))
				continue
			}
			log.Info("command", zap.String("command", c.Name()), zap.String("result", out))
		default:
			return n
		}
	}
}

// ReadConsole parses commands from r line by line until EOF and queues
// them. Run it in its own goroutine.
func ReadConsole(r io.Reader, q *CommandQueue, log *zap.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		c, err := ParseCommand(line)
		if err != nil {
			log.Warn("console", zap.Error(err))
			continue
		}
		if !q.Push(c) {
			log.Warn("command queue full, dropped", zap.String("command", c.Name()))
		}
	}
	if err := sc.Err(); err != nil {
		log.Debug("console closed", zap.Error(err))
	}
}
