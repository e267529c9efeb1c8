package render

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"clipforge/internal/logging"
)

// Command is one fully rendered invocation of an external media tool.
type Command struct {
	Binary string
	Args   []string
}

func (c Command) String() string {
	return c.Binary + " " + strings.Join(c.Args, " ")
}

// Engine executes media commands. The production engine shells out to the
// configured binary; tests substitute a fake to assert on rendered arguments
// without requiring ffmpeg on the machine.
type Engine interface {
	Run(ctx context.Context, cmd Command) error
}

const toolTailLines = 12

// ToolEngine runs commands via os/exec. Output is scanned line by line: with
// debug enabled every line is forwarded to the logger, and a bounded tail is
// always retained so failures carry the tool's final diagnostics.
type ToolEngine struct {
	logger *slog.Logger
	debug  bool
}

// NewToolEngine builds the exec-backed engine.
func NewToolEngine(logger *slog.Logger, debug bool) *ToolEngine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ToolEngine{logger: logger, debug: debug}
}

func (e *ToolEngine) Run(ctx context.Context, cmd Command) error {
	binary := strings.TrimSpace(cmd.Binary)
	if binary == "" {
		return errors.New("engine: binary required")
	}
	name := filepath.Base(binary)

	proc := exec.CommandContext(ctx, binary, cmd.Args...) //nolint:gosec
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: stdout pipe: %w", name, err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: stderr pipe: %w", name, err)
	}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("%s: start: %w", name, err)
	}

	tail := newTailBuffer(toolTailLines)
	var wg sync.WaitGroup
	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			tail.Append(line)
			if e.debug {
				e.logger.Debug("tool output",
					logging.String("binary", name),
					logging.String("line", line))
			}
		}
	}
	wg.Add(2)
	go scan(stdout)
	go scan(stderr)
	wg.Wait()

	if err := proc.Wait(); err != nil {
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("%s: %w: %s", name, err, detail)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// tailBuffer retains the last max non-empty lines written to it. Two scanner
// goroutines feed it concurrently.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Append(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > t.max {
		t.lines = t.lines[len(t.lines)-t.max:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, " | ")
}
