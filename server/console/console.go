package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Console reads command lines from an io.Reader, os.Stdin by default, and
// executes them in the transaction of a world. Command output is written to a
// logger.
type Console struct {
	w      *world.World
	log    *slog.Logger
	reader io.Reader
}

// New returns a Console executing commands in w.
func New(w *world.World, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{w: w, log: log.With("subsystem", "console"), reader: os.Stdin}
}

// WithReader sets a custom reader for the console input.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// Run executes commands until ctx is cancelled or the reader reaches EOF.
func (c *Console) Run(ctx context.Context) {
	lines := make(chan string)
	go c.scan(ctx, lines)

	src := &source{log: c.log}
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			c.execute(src, line)
		}
	}
}

// scan sends every command line read to lines. It returns once the reader is
// exhausted or when ctx is cancelled while a line is waiting to be executed.
func (c *Console) scan(ctx context.Context, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(c.reader)
	for scanner.Scan() {
		line := normalise(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case lines <- line:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		c.log.Error("console input error", "err", err)
	}
}

func (c *Console) execute(src cmd.Source, line string) {
	name, args, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	command, ok := cmd.ByAlias(name)
	if !ok {
		o := &cmd.Output{}
		o.Errorf("Unknown command: %s. Please check that the command exists and that you have permission to use it.", name)
		src.SendCommandOutput(o)
		return
	}
	<-c.w.Exec(func(tx *world.Tx) {
		command.Execute(args, src, tx)
	})
}

// normalise trims line and prefixes it with a slash if it holds a command.
func normalise(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "/") {
		return line
	}
	return "/" + line
}

type source struct {
	log *slog.Logger
}

func (*source) Position() mgl64.Vec3 { return mgl64.Vec3{} }

func (*source) Name() string { return "Console" }

func (s *source) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		s.log.Info(msg.String())
	}
	for _, err := range o.Errors() {
		s.log.Error(err.Error())
	}
}
