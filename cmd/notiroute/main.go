package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"notiroute/internal/app"
	"notiroute/internal/config"
	"notiroute/internal/message"
	"notiroute/internal/router"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}

type cli struct {
	config    string
	verbose   bool
	dryRun    bool
	follow    bool
	message   string
	hasMsg    bool
	level     message.Level
	title     string
	component string
	author    string
}

func parseFlags(args []string, stderr io.Writer) (*cli, error) {
	c := &cli{level: message.Info}
	fs := flag.NewFlagSet("notiroute", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.config, "config", "", "config file (default $HOME/"+config.DefaultFileName+", created if missing)")
	fs.BoolVar(&c.verbose, "v", false, "verbose: print the message and every delivery attempt")
	fs.BoolVar(&c.dryRun, "dry-run", false, "show where the message would go without sending it")
	fs.BoolVar(&c.follow, "follow", false, "send every stdin line as a message until EOF")
	fs.Func("m", "message detail (default: read stdin)", func(s string) error {
		c.message, c.hasMsg = s, true
		return nil
	})
	fs.TextVar(&c.level, "l", message.Info, "level: info, self_info, warn, error, self_error")
	fs.StringVar(&c.title, "t", "", "title")
	fs.StringVar(&c.component, "c", "", "component, e.g. db/backup")
	fs.StringVar(&c.author, "a", "", "author suffix appended to the host name")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if c.follow && c.hasMsg {
		return nil, errors.New("-m and -follow are mutually exclusive")
	}
	return c, nil
}

func (c *cli) build(detail string) *message.Message {
	b := message.NewBuilder().Level(c.level).Title(c.title).Body(detail).Component(c.component)
	if c.author != "" {
		b = b.Author(c.author)
	}
	return b.Build()
}

// resolveConfig returns the config path, writing the default config when
// no path was given and the default file does not exist yet.
func resolveConfig(c *cli, stderr io.Writer) (string, error) {
	if c.config != "" {
		return c.config, nil
	}
	path, err := config.DefaultPath()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if _, err := config.WriteDefault(path); err != nil {
			return "", fmt.Errorf("write default config: %w", err)
		}
		fmt.Fprintf(stderr, "created default config %s\n", path)
	}
	return path, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "error:", err)
		return exitUsage
	}

	path, err := resolveConfig(c, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return exitFailed
	}
	if c.verbose {
		fmt.Fprintln(stdout, "Using config", path)
	}

	a, err := app.New(app.Options{ConfigPath: path, Verbose: c.verbose})
	if err != nil {
		fmt.Fprintln(stderr, "fatal:", err)
		return exitFailed
	}
	defer a.Close()

	if c.verbose {
		// events are written from another goroutine
		stdout = &lockedWriter{w: stdout}
		stop := a.TraceEvents(stdout)
		defer stop()
	}

	if c.follow {
		return follow(ctx, a, c, stdin, stdout, stderr)
	}

	detail := c.message
	if !c.hasMsg {
		if c.verbose {
			fmt.Fprintln(stdout, "Reading stdin.")
		}
		b, err := io.ReadAll(stdin)
		if err != nil {
			fmt.Fprintln(stderr, "fatal: read stdin:", err)
			return exitFailed
		}
		detail = strings.TrimRight(string(b), "\n")
	}
	m := c.build(detail)
	if c.verbose || c.dryRun {
		fmt.Fprintln(stdout, "Message:", m)
	}

	if c.dryRun {
		p := a.Plan(m)
		fmt.Fprintf(stdout, "primary: %s\n", joinIDs(p.Primary))
		fmt.Fprintf(stdout, "drain (if nothing else accepts): %s\n", joinIDs(p.Drain))
		fmt.Fprintf(stdout, "failure reports: %s\n", joinIDs(p.Roots))
		return exitOK
	}

	n, err := a.Route(ctx, m)
	var report *router.DeliveryReport
	switch {
	case errors.As(err, &report):
		if rerr := report.Render(stdout); rerr != nil {
			fmt.Fprintln(stderr, "error: write report:", rerr)
		}
		return exitFailed
	case err != nil:
		fmt.Fprintln(stderr, "error:", err)
		return exitFailed
	}
	if c.verbose {
		fmt.Fprintf(stdout, "Delivered to %d destination(s).\n", n)
	}
	return exitOK
}

func follow(ctx context.Context, a *app.App, c *cli, stdin io.Reader, stdout, stderr io.Writer) int {
	stats, err := a.Follow(ctx, stdin, c.build)
	if c.verbose {
		fmt.Fprintf(stdout, "Followed %d line(s), %d with delivery failures.\n", stats.Lines, stats.Failed)
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return exitFailed
	}
	if stats.Failed > 0 {
		return exitFailed
	}
	return exitOK
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
