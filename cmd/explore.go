package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crop-explorer/internal/loader"
	"github.com/sells-group/crop-explorer/internal/session"
	"github.com/sells-group/crop-explorer/internal/view"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactive session: read commands on stdin, write JSON snapshots",
	Long: `Reads one command per line and prints one JSON snapshot per accepted event.

Commands: item <name>, element <name>, year <n>, scale linear|log, top <n>,
select <area>, clear, next, prev, play, reset, quit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		res, err := loadData(ctx, cfg)
		if err != nil {
			return err
		}
		opts, err := sessionOptions(cfg, res)
		if err != nil {
			return err
		}
		pretty, _ := cmd.Flags().GetBool("pretty")
		return explore(ctx, os.Stdin, os.Stdout, os.Stderr, res, opts, pretty)
	},
}

func init() {
	exploreCmd.Flags().Bool("pretty", false, "indent JSON snapshots")
	rootCmd.AddCommand(exploreCmd)
}

// explore drives a session from line commands until quit, EOF or ctx ends.
// Parse errors go to errOut and do not end the session.
func explore(ctx context.Context, in io.Reader, out, errOut io.Writer, res *loader.Result, opts session.Options, pretty bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(view.New(res.Store, res.Resolver), res.Store, session.NewJSONRenderer(out, pretty), opts)
	zap.L().Info("explore: session started", zap.String("session", sess.ID()))

	events := make(chan session.Event)
	runErr := make(chan error, 1)
	go func() { runErr <- sess.Run(ctx, events) }()

	lines, scanErr := readLines(ctx, in)
	for {
		var line string
		var ok bool
		select {
		case line, ok = <-lines:
		case err := <-runErr:
			return err
		case <-ctx.Done():
		}
		if !ok {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev, err := session.ParseEvent(line)
		if errors.Is(err, session.ErrQuit) {
			break
		}
		if err != nil {
			fmt.Fprintln(errOut, err)
			continue
		}
		select {
		case events <- ev:
		case err := <-runErr:
			return err
		case <-ctx.Done():
		}
	}

	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	select {
	case err := <-scanErr:
		return err
	default:
		// Still blocked reading; the goroutine ends with the process.
		return nil
	}
}

// readLines scans in on its own goroutine so a blocked read does not hold
// up cancellation. The error channel is filled before lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}
