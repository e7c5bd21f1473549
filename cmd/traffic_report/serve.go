package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/TrafficReport/analyzer/internal/analyzer"
	"github.com/TrafficReport/analyzer/internal/dispatcher"
	"github.com/TrafficReport/analyzer/internal/worker"
	"github.com/spf13/cobra"
)

// CommandResult prefixes delivered results on the serve output.
const CommandResult = ":RESULT:"

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Read line commands such as :REPORT:SEGMENT:|5 from stdin and answer on stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// lockedWriter serializes command responses and delivered results.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) line(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (a *app) serve(ctx context.Context, in io.Reader, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	provider, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rec := analyzer.NewRecorder()
	consumer, closeSinks := a.consumers(ctx, rec)
	defer closeSinks()

	p, err := a.newPipeline(ctx, provider, consumer)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(a.log)
	if err != nil {
		p.Close()
		return err
	}
	worker.NewManager(worker.Dependencies{
		Reporter: p.analyzer,
		Dumps:    p.dumps,
		Logger:   a.log,
	}).RegisterHandlers(d)
	a.log.Info("Serving commands", "commands", d.Commands())

	w := &lockedWriter{w: out}
	printCtx, stopPrinting := context.WithCancel(ctx)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for {
			res, err := rec.Wait(printCtx)
			if err != nil {
				return
			}
			w.line(dispatcher.FormatResponse(CommandResult, analyzer.Summarize(res), res.Err))
		}
	}()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w.line(d.DispatchLine(line))
	}
	scanErr := scanner.Err()

	// finish accepted work, then flush whatever was delivered
	p.Close()
	stopPrinting()
	<-printed
	for _, res := range rec.Drain() {
		w.line(dispatcher.FormatResponse(CommandResult, analyzer.Summarize(res), res.Err))
	}

	if scanErr != nil {
		return fmt.Errorf("reading commands: %w", scanErr)
	}
	return nil
}
