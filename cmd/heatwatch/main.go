package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ashgrove/heatwatch/internal/applog"
	"github.com/ashgrove/heatwatch/internal/config"
	"github.com/ashgrove/heatwatch/internal/orchestrator"
	"github.com/ashgrove/heatwatch/internal/ui"
)

var defaultIgnore = []string{"node_modules", ".git", "dist"}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("heatwatch", flag.ContinueOnError)
	logFile := fs.String("log-file", "", "write structured logs to this file")
	cfg, err := config.Parse(fs, os.Args[1:], defaultIgnore)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "heatwatch: %v\n", err)
		return 1
	}

	log, logf, err := applog.NewFile(*logFile, slog.LevelInfo)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heatwatch: log file: %v\n", err)
		return 1
	}
	if logf != nil {
		defer logf.Close()
	}

	orch, err := orchestrator.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heatwatch: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "heatwatch: failed to watch %s: %v\n", orch.Root, err)
		return 1
	}
	defer orch.Stop()

	model := ui.NewModel(
		orch.Tree,
		orch.Vcs,
		orch.Watcher,
		log,
		cfg.Breathe(),
		cfg.GhostSteps,
		orch.Batches,
		orch.Inventory,
		orch.WatchErrs,
	)

	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "heatwatch: %v\n", err)
		return 1
	}
	if fm, ok := final.(ui.Model); ok {
		_ = fm.Quitting()
	}
	return 0
}
