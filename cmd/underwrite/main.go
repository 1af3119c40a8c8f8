package main

// Offline underwriting runner for local PDF statements:
//   go run ./cmd/underwrite -provider anthropic statements/*.pdf

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"underwriter-backend/internal/bootstrap"
	"underwriter-backend/internal/llm"
	"underwriter-backend/internal/shared/config"
	localstore "underwriter-backend/internal/shared/storage/object/local"
	"underwriter-backend/internal/statements"
	"underwriter-backend/internal/underwriting"
)

const cliSession = "cli"

func main() {
	cfg := config.Load()

	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (anthropic, google, openai)")
	model := flag.String("model", cfg.LLMModel, "LLM model override")
	outPath := flag.String("out", "", "Path to write the result document JSON (default stdout)")
	debug := flag.Bool("debug", false, "Capture raw LLM responses in the result document")
	flag.Parse()

	if flag.NArg() == 0 {
		exitErr("at least one PDF statement path is required")
	}

	workDir, err := os.MkdirTemp("", "underwrite-cli-")
	if err != nil {
		exitErr(fmt.Sprintf("temp dir: %v", err))
	}
	defer os.RemoveAll(workDir)

	cfg.LLMProvider = *provider
	cfg.LLMModel = *model

	store := localstore.New(workDir)
	stmts := &statements.Service{Store: store, Repo: statements.NewMemoryRepo()}
	hub := underwriting.NewHub()

	svc := &underwriting.Service{
		Repo:            underwriting.NewMemoryRepo(),
		Statements:      stmts,
		Store:           store,
		Hub:             hub,
		Clients:         bootstrap.NewClientFactory(cfg, llm.NewTokenTracker()),
		DefaultProvider: cfg.LLMProvider,
	}

	ctx := context.Background()

	var filePaths []string
	for _, p := range flag.Args() {
		f, err := os.Open(p)
		if err != nil {
			exitErr(fmt.Sprintf("open %s: %v", p, err))
		}
		stored, err := stmts.Upload(ctx, cliSession, filepath.Base(p), f)
		f.Close()
		if err != nil {
			exitErr(fmt.Sprintf("load %s: %v", p, err))
		}
		filePaths = append(filePaths, stored.StorageKey)
	}

	events, cancel := hub.Subscribe("")
	defer cancel()
	go func() {
		for ev := range events {
			fmt.Fprintf(os.Stderr, "[%s] %s", ev.Status, ev.Step)
			if ev.Details != "" {
				fmt.Fprintf(os.Stderr, ": %s", ev.Details)
			}
			fmt.Fprintln(os.Stderr)
		}
	}()

	run, err := svc.Underwrite(ctx, cliSession, underwriting.RunRequest{
		FilePaths: filePaths,
		Provider:  *provider,
		Debug:     *debug,
	})
	if err != nil && run.Result == nil {
		exitErr(fmt.Sprintf("underwrite: %v", err))
	}

	out, err := json.MarshalIndent(run.Result, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("marshal result: %v", err))
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, out, 0o644); err != nil {
			exitErr(fmt.Sprintf("write %s: %v", *outPath, err))
		}
		return
	}
	fmt.Println(string(out))
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}
