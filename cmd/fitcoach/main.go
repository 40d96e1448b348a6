// Fitcoach is an AI fitness coaching service.
//
// It generates personalized fitness plans, equipment-specific workouts,
// and answers, backed by a Gemini or Ollama model with a durable SQLite
// response cache. A bounded tool-using agent handles open-ended
// questions with a calculator and optional web search. Configuration is
// loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	fitcoach serve                    Start the API server
//	fitcoach plan -profile p.json     Generate a fitness plan
//	fitcoach workout <equipment> -profile p.json
//	fitcoach summarize <file.txt>     Summarize pasted plan text
//	fitcoach ask <question> -profile p.json
//	fitcoach agent <question>         Ask the tool-using agent
//	fitcoach version                  Print version and build information
//	fitcoach -o json version          Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/arlow/fitcoach/internal/agent"
	"github.com/arlow/fitcoach/internal/api"
	"github.com/arlow/fitcoach/internal/buildinfo"
	"github.com/arlow/fitcoach/internal/cache"
	"github.com/arlow/fitcoach/internal/coach"
	"github.com/arlow/fitcoach/internal/config"
	"github.com/arlow/fitcoach/internal/journal"
	"github.com/arlow/fitcoach/internal/llm"
	"github.com/arlow/fitcoach/internal/search"
	"github.com/arlow/fitcoach/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run] so the full
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the fitcoach command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var profilePath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-profile" && i+1 < len(args):
			profilePath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-profile="):
			profilePath = strings.TrimPrefix(args[i], "-profile=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "plan":
		return runPlan(ctx, stdout, configPath, profilePath)
	case "workout":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: fitcoach workout <equipment> -profile <file.json>")
		}
		return runWorkout(ctx, stdout, configPath, profilePath, strings.Join(cmdArgs, " "))
	case "summarize":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: fitcoach summarize <file.txt>")
		}
		return runSummarize(ctx, stdout, configPath, cmdArgs[0])
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: fitcoach ask <question> -profile <file.json>")
		}
		return runAsk(ctx, stdout, configPath, profilePath, strings.Join(cmdArgs, " "))
	case "agent":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: fitcoach agent <question>")
		}
		return runAgent(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Fitcoach - AI Fitness Coaching Service")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: fitcoach [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve                  Start the API server")
	fmt.Fprintln(w, "  plan                   Generate a fitness plan for a profile")
	fmt.Fprintln(w, "  workout <equipment>    Generate an equipment-specific workout")
	fmt.Fprintln(w, "  summarize <file>       Summarize plan text from a file")
	fmt.Fprintln(w, "  ask <question>         Answer a fitness question in profile context")
	fmt.Fprintln(w, "  agent <question>       Ask the tool-using agent")
	fmt.Fprintln(w, "  version                Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -profile <path>   Path to a profile JSON file")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/fitcoach/config.yaml, /etc/fitcoach/config.yaml")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If explicit
// is non-empty, that exact path is used. When no config file exists at
// all, built-in defaults apply so CLI one-shots work out of the box.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit == "" {
			return config.Default(), "(defaults)", nil
		}
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// loadProfile reads a coach profile from a JSON file.
func loadProfile(path string) (coach.Profile, error) {
	var p coach.Profile
	if path == "" {
		return p, fmt.Errorf("a profile is required: pass -profile <file.json>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return p, nil
}

// newLLMClient builds the chat client for the configured provider.
func newLLMClient(cfg *config.Config, logger *slog.Logger) (llm.Client, error) {
	switch cfg.Model.Provider {
	case "gemini":
		if cfg.Model.Gemini.APIKey == "" {
			return nil, fmt.Errorf("model.gemini.api_key is required for the gemini provider")
		}
		return llm.NewGeminiClient("", cfg.Model.Gemini.APIKey, logger), nil
	case "ollama":
		return llm.NewOllamaClient(cfg.Model.Ollama.URL, logger), nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Model.Provider)
	}
}

// openDatabase opens the shared SQLite database under the data
// directory. WAL keeps concurrent API reads from blocking cache writes.
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}
	dbPath := cfg.DataDir + "/fitcoach.db"
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return db, nil
}

// newCoach assembles the cached dispatcher. The returned cleanup
// closes the database.
func newCoach(cfg *config.Config, logger *slog.Logger) (*coach.Coach, func() error, error) {
	client, err := newLLMClient(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}

	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	store, err := cache.NewStore(db, ttl)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("open response cache: %w", err)
	}

	c := coach.New(client, store, coach.Config{
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		Timeout:     time.Duration(cfg.Model.TimeoutSec) * time.Second,
	}, logger)

	return c, db.Close, nil
}

// newToolRegistry builds the agent's tool set: the calculator always,
// web search only when a provider is configured.
func newToolRegistry(cfg *config.Config, logger *slog.Logger) *tools.Registry {
	reg := tools.NewRegistry()
	tools.RegisterCalculator(reg)

	mgr := search.NewManager(cfg.Search.Provider)
	if cfg.Search.SerpAPI.Configured() {
		mgr.Register(search.NewSerpAPI("", cfg.Search.SerpAPI.APIKey))
	}
	if cfg.Search.Brave.Configured() {
		mgr.Register(search.NewBrave("", cfg.Search.Brave.APIKey))
	}
	if mgr.Configured() {
		search.RegisterTool(reg, mgr, search.Options{
			Language: cfg.Search.SerpAPI.Language,
			Country:  cfg.Search.SerpAPI.Country,
		})
		logger.Info("web search tool enabled", "provider", cfg.Search.Provider)
	} else {
		logger.Info("web search not configured, agent runs with calculator only")
	}
	return reg
}

func newAgentLoop(cfg *config.Config, client llm.Client, reg *tools.Registry, logger *slog.Logger) *agent.Loop {
	return agent.New(client, reg, agent.Config{
		Model:           cfg.Model.Name,
		Temperature:     cfg.Model.Temperature,
		MaxSteps:        cfg.Agent.MaxSteps,
		MaxParseRetries: cfg.Agent.MaxParseRetries,
		Timeout:         time.Duration(cfg.Model.TimeoutSec) * time.Second,
	}, logger)
}

// runServe handles the "fitcoach serve" subcommand. It is the primary
// operating mode: loads config, opens the database, wires the coach,
// agent, and journal, starts the API server, and blocks until a
// shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting fitcoach", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
	)

	client, err := newLLMClient(cfg, logger)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := cache.NewStore(db, time.Duration(cfg.Cache.TTLSec)*time.Second)
	if err != nil {
		return fmt.Errorf("open response cache: %w", err)
	}

	c := coach.New(client, store, coach.Config{
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
		Timeout:     time.Duration(cfg.Model.TimeoutSec) * time.Second,
	}, logger)

	reg := newToolRegistry(cfg, logger)
	loop := newAgentLoop(cfg, client, reg, logger)

	listen := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := api.NewServer(listen, c, loop, logger)

	journalStore, err := journal.NewStore(db)
	if err != nil {
		return fmt.Errorf("open journal store: %w", err)
	}
	server.SetJournalStore(journalStore)

	if cfg.Journal.AssemblyAI.Configured() {
		server.SetTranscriber(journal.NewTranscriber("", cfg.Journal.AssemblyAI.APIKey, logger))
		logger.Info("voice note transcription enabled")
	}

	// Warm connectivity check. Failure is logged, not fatal: the model
	// backend may come up after we do.
	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logger.Warn("model backend not reachable yet", "error", err)
	}
	pingCancel()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runPlan handles "fitcoach plan -profile <file.json>".
func runPlan(ctx context.Context, stdout io.Writer, configPath, profilePath string) error {
	return runCoachCommand(ctx, stdout, configPath, func(ctx context.Context, c *coach.Coach) (string, error) {
		p, err := loadProfile(profilePath)
		if err != nil {
			return "", err
		}
		return c.GeneratePlan(ctx, p)
	})
}

// runWorkout handles "fitcoach workout <equipment> -profile <file.json>".
func runWorkout(ctx context.Context, stdout io.Writer, configPath, profilePath, equipment string) error {
	return runCoachCommand(ctx, stdout, configPath, func(ctx context.Context, c *coach.Coach) (string, error) {
		p, err := loadProfile(profilePath)
		if err != nil {
			return "", err
		}
		return c.PlanWorkout(ctx, equipment, p)
	})
}

// runSummarize handles "fitcoach summarize <file.txt>". "-" reads from
// stdin.
func runSummarize(ctx context.Context, stdout io.Writer, configPath, path string) error {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	return runCoachCommand(ctx, stdout, configPath, func(ctx context.Context, c *coach.Coach) (string, error) {
		return c.Summarize(ctx, string(data))
	})
}

// runAsk handles "fitcoach ask <question> -profile <file.json>".
func runAsk(ctx context.Context, stdout io.Writer, configPath, profilePath, question string) error {
	return runCoachCommand(ctx, stdout, configPath, func(ctx context.Context, c *coach.Coach) (string, error) {
		p, err := loadProfile(profilePath)
		if err != nil {
			return "", err
		}
		return c.AnswerQuestion(ctx, question, p)
	})
}

// runCoachCommand boots a coach for a single CLI request, runs fn, and
// prints the output.
func runCoachCommand(ctx context.Context, stdout io.Writer, configPath string, fn func(context.Context, *coach.Coach) (string, error)) error {
	logger := newLogger(io.Discard, slog.LevelInfo)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	c, closeDB, err := newCoach(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDB()

	out, err := fn(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

// runAgent handles "fitcoach agent <question>". The reasoning trace
// goes to stdout ahead of the answer so tool use stays visible.
func runAgent(ctx context.Context, stdout io.Writer, configPath, question string) error {
	logger := newLogger(io.Discard, slog.LevelInfo)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	client, err := newLLMClient(cfg, logger)
	if err != nil {
		return err
	}

	reg := newToolRegistry(cfg, logger)
	loop := newAgentLoop(cfg, client, reg, logger)

	res, err := loop.RunWithCallback(ctx, question, func(st agent.Step) {
		fmt.Fprintf(stdout, "Thought: %s\nAction: %s(%s)\nObservation: %s\n\n",
			st.Thought, st.Action, st.ActionInput, st.Observation)
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, res.Answer)
	return nil
}
