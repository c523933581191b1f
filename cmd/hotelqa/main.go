package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"hotelqa/internal/chunker"
	completion "hotelqa/internal/completion/openai"
	"hotelqa/internal/config"
	"hotelqa/internal/domain"
	embedding "hotelqa/internal/embedding/openai"
	"hotelqa/internal/logger"
	"hotelqa/internal/service"
	"hotelqa/internal/tui"
	"hotelqa/internal/vectorstore/couchbase"
)

// deps are the process-level collaborators replaced in tests.
type deps struct {
	lookup  config.LookupFunc
	connect func(ctx context.Context, cfg couchbase.ConnectConfig, logger *zap.Logger) (*couchbase.Connection, error)
	stdout  io.Writer
	stderr  io.Writer
}

func defaultDeps() deps {
	return deps{
		lookup:  os.LookupEnv,
		connect: couchbase.Connect,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newApp(defaultDeps()).RunContext(ctx, os.Args)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

type app struct {
	deps
	cfg    *config.AppConfig
	logger *zap.Logger
}

func newApp(d deps) *cli.App {
	a := &app{deps: d, logger: zap.NewNop()}
	return &cli.App{
		Name:      "hotelqa",
		Usage:     "Ask questions about hotels, answered from guest reviews",
		Writer:    d.stdout,
		ErrWriter: d.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file (uses ./config.yaml or ~/.config/hotelqa/config.yaml if not provided)",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file instead of ./.env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write JSON logs to this file",
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Action: a.interactiveCommand,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a single question and print it",
				ArgsUsage: "QUESTION",
				Action:    a.askCommand,
			},
			{
				Name:      "ingest",
				Usage:     "Chunk, embed and store review text files",
				ArgsUsage: "FILES...",
				Action:    a.ingestCommand,
			},
		},
		// Errors are reported by the commands themselves; main picks the status.
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// setup loads .env and the settings file. The logger is built per command.
func (a *app) setup(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return a.fail(domain.ConfigurationError("load env file", err))
		}
	} else {
		_ = godotenv.Load()
	}

	var (
		cfg *config.AppConfig
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		return a.fail(domain.ConfigurationError("load config", err))
	}
	if level := c.String("log-level"); level != "" {
		if _, err := logger.ParseLevel(level); err != nil {
			return a.fail(domain.ConfigurationError("log level", err))
		}
		cfg.Log.Level = level
	}
	if file := c.String("log-file"); file != "" {
		cfg.Log.File = file
	}
	a.cfg = cfg
	return nil
}

func (a *app) teardown(*cli.Context) error {
	_ = a.logger.Sync()
	return nil
}

// initLogger builds the zap logger. The TUI owns the terminal, so only
// one-shot commands add a console core.
func (a *app) initLogger(console bool) error {
	opts := logger.Options{File: a.cfg.Log.File, Level: a.cfg.Log.Level}
	if console {
		opts.Console = a.stderr
	}
	l, err := logger.New(opts)
	if err != nil {
		return a.fail(domain.ConfigurationError("logger", err))
	}
	a.logger = l
	return nil
}

// pipeline is everything a command needs once the store is reachable.
type pipeline struct {
	conn     *couchbase.Connection
	embedder *embedding.Client
	store    *couchbase.Storage
	qa       *service.QAServiceImpl
}

func (p *pipeline) Close() error { return p.conn.Close() }

// build reads the connection variables, connects, and wires the clients.
// Every failure here is fatal for the command.
func (a *app) build(ctx context.Context) (*pipeline, error) {
	env, err := config.LoadStoreEnv(a.lookup)
	if err != nil {
		return nil, a.fail(err)
	}

	conn, err := a.connect(ctx, couchbase.ConnectConfig{
		ConnectionString: env.ConnectionString,
		Username:         env.Username,
		Password:         env.Password,
		Timeout:          seconds(a.cfg.Store.ConnectTimeoutSecs),
	}, a.logger)
	if err != nil {
		return nil, a.fail(err)
	}

	emb, err := embedding.NewClient(embedding.Config{
		BaseURL:   a.cfg.Embedder.BaseURL,
		APIKeyEnv: a.cfg.Embedder.APIKeyEnv,
		Model:     a.cfg.Embedder.Model,
		Timeout:   seconds(a.cfg.Embedder.TimeoutSecs),
	}, a.logger)
	if err != nil {
		_ = conn.Close()
		return nil, a.fail(err)
	}

	llm, err := completion.NewClient(completion.Config{
		BaseURL:     a.cfg.Completion.BaseURL,
		APIKeyEnv:   a.cfg.Completion.APIKeyEnv,
		Model:       a.cfg.Completion.Model,
		Temperature: a.cfg.Completion.Temperature,
		Streaming:   !a.cfg.Completion.DisableStreaming,
		Timeout:     seconds(a.cfg.Completion.TimeoutSecs),
	}, a.logger)
	if err != nil {
		_ = conn.Close()
		return nil, a.fail(err)
	}

	store := couchbase.NewStorage(conn, couchbase.StorageConfig{
		Bucket:        env.Bucket,
		Scope:         env.Scope,
		Collection:    env.Collection,
		Index:         env.SearchIndex,
		EmbeddingKey:  a.cfg.Store.EmbeddingKey,
		TextKey:       a.cfg.Store.TextKey,
		SearchTimeout: seconds(a.cfg.Store.SearchTimeoutSecs),
	})

	return &pipeline{
		conn:     conn,
		embedder: emb,
		store:    store,
		qa:       service.NewQAService(emb, store, llm, a.cfg.Store.TopK, a.logger),
	}, nil
}

func (a *app) interactiveCommand(c *cli.Context) error {
	if c.Args().Present() {
		return a.fail(fmt.Errorf("unknown command %q", c.Args().First()))
	}
	if err := a.initLogger(false); err != nil {
		return err
	}
	p, err := a.build(c.Context)
	if err != nil {
		return err
	}
	defer p.Close()

	if _, err := tea.NewProgram(tui.New(c.Context, p.qa, a.logger)).Run(); err != nil {
		return a.fail(err)
	}
	return nil
}

func (a *app) askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return a.fail(errors.New("a question is required"))
	}
	if err := a.initLogger(true); err != nil {
		return err
	}
	p, err := a.build(c.Context)
	if err != nil {
		return err
	}
	defer p.Close()

	if err := printAnswer(c.Context, p.qa, question, a.stdout); err != nil {
		color.New(color.FgRed).Fprintln(a.stderr, "An error occurred while processing your request.")
		return a.fail(err)
	}
	return nil
}

// incompleteMarker follows fragments already printed when the answer fails.
const incompleteMarker = "[answer incomplete, discard the text above]"

// printAnswer streams the answer to w as it arrives. If it fails after
// printing, the partial text is closed off with incompleteMarker.
func printAnswer(ctx context.Context, svc domain.QAService, question string, w io.Writer) error {
	printed := false
	_, err := svc.Answer(ctx, question, func(s string) {
		printed = true
		fmt.Fprint(w, s)
	})
	if err != nil {
		if printed {
			fmt.Fprintf(w, "\n%s\n", incompleteMarker)
		}
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func (a *app) ingestCommand(c *cli.Context) error {
	if !c.Args().Present() {
		return a.fail(errors.New("at least one file is required"))
	}
	if err := a.initLogger(true); err != nil {
		return err
	}
	p, err := a.build(c.Context)
	if err != nil {
		return err
	}
	defer p.Close()

	ing := service.NewIngester(
		chunker.NewSentenceChunker(a.cfg.Ingest.SentencesPerChunk, a.cfg.Ingest.OverlapSentences),
		p.embedder,
		p.store,
		a.cfg.Ingest.RequestsPerSecond,
		a.logger,
	)
	report, err := ing.IngestFiles(c.Context, c.Args().Slice())
	if err != nil {
		return a.fail(err)
	}
	color.New(color.FgGreen).Fprintf(a.stdout, "Ingested %d documents (%d chunks)\n", report.Documents, report.Chunks)
	return nil
}

// fail logs err, prints it in red and returns it as exit status 1.
func (a *app) fail(err error) error {
	a.logger.Error("command failed", zap.String("kind", domain.KindOf(err).String()), zap.Error(err))
	color.New(color.FgRed).Fprintln(a.stderr, err.Error())
	return cli.Exit(err.Error(), 1)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
