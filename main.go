// main.go
//
// wordgame: a word-guessing game with 4, 5 or 6 letter words.
//
// Commands:
//   - serve (default)  HTTP + WebSocket game server
//   - play             play in the terminal
//   - words import     load a bank file (or the default bank) into WORDS_DB
//   - words stats      print per-length word counts of the configured bank
//
// Settings come from the environment (optionally a .env file) and can be
// overridden with flags.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/wordle/apps/wordgame/internal/game"
	"github.com/robalobadob/wordle/apps/wordgame/internal/httpserver"
	"github.com/robalobadob/wordle/apps/wordgame/internal/store"
	"github.com/robalobadob/wordle/apps/wordgame/internal/tui"
	"github.com/robalobadob/wordle/apps/wordgame/internal/words"
)

// config holds the process-wide settings.
type config struct {
	Port       string
	WordLength int
	FetchDelay time.Duration
	BankFile   string
	DBPath     string
	Source     string // "random" or "daily"
	DailySalt  string
	LogLevel   string
	LogFormat  string // "json" or "console"
	LogFile    string // log destination while the terminal UI owns the screen
}

// loadConfig reads the environment, falling back to defaults.
func loadConfig() config {
	cfg := config{
		Port:       getEnv("PORT", "5175"),
		WordLength: game.DefaultWordLength,
		FetchDelay: words.DefaultDelay,
		BankFile:   os.Getenv("WORDS_BANK_FILE"),
		DBPath:     os.Getenv("WORDS_DB"),
		Source:     getEnv("WORD_SOURCE", "random"),
		DailySalt:  getEnv("DAILY_SALT", "dev_salt_change_me"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFormat:  getEnv("LOG_FORMAT", "json"),
		LogFile:    os.Getenv("LOG_FILE"),
	}
	if n, err := strconv.Atoi(os.Getenv("WORD_LENGTH")); err == nil {
		cfg.WordLength = n
	}
	if d, err := time.ParseDuration(os.Getenv("FETCH_DELAY")); err == nil && d >= 0 {
		cfg.FetchDelay = d
	}
	return cfg
}

func (c config) validate() error {
	if c.WordLength < words.MinLength || c.WordLength > words.MaxLength {
		return fmt.Errorf("word length %d: must be between %d and %d", c.WordLength, words.MinLength, words.MaxLength)
	}
	if c.Source != "random" && c.Source != "daily" {
		return fmt.Errorf("word source %q: must be random or daily", c.Source)
	}
	if c.FetchDelay < 0 {
		return errors.New("fetch delay must not be negative")
	}
	return nil
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	if err := newRootCmd(&cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config) *cobra.Command {
	root := &cobra.Command{
		Use:          "wordgame",
		Short:        "Guess a 4, 5 or 6 letter word in five attempts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(*cfg, cmd.Name() == "play"); err != nil {
				return err
			}
			return cfg.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.IntVarP(&cfg.WordLength, "length", "l", cfg.WordLength, "word length for new games (4-6)")
	pf.DurationVar(&cfg.FetchDelay, "delay", cfg.FetchDelay, "simulated word fetch delay")
	pf.StringVar(&cfg.BankFile, "bank", cfg.BankFile, "word bank file (.yaml or one word per line)")
	pf.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite word bank database")
	pf.StringVar(&cfg.Source, "source", cfg.Source, "word choice: random or daily")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	root.AddCommand(serveCmd(cfg), playCmd(cfg), wordsCmd(cfg))
	return root
}

func serveCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	return cmd
}

func playCmd(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *cfg)
		},
	}
}

func wordsCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "words",
		Short: "Manage the word bank",
	}

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank file (default: the built-in bank) into the word database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return errors.New("no word database: set WORDS_DB or --db")
			}
			ctx := cmd.Context()
			bank, err := words.Default()
			if len(args) == 1 {
				bank, err = words.LoadFile(args[0])
			}
			if err != nil {
				return err
			}
			db, err := openWordsDB(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := words.Import(ctx, db, bank)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d new words into %s\n", n, cfg.DBPath)
			return nil
		},
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print how many words the configured bank holds per length",
		RunE: func(cmd *cobra.Command, args []string) error {
			bank, closeDB, err := loadBank(cmd.Context(), *cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			stats := bank.Stats()
			for _, l := range bank.Lengths() {
				fmt.Fprintf(cmd.OutOrStdout(), "%d letters: %d words\n", l, stats[l])
			}
			return nil
		},
	}

	cmd.AddCommand(importCmd, statsCmd)
	return cmd
}

// setupLogging configures the global zerolog logger. While the terminal UI
// owns the screen, logs go to LOG_FILE or nowhere.
func setupLogging(cfg config, tuiMode bool) error {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level %q: %w", cfg.LogLevel, err)
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stderr
	switch {
	case tuiMode && cfg.LogFile == "":
		out = io.Discard
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = f
	}
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: cfg.LogFile != ""}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

// loadBank resolves the bank source (db > file > embedded default). An empty
// word database is seeded with the default bank first.
func loadBank(ctx context.Context, cfg config) (words.Bank, func(), error) {
	var db *sql.DB
	closeDB := func() {}
	if cfg.DBPath != "" {
		var err error
		if db, err = openWordsDB(ctx, cfg.DBPath); err != nil {
			return nil, nil, err
		}
		closeDB = func() { _ = db.Close() }
		if err := seedIfEmpty(ctx, db); err != nil {
			closeDB()
			return nil, nil, err
		}
	}
	bank, err := words.Load(ctx, cfg.BankFile, db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return bank, closeDB, nil
}

// newProvider builds the word provider for cfg.
func newProvider(ctx context.Context, cfg config) (*words.Provider, error) {
	bank, closeDB, err := loadBank(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// the bank is copied into memory; the database is not needed afterwards
	closeDB()

	var src words.IndexSource = words.CryptoSource{}
	if cfg.Source == "daily" {
		src = words.DailySource{Salt: cfg.DailySalt}
	}

	ev := log.Info().Str("source", cfg.Source).Dur("delay", cfg.FetchDelay)
	for l, n := range bank.Stats() {
		ev = ev.Int("words_"+strconv.Itoa(l), n)
	}
	ev.Msg("word bank loaded")

	return words.NewProvider(bank, words.WithDelay(cfg.FetchDelay), words.WithIndexSource(src)), nil
}

func runServe(ctx context.Context, cfg config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newProvider(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to load word bank")
		return err
	}

	hcfg := httpserver.ConfigFromEnv()
	hcfg.DefaultLength = cfg.WordLength
	srv := httpserver.New(store.NewMemoryStore(), p, hcfg)

	log.Info().Str("port", cfg.Port).Int("length", cfg.WordLength).Msg("starting wordgame server")
	if err := srv.Run(ctx, ":"+cfg.Port); err != nil {
		log.Error().Err(err).Msg("server exited")
		return err
	}
	return nil
}

func runPlay(ctx context.Context, cfg config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	sess := game.NewSession(ctx, p, cfg.WordLength)
	defer sess.Close()
	return tui.New(screen, sess).Run(ctx)
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
