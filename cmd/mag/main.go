package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mag-gateway/mag/internal/conversation"
	"github.com/mag-gateway/mag/internal/coordinator"
	magerr "github.com/mag-gateway/mag/internal/errors"
	"github.com/mag-gateway/mag/internal/executor"
	"github.com/mag-gateway/mag/internal/llm"
	"github.com/mag-gateway/mag/internal/logging"
	"github.com/mag-gateway/mag/internal/policy"
	"github.com/mag-gateway/mag/internal/shell"
	"github.com/mag-gateway/mag/internal/todo"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const stateDirName = ".mag"

var (
	providerFlag string
	modelFlag    string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:     "mag [prompt]",
	Short:   "MAG - Multi-Agent Gateway",
	Long:    `MAG mediates between LLM providers and your machine: it turns model replies into reviewed file writes and shell commands, with a policy engine and a todo work queue in between.`,
	Version: Version,
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MAG %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&providerFlag, "provider", "p", "", "LLM provider (gemini|chatgpt|claude|mistral); auto-detected from API keys when unset")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "model name; provider default when unset")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if magerr.KindOf(err) == magerr.KindConfiguration {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	switch providerFlag {
	case "", "gemini", "chatgpt", "claude", "mistral", "anthropic", "openai":
	default:
		return fmt.Errorf("unknown provider %q (expected gemini, chatgpt, claude, or mistral)", providerFlag)
	}

	// .env is optional; real environment wins over file values.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	stateDir := stateDirName
	closer := logging.Init(logging.Config{
		Format:    "auto",
		Level:     logLevelFlag,
		Component: "mag",
		FilePath:  filepath.Join(stateDir, "debug.log"),
	})
	if closer != nil {
		defer closer.Close()
	}

	log.Info().
		Str("version", Version).
		Str("commit", GitCommit).
		Msg("MAG starting")

	doc, err := policy.LoadOrCreate(stateDir)
	if err != nil {
		return err
	}
	engine, err := policy.NewEngine(doc)
	if err != nil {
		return err
	}
	go func() {
		if err := policy.Watch(ctx, stateDir, engine); err != nil {
			log.Warn().Err(err).Msg("policy watcher unavailable")
		}
	}()

	var opts []llm.Option
	if modelFlag != "" {
		opts = append(opts, llm.WithModel(modelFlag))
	}
	client, err := llm.NewClient(providerFlag, engine, opts...)
	if err != nil {
		return err
	}

	coord := coordinator.New(coordinator.Config{
		Model:  client,
		Engine: engine,
		Todos:  todo.NewStore(),
		Conv:   conversation.NewStore(filepath.Join(stateDir, "conversations")),
		Writer: &executor.FileWriter{Backup: engine.AutoBackup()},
		Runner: executor.NewRunner(""),
	})

	// Positional args form a one-shot prompt; otherwise run interactive.
	if len(args) > 0 {
		prompt := strings.Join(args, " ")
		log.Debug().Str("prompt", prompt).Msg("one-shot request")
		return coord.Run(ctx, prompt)
	}

	sh := shell.New(shell.Config{
		Coordinator: coord,
		StateDir:    stateDir,
		Version:     Version,
	})
	return sh.Run(ctx)
}
