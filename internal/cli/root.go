// Package cli wires the triage pipeline behind a small cobra surface.
// It is the stand-in presentation layer: every command builds the
// coordinator, invokes one operation, and prints the result.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/ai"
	"github.com/nhle/mail-triage/internal/category"
	"github.com/nhle/mail-triage/internal/credential"
	"github.com/nhle/mail-triage/internal/mailbox"
	"github.com/nhle/mail-triage/internal/model"
	"github.com/nhle/mail-triage/internal/store"
	"github.com/nhle/mail-triage/internal/triage"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "AI-assisted email triage for your Gmail inbox",
	Long: `triage pulls recent messages from a Gmail inbox, classifies each one
into a business category with a hosted language model, and produces
per-message summaries with action items on demand.

State (credentials, the fetched collection, classification results)
is persisted locally, so results survive between invocations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetLevel(logrus.WarnLevel)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", model.DefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// app bundles the wired-up pipeline for one command invocation.
type app struct {
	cfg         *model.AppConfig
	store       *store.SQLiteStore
	coordinator *triage.Coordinator
	categories  *category.Set
}

// newApp loads config, opens the store, builds the clients, and
// restores persisted coordinator state.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	s, err := store.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	cats := category.ForName(cfg.Taxonomy)
	client := ai.NewClient(loadAPIKey(), cfg.AI.Model,
		ai.WithRetry(cfg.AI.MaxAttempts, time.Duration(cfg.AI.BaseDelayMS)*time.Millisecond))

	coord := triage.New(
		s,
		mailbox.NewClient(),
		ai.NewClassifier(client, cats),
		ai.NewSummarizer(client),
		triage.Options{PageSize: int64(cfg.Gmail.PageSize)},
	)
	if err := coord.Restore(ctx); err != nil {
		s.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: s, coordinator: coord, categories: cats}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logrus.WithError(err).Warn("closing store")
	}
}

// loadAPIKey resolves the Gemini API key from the environment first,
// then the system keyring. Missing is tolerated: classification and
// summarization degrade instead of failing.
func loadAPIKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	key, err := credential.Get(credential.KeyGeminiAPIKey)
	if err != nil {
		return ""
	}
	return key
}

// requireAuth fails fast with a login hint when no valid credential
// is held.
func requireAuth(a *app) error {
	if !a.coordinator.IsAuthenticated() {
		return fmt.Errorf("not logged in (run 'triage login')")
	}
	return nil
}
