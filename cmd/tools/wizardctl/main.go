// Command wizardctl runs operator tasks against the wizard backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"divorce-wizard/internal/app"
	"divorce-wizard/internal/common/config"
	"divorce-wizard/internal/common/logger"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "wizardctl",
		Short:         "Operator tasks for the divorce wizard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (defaults to configs/config.yaml)")

	root.AddCommand(newRemindersCmd(), newSessionsCmd(), newQuestionsCmd(), newRenderCmd(), newBlogCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// withApp builds the full application for commands that need datastores.
func withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, zap.String("service", "wizardctl"))
	defer zapLog.Sync()

	a, err := app.Build(ctx, cfg, zapLog, app.Options{MaxRetries: 3})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
