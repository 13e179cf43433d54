// Package cli implements the crmstore command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/crmstore/internal/paths"
	"github.com/mesh-intelligence/crmstore/internal/sqlite"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
)

// envFileName is loaded from the working directory before flags resolve.
const envFileName = ".env"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

// app is the state shared by the commands of one root command.
type app struct {
	flags rootFlags
	cfg   *viper.Viper
}

// NewRootCmd creates the top-level "crmstore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "crmstore",
		Short:        "Inspect and maintain the offline CRM store",
		Long:         "crmstore creates, migrates and inspects the local SQLite store that\nmirrors the CRM data model for offline use.",
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFileName, err)
			}
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/crmstore)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/crmstore)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "log schema changes to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newDictCmd(a))
	root.AddCommand(newTablesCmd(a))
	root.AddCommand(newFieldsCmd(a))
	root.AddCommand(newSyncCmd(a))
	root.AddCommand(newIndexCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// attach opens the store described by the flags and config file. The
// caller must Detach it.
func (a *app) attach() (*sqlite.Backend, error) {
	cfg, err := storeConfig(a.cfg, a.flags.dataDir)
	if err != nil {
		return nil, err
	}

	var opts []sqlite.Option
	if a.flags.verbose {
		opts = append(opts, sqlite.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	store := sqlite.NewBackend(opts...)
	if err := store.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach store: %w", err)
	}
	return store, nil
}

// writeJSON writes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
