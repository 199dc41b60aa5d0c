package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/signerd/internal/config"
)

// BuildInfo carries ldflags-injected version metadata into the CLI.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

//nolint:gochecknoglobals // cobra's flag-binding pattern requires package-level state
var (
	homeDir string
	verbose bool

	cfg    *config.Config
	logger *config.Logger
	build  BuildInfo
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "signerd",
		Short: "A local signing daemon for a privacy-preserving ledger",
		Long: `signerd holds a user's BIP-39 recovery phrase in encrypted storage,
restores it on login under a user password, and serves as the sole holder
of the spending authority for the user's private assets. Wallet front-ends
talk to it over loopback HTTP for sync, sign, and address-derivation
requests.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return initGlobals()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&homeDir, "home", "", "signerd home directory (default $SIGNERD_HOME or ~/.signerd)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command.
func Execute(info BuildInfo) error {
	build = info
	return newRootCmd().Execute()
}

func initGlobals() error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	configPath := config.Path(home)
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Defaults()
			cfg.Home = home
		} else {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
			cfg = config.Defaults()
			cfg.Home = home
		}
	}

	config.ApplyEnvironment(cfg)
	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if strings.HasPrefix(cfg.Home, "~/") {
		if userHome, homeErr := os.UserHomeDir(); homeErr == nil {
			cfg.Home = filepath.Join(userHome, cfg.Home[2:])
		}
	}

	logLevel := config.ParseLogLevel(cfg.Logging.Level)
	logger, err = config.NewLogger(logLevel, cfg.Logging.File)
	if err != nil {
		logger = config.NullLogger()
	}
	return nil
}
