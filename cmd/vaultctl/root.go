package main

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/infodancer/filevault"
	"github.com/infodancer/filevault/audit"
	"github.com/infodancer/filevault/errors"
	"github.com/infodancer/filevault/internal/config"
	"github.com/infodancer/filevault/internal/logging"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	configPath    string
	logLevel      string
	passphraseEnv string
	tenant        string

	cfg    *config.Config
	logger *zap.Logger

	keys  filevault.KeyStore
	files filevault.FileStore
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "vaultctl",
		Short: "Manage identities and encrypted files in a filevault",
		Long: `vaultctl stores files encrypted for their owner's RSA key.

Each file gets a fresh AES-256 key, which is wrapped with the owner's public
key. Private keys are kept sealed under the owner's passphrase, read from the
environment variable named by --passphrase-env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath, "path to the TOML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")
	root.PersistentFlags().StringVar(&a.tenant, "tenant", "", "tenant to act in; overrides the config file")
	root.PersistentFlags().StringVar(&a.passphraseEnv, "passphrase-env", "FILEVAULT_PASSPHRASE", "environment variable holding the passphrase")

	root.AddCommand(
		newKeygenCmd(a),
		newIdentityCmd(a),
		newUploadCmd(a),
		newDownloadCmd(a),
		newListCmd(a),
		newShareCmd(a),
		newDeleteCmd(a),
		newStatusCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger.
// A missing file at the default path means built-in defaults.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return err
		}
		cfg = config.Default()
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.tenant != "" {
		cfg.Vault.Tenant = a.tenant
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// vault opens the configured stores and returns a Vault over them.
// Callers must call close when done.
func (a *app) vault() (*filevault.Vault, error) {
	keys, err := filevault.OpenKeyStore(a.cfg.KeyStoreConfig())
	if err != nil {
		return nil, fmt.Errorf("open key store %q: %w", a.cfg.Keys.Type, err)
	}
	a.keys = keys

	files, err := filevault.Open(a.cfg.StoreConfig())
	if err != nil {
		_ = a.close()
		return nil, fmt.Errorf("open file store %q: %w", a.cfg.Files.Type, err)
	}
	a.files = files

	opts := []filevault.Option{
		filevault.WithLogger(a.logger),
		filevault.WithMaxUploadSize(a.cfg.Limits.MaxUploadSize),
		filevault.WithAllowedExtensions(a.cfg.Limits.AllowedExtensions...),
		filevault.WithTenant(a.cfg.Vault.Tenant),
	}
	if a.cfg.Audit.Path != "" {
		opts = append(opts, filevault.WithRecorder(audit.NewLog(a.cfg.Audit.Path)))
	}
	return filevault.New(keys, files, opts...), nil
}

// passphrase reads the passphrase from the configured environment variable.
func (a *app) passphrase() (string, error) {
	p := os.Getenv(a.passphraseEnv)
	if p == "" {
		return "", fmt.Errorf("%w: set %s", errors.ErrPassphraseRequired, a.passphraseEnv)
	}
	return p, nil
}

func (a *app) close() error {
	var firstErr error
	if a.files != nil {
		if err := a.files.Close(); err != nil {
			firstErr = err
		}
		a.files = nil
	}
	if a.keys != nil {
		if err := a.keys.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.keys = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return firstErr
}
