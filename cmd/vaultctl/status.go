package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/infodancer/filevault"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show algorithms, registered backends and the active configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "algorithm:        %s\n", filevault.EncryptionAlgorithm)
			fmt.Fprintf(out, "key size:         %d bits\n", filevault.KeyBits)
			fmt.Fprintf(out, "key stores:       %s\n", strings.Join(filevault.RegisteredKeyStores(), ", "))
			fmt.Fprintf(out, "file stores:      %s\n", strings.Join(filevault.RegisteredTypes(), ", "))
			fmt.Fprintf(out, "keys:             %s %s\n", a.cfg.Keys.Type, a.cfg.Keys.Path)
			fmt.Fprintf(out, "files:            %s %s\n", a.cfg.Files.Type, a.cfg.Files.Path)
			fmt.Fprintf(out, "max upload size:  %d bytes\n", a.cfg.Limits.MaxUploadSize)
			if len(a.cfg.Limits.AllowedExtensions) > 0 {
				fmt.Fprintf(out, "allowed types:    %s\n", strings.Join(a.cfg.Limits.AllowedExtensions, ", "))
			}
			if a.cfg.Vault.Tenant != "" {
				fmt.Fprintf(out, "tenant:           %s\n", a.cfg.Vault.Tenant)
			}
			if a.cfg.Audit.Path != "" {
				fmt.Fprintf(out, "audit log:        %s\n", a.cfg.Audit.Path)
			}
			return nil
		},
	}
}
