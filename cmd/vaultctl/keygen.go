package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/infodancer/filevault"
)

func newKeygenCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a standalone RSA key pair",
		Long: `Generates an RSA-2048 key pair and writes it as <out>.key (PKCS#8, mode 0600)
and <out>.pub (SubjectPublicKeyInfo, mode 0644). The private key is not sealed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := filevault.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer clear(pair.PrivateKey)

			privPath, pubPath := out+".key", out+".pub"
			if err := writeNew(privPath, pair.PrivateKey, 0600); err != nil {
				return err
			}
			if err := writeNew(pubPath, pair.PublicKey, 0644); err != nil {
				_ = os.Remove(privPath)
				return err
			}

			a.logger.Debug("key pair written")
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", privPath, pubPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "filevault", "output path prefix")
	return cmd
}

// writeNew writes data to a file that must not already exist.
func writeNew(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}
