package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "upload <owner> <file>",
		Short: "Encrypt a file for its owner and store it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, path := args[0], args[1]
			if name == "" {
				name = filepath.Base(path)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			v, err := a.vault()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			info, err := v.Upload(cmd.Context(), owner, name, f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "stored file name (default: base name of <file>)")
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "download <owner> <id>",
		Short: "Decrypt one of the owner's files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := a.passphrase()
			if err != nil {
				return err
			}
			v, err := a.vault()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			content, _, err := v.Download(cmd.Context(), args[0], passphrase, args[1])
			if err != nil {
				return err
			}
			defer clear(content)

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}
			return writeNew(out, content, 0600)
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <owner>",
		Short: "List the owner's files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.vault()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			files, err := v.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTENANT\tSIZE\tUPLOADED")
			for _, f := range files {
				tenant := f.Tenant
				if tenant == "" {
					tenant = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, tenant, f.Size, f.Uploaded.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func newShareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share <owner> <id> <recipient>",
		Short: "Give the recipient its own encrypted copy of a file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase, err := a.passphrase()
			if err != nil {
				return err
			}
			v, err := a.vault()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			info, err := v.Share(cmd.Context(), args[0], passphrase, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.ID)
			return nil
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <owner> <id>",
		Short: "Delete one of the owner's files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.vault()
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()

			return v.Delete(cmd.Context(), args[0], args[1])
		},
	}
}
