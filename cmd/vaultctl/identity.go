package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIdentityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Create or destroy vault identities",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <owner>",
			Short: "Create an identity with a fresh key pair sealed under the passphrase",
			Args:  cobra.ExactArgs(1),
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

				if err := v.CreateIdentity(cmd.Context(), args[0], passphrase); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "identity %s created\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "destroy <owner>",
			Short: "Delete an identity's keys and every file encrypted for it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := a.vault()
				if err != nil {
					return err
				}
				defer func() { _ = a.close() }()

				if err := v.DestroyIdentity(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "identity %s destroyed\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
