package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
)

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Helpers for replaying provider deliveries",
	}
	cmd.AddCommand(webhookSignCmd())
	return cmd
}

func webhookSignCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "sign [payload-file]",
		Short: "Print a signature header for a stored delivery body",
		Long: `Sign a delivery body with a webhook secret so it can be re-posted to a
local server. Reads stdin when no file is given.

Example:
  courseshopctl webhook sign evt.json --secret whsec_test |
    xargs -I{} curl -H 'Stripe-Signature: {}' --data-binary @evt.json localhost:8888/api/v1/webhooks/billing`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			payload, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), stripeclient.SignPayload(payload, secret, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "webhook signing secret")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}
