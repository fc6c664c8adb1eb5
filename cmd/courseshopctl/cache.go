package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fatflowers/courseshop/internal/app/service/access"
	"github.com/fatflowers/courseshop/internal/app/service/tenantdir"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and repair cached entries",
	}
	cmd.AddCommand(cacheInvalidateCmd())
	return cmd
}

func cacheInvalidateCmd() *cobra.Command {
	var slug, domain, userID string
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached tenant or user entries after a manual database edit",
		Example: `  courseshopctl cache invalidate --slug acme
  courseshopctl cache invalidate --domain learn.acme.io --user 0190c7a2-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if slug == "" && domain == "" && userID == "" {
				return errors.New("one of --slug, --domain or --user is required")
			}
			var (
				tenants *tenantdir.Service
				users   *access.Service
			)
			return withPlatform(cmd.Context(), func(ctx context.Context) error {
				out := cmd.OutOrStdout()
				if slug != "" {
					if err := tenants.Invalidate(ctx, slug); err != nil {
						return fmt.Errorf("invalidate slug %s: %w", slug, err)
					}
					fmt.Fprintf(out, "invalidated tenant slug %s\n", slug)
				}
				if domain != "" {
					if err := tenants.InvalidateByDomain(ctx, domain); err != nil {
						return fmt.Errorf("invalidate domain %s: %w", domain, err)
					}
					fmt.Fprintf(out, "invalidated tenant domain %s\n", domain)
				}
				if userID != "" {
					if err := users.InvalidateUser(ctx, userID); err != nil {
						return fmt.Errorf("invalidate user %s: %w", userID, err)
					}
					fmt.Fprintf(out, "invalidated user %s\n", userID)
				}
				return nil
			}, tenantdir.Module, access.Module, fx.Populate(&tenants, &users))
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "tenant slug")
	cmd.Flags().StringVar(&domain, "domain", "", "tenant custom domain")
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	return cmd
}
