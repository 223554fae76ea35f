package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sdvmigrate/internal/config"
	"github.com/JonMunkholm/sdvmigrate/internal/migration"
	"github.com/JonMunkholm/sdvmigrate/internal/web"
)

func newDiscoverCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Summarize the dump and write discovery_report.txt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := migration.Load(cmd.Context(), loadOptions(cfg))
			if err != nil {
				return err
			}

			if _, err := run.Discovery.WriteTo(cmd.OutOrStdout()); err != nil {
				return err
			}
			path, err := run.WriteDiscovery(cfg.Export.OutputDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nDiscovery report: %s\n", path)
			return nil
		},
	}
}

func newValidateCmd(cfg *config.Config) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check record references and write validation_log.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := migration.Load(cmd.Context(), loadOptions(cfg))
			if err != nil {
				return err
			}

			path, err := run.WriteValidation(cfg.Export.OutputDir)
			if err != nil {
				return err
			}

			rep := run.ValidationReport()
			fmt.Fprintf(cmd.OutOrStdout(), "Students: %d  Receipts: %d  Bills: %d  Discounts: %d\n",
				rep.Counts.Students, rep.Counts.Receipts, rep.Counts.Bills, rep.Counts.Discounts)
			fmt.Fprintf(cmd.OutOrStdout(), "Errors: %d  Warnings: %d  Orphan receipts: %d\n",
				rep.Counts.Errors, rep.Counts.Warnings, rep.Counts.Orphans)
			fmt.Fprintf(cmd.OutOrStdout(), "Validation log: %s\n", path)

			if strict && rep.Counts.Errors > 0 {
				return errValidationFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any record fails validation")
	return cmd
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write import workbooks, one per session plus a consolidated one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := migration.Load(cmd.Context(), loadOptions(cfg))
			if err != nil {
				return err
			}

			if _, err := run.WriteValidation(cfg.Export.OutputDir); err != nil {
				return err
			}

			files, err := run.Export(cmd.Context(), exportOptions(cfg), session)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", f)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Export only this session, e.g. 2024-2025")
	cmd.Flags().StringVar(&cfg.Export.Template, "template", cfg.Export.Template, "Template workbook whose sheets and headers are reused")
	return cmd
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the dump once and serve its reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			run, err := migration.Load(ctx, loadOptions(cfg))
			if err != nil {
				return err
			}

			server := web.NewServer(run, exportOptions(cfg), cfg.Server)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			<-errCh
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Export.Template, "template", cfg.Export.Template, "Template workbook used by POST /api/export")
	cmd.Flags().IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "Port to listen on")
	return cmd
}
