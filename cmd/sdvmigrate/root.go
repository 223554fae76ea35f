package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sdvmigrate/internal/config"
	"github.com/JonMunkholm/sdvmigrate/internal/dump"
	"github.com/JonMunkholm/sdvmigrate/internal/export"
	"github.com/JonMunkholm/sdvmigrate/internal/migration"
)

// errValidationFailed is returned by validate --strict when records were
// rejected.
var errValidationFailed = errors.New("validation reported errors")

// newRootCmd builds the command tree. Flags default to the values in cfg,
// so a flag given on the command line overrides the environment.
func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "sdvmigrate",
		Short:         "Migrate a legacy school database dump into import workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(cfg.Migrate.Input) == "" {
				return fmt.Errorf("%w: no dump given", dump.ErrInputNotFound)
			}
			return cfg.Validate()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&cfg.Migrate.Input, "input", "i", cfg.Migrate.Input, "SQL dump to read (env MIGRATE_INPUT)")
	flags.StringVarP(&cfg.Export.OutputDir, "output", "o", cfg.Export.OutputDir, "Directory for reports and workbooks")
	flags.StringVar(&cfg.Migrate.Encoding, "encoding", cfg.Migrate.Encoding, "Character set of the dump")
	flags.StringVar(&cfg.Migrate.Mappings, "mappings", cfg.Migrate.Mappings, "YAML file overriding fee-type and column mappings")

	root.AddCommand(
		newDiscoverCmd(cfg),
		newValidateCmd(cfg),
		newExportCmd(cfg),
		newServeCmd(cfg),
	)
	return root
}

func loadOptions(cfg *config.Config) migration.Options {
	return migration.Options{
		Input:        cfg.Migrate.Input,
		Encoding:     cfg.Migrate.Encoding,
		MappingsPath: cfg.Migrate.Mappings,
		DateFallback: cfg.Migrate.DateFallback,
	}
}

func exportOptions(cfg *config.Config) export.Options {
	return export.Options{
		OutputDir:    cfg.Export.OutputDir,
		Template:     cfg.Export.Template,
		Workers:      cfg.Export.Workers,
		Consolidated: cfg.Export.Consolidated,
	}
}
