package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kolah/probekit/internal/config"
	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/golang"
	"github.com/kolah/probekit/internal/synth"
)

func GenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new API test client from an OpenAPI document",
		RunE:  runGenerate,
	}

	config.BindCommonFlags(cmd)
	cmd.Flags().Bool("overwrite", false, "Replace an existing client directory")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	if cfg.Spec == "" {
		return fmt.Errorf("spec location is required")
	}

	dir := filepath.Join(cfg.OutputDir, golang.PackageName(cfg.App))
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	if _, err := os.Stat(dir); err == nil && !overwrite {
		return fmt.Errorf("client directory %s already exists; use --overwrite to replace it", dir)
	}

	report := &generr.Report{}
	spec, res, err := extractSpec(cmd, cfg.Spec, report)
	if err != nil {
		return err
	}

	builder, err := newBuilder(cfg, report)
	if err != nil {
		return err
	}
	out, err := builder.Build(spec, res.RawData, synth.Options{
		App:    cfg.App,
		Env:    cfg.Env,
		Source: res.Source,
	})
	if err != nil {
		return err
	}

	if err := synth.WriteFiles(dir, out.Files); err != nil {
		return err
	}
	for _, f := range out.Files {
		cmd.PrintErrf("Written: %s\n", filepath.Join(dir, f.Name))
	}

	return finishReport(cmd, report)
}
