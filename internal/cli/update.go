package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kolah/probekit/internal/config"
	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/golang"
	"github.com/kolah/probekit/internal/reconcile"
)

func UpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a generated client against its OpenAPI document",
		RunE:  runUpdate,
	}

	config.BindCommonFlags(cmd)
	flags := cmd.Flags()
	flags.Bool("dry-run", false, "Show the planned changes without writing")
	flags.StringSlice("tag", nil, "Restrict the update to a tag (repeatable)")
	flags.StringSlice("endpoint", nil, `Restrict the update to an endpoint, e.g. "GET /v1/things" (repeatable)`)
	flags.Bool("add-new-classes", false, "Materialize tags that are new in the document")
	flags.Bool("remove-missing", false, "Delete symbols the document no longer declares")

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	dir := filepath.Join(cfg.OutputDir, golang.PackageName(cfg.App))
	tree, err := reconcile.Scan(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("no generated client for %q under %s; run generate first", cfg.App, cfg.OutputDir)
		}
		return err
	}

	source := cfg.Spec
	if source == "" {
		source = tree.SpecSource()
	}
	if source == "" {
		return fmt.Errorf("no spec location: pass --spec, or regenerate so the client records its source")
	}

	report := &generr.Report{}
	spec, res, err := extractSpec(cmd, source, report)
	if err != nil {
		return err
	}

	builder, err := newBuilder(cfg, report)
	if err != nil {
		return err
	}
	plan, err := reconcile.BuildPlan(tree, spec, res.RawData, builder, reconcile.Options{
		App:    cfg.App,
		Env:    cfg.Env,
		Source: source,
		Scope: reconcile.Scope{
			Tags:      cfg.Update.Tags,
			Endpoints: cfg.Update.Endpoints,
		},
		AddNewTags:    cfg.Update.AddNewClasses,
		RemoveMissing: cfg.Update.RemoveMissing,
	})
	if err != nil {
		return err
	}

	cmd.PrintErr(plan.Summary())

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		diff, err := plan.Diff()
		if err != nil {
			return err
		}
		cmd.Print(diff)
		return finishReport(cmd, report)
	}

	if !plan.Changed() {
		cmd.PrintErrln("No changes needed.")
		return finishReport(cmd, report)
	}
	if err := plan.Apply(); err != nil {
		return err
	}
	for _, f := range plan.Files {
		cmd.PrintErrf("Updated: %s\n", filepath.Join(dir, f.Name))
	}

	return finishReport(cmd, report)
}
