package cli

import (
	"fmt"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/kolah/probekit/internal/config"
	"github.com/kolah/probekit/internal/extractor"
	"github.com/kolah/probekit/internal/generr"
	"github.com/kolah/probekit/internal/loader"
	"github.com/kolah/probekit/internal/model"
	"github.com/kolah/probekit/internal/resolver"
	"github.com/kolah/probekit/internal/synth"
	"github.com/kolah/probekit/internal/templates"
	embeddedtmpl "github.com/kolah/probekit/templates"
)

// extractSpec runs the load-resolve-extract pipeline for one document.
func extractSpec(cmd *cobra.Command, source string, report *generr.Report) (*model.Spec, *loader.Result, error) {
	res, err := loader.Load(cmd.Context(), source)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range res.Warnings {
		cmd.PrintErrf("warning: %s\n", w)
	}

	r := resolver.New(res.Document, report)
	spec, err := extractor.Extract(res, r, report)
	if err != nil {
		return nil, nil, err
	}
	return spec, res, nil
}

func newBuilder(cfg *config.Config, report *generr.Report) (*synth.Builder, error) {
	engine, err := templates.NewEngine(embeddedtmpl.FS, cfg.Templates.Dir, template.FuncMap{})
	if err != nil {
		return nil, fmt.Errorf("creating template engine: %w", err)
	}
	return synth.NewBuilder(engine, report), nil
}

// finishReport prints the aggregate report and decides the exit status.
func finishReport(cmd *cobra.Command, report *generr.Report) error {
	if !report.Empty() {
		cmd.PrintErr(report.String())
	}
	if report.HasErrors() {
		return fmt.Errorf("completed with %d error(s)", len(report.Errors()))
	}
	return nil
}
