package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/console"
	"github.com/Triaksa-Space/be-admin-console/domain/importer"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/spf13/cobra"
)

type importOptions struct {
	mappings    []string
	previewOnly bool
	opts        importer.Options
}

func newImportCmd() *cobra.Command {
	o := importOptions{opts: console.DefaultImportOptions}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import users from a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			return runImport(cmd, api, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringArrayVar(&o.mappings, "map", nil, "Column mapping as header=field; repeatable, empty field unmaps")
	f.BoolVar(&o.previewOnly, "preview", false, "Only show the preview, do not import")
	f.BoolVar(&o.opts.ValidateOnly, "validate-only", false, "Validate every row without writing")
	f.BoolVar(&o.opts.SkipDuplicates, "skip-duplicates", o.opts.SkipDuplicates, "Skip rows whose email already exists")
	f.BoolVar(&o.opts.UpdateExisting, "update-existing", false, "Update users whose email already exists")
	f.BoolVar(&o.opts.SkipInvalidRows, "skip-invalid", false, "Import valid rows even if some rows are invalid")
	f.StringVar(&o.opts.DefaultRole, "default-role", "", "Role for rows without one")
	f.StringVar(&o.opts.DefaultStatus, "default-status", o.opts.DefaultStatus, "active or inactive, for rows without is_active")
	f.BoolVar(&o.opts.SendWelcomeEmail, "welcome-email", false, "Send a welcome email to created users")
	f.BoolVar(&o.opts.RequirePasswordReset, "require-password-reset", false, "Force a password change on first login")
	return cmd
}

func runImport(cmd *cobra.Command, api *client.Client, path string, o importOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ctrl := console.NewImportController(api, nil, console.LogNotifier{Log: logger.Get()}, logger.Get())
	preview, err := ctrl.SelectFile(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	for _, m := range o.mappings {
		header, field, ok := strings.Cut(m, "=")
		if !ok {
			return fmt.Errorf("invalid --map %q, want header=field", m)
		}
		if preview, err = ctrl.SetMapping(ctx, strings.TrimSpace(header), strings.TrimSpace(field)); err != nil {
			return err
		}
	}
	printPreview(out, preview)
	if o.previewOnly {
		return nil
	}

	if err := ctrl.SetOptions(o.opts); err != nil {
		return err
	}
	resp, err := ctrl.Commit(ctx)
	if err != nil {
		printIssues(out, "Errors", ctrl.Errors())
		return err
	}

	s := resp.Summary
	fmt.Fprintf(out, "%s\n%d rows: %d created, %d updated, %d skipped, %d invalid\n",
		resp.Message, s.TotalRows, s.Created, s.Updated, s.Skipped, s.InvalidRows)
	printIssues(out, "Errors", resp.Errors)
	printIssues(out, "Warnings", resp.Warnings)
	return nil
}

func printPreview(w io.Writer, p *importer.PreviewResponse) {
	v := p.Validation
	fmt.Fprintf(w, "%d rows, %d shown\n", p.Preview.TotalRows, p.Preview.PreviewRows)
	fmt.Fprintln(w, "Mapping:")
	for _, h := range p.Preview.Headers {
		field := p.Mapping[h]
		if field == "" {
			field = "(ignored)"
		}
		fmt.Fprintf(w, "  %s -> %s\n", h, field)
	}
	estimate := ""
	if v.Estimated {
		estimate = " (estimated)"
	}
	fmt.Fprintf(w, "Valid: %d, invalid: %d%s\n", v.ValidRows, v.InvalidRows, estimate)
	if len(v.MissingFields) > 0 {
		fmt.Fprintf(w, "Missing required fields: %s\n", strings.Join(v.MissingFields, ", "))
	}
	printIssues(w, "Errors", v.Errors)
	printIssues(w, "Warnings", v.Warnings)
}

func printIssues(w io.Writer, title string, issues []importer.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, i := range issues {
		fmt.Fprintf(w, "  row %d", i.Row)
		if i.Field != "" {
			fmt.Fprintf(w, " [%s]", i.Field)
		}
		fmt.Fprintf(w, ": %s\n", i.Message)
	}
}
