package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Triaksa-Space/be-admin-console/client"
	"github.com/Triaksa-Space/be-admin-console/console"
	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
	"github.com/Triaksa-Space/be-admin-console/pkg/logger"
	"github.com/spf13/cobra"
)

type bulkOptions struct {
	users  []string
	role   string
	reason string
	force  bool
	yes    bool
	report string
}

func newBulkCmd() *cobra.Command {
	var opts bulkOptions

	ops := make([]string, len(bulk.Operations))
	for i, op := range bulk.Operations {
		ops[i] = string(op)
	}

	cmd := &cobra.Command{
		Use:       "bulk <" + strings.Join(ops, "|") + ">",
		Short:     "Apply one operation to many users",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: ops,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			return runBulk(cmd, api, bulk.Operation(args[0]), opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.users, "users", nil, "User ids, comma separated (required)")
	cmd.Flags().StringVar(&opts.role, "role", "", "Role name or id for assign_role")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Reason recorded for ban or deactivate")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Force delete")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().StringVar(&opts.report, "report", "", "Write the CSV result report to this file (- for stdout)")
	_ = cmd.MarkFlagRequired("users")
	return cmd
}

func runBulk(cmd *cobra.Command, api *client.Client, op bulk.Operation, opts bulkOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	var role user.Role
	if op == bulk.OpAssignRole {
		r, err := resolveRole(cmd, api, opts.role)
		if err != nil {
			return err
		}
		role = r
	}
	action, err := console.ActionFor(op, role)
	if err != nil {
		return err
	}

	targets := make([]console.Target, 0, len(opts.users))
	for _, id := range opts.users {
		if id = strings.TrimSpace(id); id != "" {
			targets = append(targets, console.Target{ID: id})
		}
	}

	ctrl := console.NewBulkController(api, nil, console.LogNotifier{Log: logger.Get()}, logger.Get())
	if err := ctrl.Start(action, targets); err != nil {
		return err
	}

	confirm := ctrl.Snapshot().Confirm
	fmt.Fprintf(out, "%s\n%s\n", confirm.Title, confirm.Message)
	if !opts.yes && !promptYes(cmd.InOrStdin(), out, confirm.ConfirmLabel) {
		ctrl.CloseConfirm()
		fmt.Fprintln(out, "Cancelled")
		return nil
	}

	res, err := ctrl.Confirm(ctx, opts.reason, console.ConfirmOptions{Force: opts.force})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %d succeeded, %d failed, %d skipped\n", op.Title(), res.Success, res.Failed, res.Skipped)
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\t%s\t%s\n", e.UserID, e.Code, e.Error)
	}

	if opts.report != "" {
		w, closeFn, err := createOutput(opts.report, out)
		if err != nil {
			return err
		}
		if err := ctrl.DownloadReport(w); err != nil {
			_ = closeFn()
			return err
		}
		if err := closeFn(); err != nil {
			return err
		}
	}
	ctrl.CloseResult()

	if res.Success == 0 && res.Failed+res.Skipped > 0 {
		return fmt.Errorf("%s failed for every user", op.Title())
	}
	return nil
}

// resolveRole accepts either a role id or a case-insensitive role name.
func resolveRole(cmd *cobra.Command, api *client.Client, ref string) (user.Role, error) {
	if ref == "" {
		return user.Role{}, fmt.Errorf("--role is required for %s", bulk.OpAssignRole)
	}
	roles, err := api.ListRoles(cmd.Context())
	if err != nil {
		return user.Role{}, err
	}
	for _, r := range roles {
		if r.ID == ref || strings.EqualFold(r.Name, ref) {
			return r, nil
		}
	}
	return user.Role{}, fmt.Errorf("unknown role %q", ref)
}

func promptYes(in io.Reader, out io.Writer, label string) bool {
	fmt.Fprintf(out, "%s? [y/N] ", label)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
