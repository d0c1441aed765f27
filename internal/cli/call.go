package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Args string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Run a named operation against a budget",
		Long: `Run one operation by its wire name with JSON arguments, exactly as a
connected client would. Use --budget to open a budget first; operations
such as create-budget and budgets-get work without one.

Example:
  budgetsync call create-budget --args '{"name":"Household"}'
  budgetsync call -b <id> payee-create --args '{"name":"Grocer"}'
  budgetsync call --list`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")
			if list {
				return listOperations(cmd, opts)
			}
			if len(args) == 0 {
				return report(opts.formatter(cmd), NewExitError(ExitCommandError, "operation name is required"))
			}
			return callOperation(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "", "operation arguments as JSON")
	cmd.Flags().Bool("list", false, "list the available operations")

	return cmd
}

func callOperation(cmd *cobra.Command, opts *CallOptions, op string) error {
	var args json.RawMessage
	if opts.Args != "" {
		if !json.Valid([]byte(opts.Args)) {
			return report(opts.formatter(cmd), NewExitError(ExitCommandError, "invalid --args JSON"))
		}
		args = json.RawMessage(opts.Args)
	}

	s, err := openSession(cmd, opts.RootOptions, false)
	if err != nil {
		return report(opts.formatter(cmd), err)
	}
	ctx := commandContext(cmd)
	defer s.close(ctx)

	s.out.VerboseLog("calling %s", op)
	res, err := s.srv.Call(ctx, op, args)
	if err != nil {
		return s.report(err)
	}
	return s.out.Success(res)
}

func listOperations(cmd *cobra.Command, opts *CallOptions) error {
	s, err := openSession(cmd, opts.RootOptions, false)
	if err != nil {
		return report(opts.formatter(cmd), err)
	}
	ctx := commandContext(cmd)
	defer s.close(ctx)
	return s.out.Success(operationList(s.srv.Operations()))
}

type operationList []string

func (l operationList) renderText(w io.Writer) error {
	if len(l) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, strings.Join(l, "\n"))
	return err
}
