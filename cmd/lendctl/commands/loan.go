package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	lending "libralend/internal/circulation"
)

func loanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Create, return and inspect loans",
	}
	cmd.AddCommand(loanCreateCmd(), loanReturnCmd(), loanGetCmd(), loanListCmd())
	return cmd
}

func loanCreateCmd() *cobra.Command {
	var start, due string
	cmd := &cobra.Command{
		Use:   "create <member-id> <book-id>",
		Short: "Lend a book to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid book id %q", args[1])
			}
			req := lending.CreateLoanRequest{MemberID: args[0], BookID: bookID}
			if due != "" {
				d, err := lending.ParseDate(due)
				if err != nil {
					return err
				}
				req.ExpectedReturn = &d
			}
			if start != "" {
				d, err := lending.ParseDate(start)
				if err != nil {
					return err
				}
				req.StartDate = &d
			}

			view, err := circulation.CreateLoan(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "expected return date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD, default today)")
	return cmd
}

func loanReturnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Record the return of a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := circulation.ReturnLoan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
}

func loanGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <loan-id>",
		Short: "Show one loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := circulation.GetLoan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
}

func loanListCmd() *cobra.Command {
	var member, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if member != "" && status != "" {
				return fmt.Errorf("--member and --status cannot be combined")
			}

			var (
				views []*lending.LoanView
				err   error
			)
			switch {
			case member != "":
				views, err = circulation.ListMemberLoans(cmd.Context(), member)
			case status != "":
				s, perr := lending.ParseStatus(status)
				if perr != nil {
					return perr
				}
				views, err = circulation.ListLoans(cmd.Context(), s)
			default:
				views, err = circulation.ListLoans(cmd.Context(), "")
			}
			if err != nil {
				return err
			}
			return printJSON(views)
		},
	}
	cmd.Flags().StringVar(&member, "member", "", "only loans of this member")
	cmd.Flags().StringVar(&status, "status", "", "only loans in this status")
	return cmd
}
