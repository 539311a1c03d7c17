// cmd/circulationctl/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"libralend/internal/catalog"
	"libralend/internal/clients"
	"libralend/internal/membership"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	server  string
	timeout time.Duration
	out     io.Writer
}

func (c *cli) client() *clients.Client {
	return clients.NewClient(c.server)
}

func (c *cli) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func (c *cli) print(v any) error {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

// run wraps a client call so every command shares timeout and output handling.
func (c *cli) run(call func(ctx context.Context, client *clients.Client) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := c.withTimeout(cmd)
		defer cancel()

		result, err := call(ctx, c.client())
		if err != nil {
			return err
		}
		return c.print(result)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:          "circulationctl",
		Short:        "Operate the libralend circulation service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.server, "server", envOr("LIBRALEND_URL", "http://localhost:8082"), "circulation service base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(
		newItemCmd(c),
		newMemberCmd(c),
		newCheckoutCmd(c),
		newReturnCmd(c),
		newRenewCmd(c),
		newReserveCmd(c),
		newReservationCmd(c),
		newFineCmd(c),
		newOverdueCmd(c),
		newHistoryCmd(c),
		newLoanCmd(c),
	)
	return root
}

func newItemCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "item", Short: "Manage catalog items"}

	var req catalog.AddItemRequest
	add := &cobra.Command{
		Use:   "add BARCODE TITLE",
		Short: "Add an item to the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Barcode, req.Title = args[0], args[1]
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.AddItem(ctx, req)
			})(cmd, args)
		},
	}
	add.Flags().StringVar(&req.Format, "format", "book", "item format")
	add.Flags().StringVar(&req.Rack, "rack", "", "shelf location")
	add.Flags().BoolVar(&req.ReferenceOnly, "reference-only", false, "item may not leave the library")

	get := &cobra.Command{
		Use:   "get BARCODE",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.GetItem(ctx, args[0])
			})(cmd, args)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every item",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, client *clients.Client) (any, error) {
			return client.ListItems(ctx)
		}),
	}

	cmd.AddCommand(add, get, list)
	return cmd
}

func newMemberCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage members"}

	var email string
	register := &cobra.Command{
		Use:   "register ID NAME",
		Short: "Register a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := membership.RegisterRequest{ID: args[0], Name: args[1], Email: email}
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.RegisterMember(ctx, req)
			})(cmd, args)
		},
	}
	register.Flags().StringVar(&email, "email", "", "contact address")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.GetMember(ctx, args[0])
			})(cmd, args)
		},
	}

	status := &cobra.Command{
		Use:   "status ID ACTIVE|BLACKLISTED",
		Short: "Change a member's account status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := membership.AccountStatus(args[1])
			if err := s.Validate(); err != nil {
				return err
			}
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.SetAccountStatus(ctx, args[0], s)
			})(cmd, args)
		},
	}

	var unpaid bool
	fines := &cobra.Command{
		Use:   "fines ID",
		Short: "List a member's fines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.MemberFines(ctx, args[0], unpaid)
			})(cmd, args)
		},
	}
	fines.Flags().BoolVar(&unpaid, "unpaid", false, "only unpaid fines")

	loans := &cobra.Command{
		Use:   "loans ID",
		Short: "List a member's loans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.MemberLoans(ctx, args[0])
			})(cmd, args)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every member",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, client *clients.Client) (any, error) {
			return client.ListMembers(ctx)
		}),
	}

	cmd.AddCommand(register, get, status, fines, loans, list)
	return cmd
}

func newCheckoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout BARCODE MEMBER_ID",
		Short: "Lend an item to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.Checkout(ctx, args[0], args[1])
			})(cmd, args)
		},
	}
}

func newReturnCmd(c *cli) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "return BARCODE",
		Short: "Return an item, assessing any overdue fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var returnedAt *time.Time
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				returnedAt = &t
			}
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.Return(ctx, args[0], returnedAt)
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "return time (RFC3339), defaults to now")
	return cmd
}

func newRenewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "renew BARCODE MEMBER_ID",
		Short: "Extend an open loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.Renew(ctx, args[0], args[1])
			})(cmd, args)
		},
	}
}

func newReserveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "reserve BARCODE MEMBER_ID",
		Short: "Place a hold on an available item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.Reserve(ctx, args[0], args[1])
			})(cmd, args)
		},
	}
}

func newReservationCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "reservation", Short: "Settle reservations"}

	settle := func(use, short string, call func(context.Context, *clients.Client, uuid.UUID) (any, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " RESERVATION_ID",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid reservation id: %w", err)
				}
				return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
					return call(ctx, client, id)
				})(cmd, args)
			},
		}
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every reservation",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, client *clients.Client) (any, error) {
			return client.Reservations(ctx)
		}),
	}

	waiting := &cobra.Command{
		Use:   "for BARCODE",
		Short: "Show the reservation waiting on an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.WaitingReservation(ctx, args[0])
			})(cmd, args)
		},
	}

	cmd.AddCommand(
		list,
		waiting,
		settle("cancel", "Cancel a waiting reservation", func(ctx context.Context, cl *clients.Client, id uuid.UUID) (any, error) {
			return cl.CancelReservation(ctx, id)
		}),
		settle("complete", "Mark a waiting reservation as picked up", func(ctx context.Context, cl *clients.Client, id uuid.UUID) (any, error) {
			return cl.CompleteReservation(ctx, id)
		}),
	)
	return cmd
}

func newFineCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "fine", Short: "Manage fines"}

	pay := &cobra.Command{
		Use:   "pay BARCODE",
		Short: "Pay the oldest unpaid fine on an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.CollectItemFine(ctx, args[0])
			})(cmd, args)
		},
	}

	var unpaid bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List every fine",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, client *clients.Client) (any, error) {
			return client.Fines(ctx, unpaid)
		}),
	}
	list.Flags().BoolVar(&unpaid, "unpaid", false, "only unpaid fines")

	cmd.AddCommand(pay, list, &cobra.Command{
		Use:   "collect FINE_ID",
		Short: "Record payment of a fine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid fine id: %w", err)
			}
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.CollectFine(ctx, id)
			})(cmd, args)
		},
	})
	return cmd
}

func newLoanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{Use: "loan", Short: "Inspect loans"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every loan, open and closed",
		Args:  cobra.NoArgs,
		RunE: c.run(func(ctx context.Context, client *clients.Client) (any, error) {
			return client.Loans(ctx)
		}),
	})
	return cmd
}

func newOverdueCmd(c *cli) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "List overdue loans with their projected fines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if asOf != "" {
				t, err := time.Parse(time.RFC3339, asOf)
				if err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
				at = t
			}
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.OverdueLoans(ctx, at)
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "evaluation time (RFC3339), defaults to now")
	return cmd
}

func newHistoryCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history BARCODE",
		Short: "Show the event history of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context, client *clients.Client) (any, error) {
				return client.History(ctx, args[0])
			})(cmd, args)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
