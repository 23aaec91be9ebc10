package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"pistachio-backend/internal/domain"
	"pistachio-backend/internal/utils"
	"pistachio-backend/pkg/client"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Exchange credentials for an access token",
		Example: `  export PISTACHIO_TOKEN=$(ledgerctl login --username admin --password secret)`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.Login(cmd.Context(), username, password)
			if err != nil {
				return a.fail("login", err)
			}
			a.log.Info().Time("expires_at", res.ExpiresAt).Msg("Logged in")
			fmt.Fprintln(cmd.OutOrStdout(), res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "User name")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newAccountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "account <customerID>",
		Short: "Show a customer's running account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			acc, err := a.client.CustomerAccount(cmd.Context(), id)
			if err != nil {
				return a.fail("account", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Customer\t%s (#%d)\n", acc.CustomerName, acc.CustomerID)
			fmt.Fprintf(w, "Opening balance\t%s\n", acc.OpeningBalance.StringFixed(2))
			fmt.Fprintf(w, "Orders\t%s\n", acc.TotalOrderAmount.StringFixed(2))
			fmt.Fprintf(w, "Payments\t%s\n", acc.TotalPaymentAmount.StringFixed(2))
			fmt.Fprintf(w, "Balance\t%s\n", acc.CurrentBalance.StringFixed(2))
			if !acc.BalanceVerified {
				fmt.Fprintf(w, "Warning\tbalance did not match the stored totals\n")
			}
			return w.Flush()
		},
	}
}

// paymentFlags binds the optional flags shared by every money movement.
func paymentFlags(cmd *cobra.Command, p *client.Payment) {
	cmd.Flags().StringVar(&p.Description, "description", "", "Description stored on the ledger row")
	cmd.Flags().StringVar(&p.Date, "date", "", "Transaction date, yyyy-mm-dd (default today)")
	cmd.Flags().StringVar(&p.IdempotencyKey, "key", "", "Idempotency key; reuse it to retry safely (default random)")
}

func newOpeningCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "opening",
		Short: "Manage a customer's opening balance",
	}

	movement := func(use, short, op string, run func(cmd *cobra.Command, id int64, p client.Payment) error) *cobra.Command {
		var p client.Payment
		sub := &cobra.Command{
			Use:   use + " <customerID> <amount>",
			Short: short,
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if p.Amount, err = parseAmount(args[1]); err != nil {
					return err
				}
				if err := run(cmd, id, p); err != nil {
					return a.fail(op, err)
				}
				return nil
			},
		}
		paymentFlags(sub, &p)
		return sub
	}

	cmd.AddCommand(
		movement("add", "Add carried-over debt", "opening add", func(cmd *cobra.Command, id int64, p client.Payment) error {
			tx, err := a.client.AddOpeningBalance(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded opening debt #%d of %s\n", tx.ID, tx.Amount.StringFixed(2))
			return nil
		}),
		movement("pay", "Pay against the opening balance", "opening pay", func(cmd *cobra.Command, id int64, p client.Payment) error {
			tx, err := a.client.PayOpeningBalance(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			detail, err := a.client.OpeningBalance(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded payment #%d of %s, remaining %s\n",
				tx.ID, tx.Amount.StringFixed(2), detail.RemainingAmount.StringFixed(2))
			return nil
		}),
	)
	return cmd
}

func newOrderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Pay or ship orders",
	}

	var p client.Payment
	pay := &cobra.Command{
		Use:   "pay <orderID> <amount>",
		Short: "Record a (partial) payment for an order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if p.Amount, err = parseAmount(args[1]); err != nil {
				return err
			}
			res, err := a.client.PayOrder(cmd.Context(), id, p)
			if err != nil {
				return a.fail("order pay", err)
			}
			a.log.Info().Str("idempotency_key", res.Transaction.IdempotencyKey).Bool("replayed", res.Replayed).Msg("Order payment sent")
			status := "open"
			if res.Order.IsPayment {
				status = "settled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order #%d paid %s of %s, remaining %s (%s)\n",
				res.Order.ID, res.Order.PaidAmount.StringFixed(2), res.Order.TotalOrderAmount.StringFixed(2),
				res.Order.RemainingAmount.StringFixed(2), status)
			return nil
		},
	}
	paymentFlags(pay, &p)

	var date string
	ship := &cobra.Command{
		Use:   "ship <orderID>",
		Short: "Mark an order as shipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var at time.Time
			if date != "" {
				if at, err = utils.ParseDate(date); err != nil {
					return err
				}
			}
			order, err := a.client.ShipOrder(cmd.Context(), id, at)
			if err != nil {
				return a.fail("order ship", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Order #%d shipped on %s\n", order.ID, order.ShippedDate.Format(utils.DateLayout))
			return nil
		},
	}
	ship.Flags().StringVar(&date, "date", "", "Shipping date, yyyy-mm-dd (default now)")

	cmd.AddCommand(pay, ship)
	return cmd
}

func newUrgentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "urgent",
		Short: "List shipped unpaid orders by how soon they fall due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ranked, err := a.client.UrgentOrders(cmd.Context())
			if err != nil {
				return a.fail("urgent", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ORDER\tCUSTOMER\tPRODUCT\tDUE\tDAYS\tREMAINING")
			for _, u := range ranked {
				days := strconv.Itoa(u.DiffDays)
				if u.Overdue {
					days += " (overdue)"
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", u.OrderID, u.CustomerID, u.ProductName,
					u.MaturityDate.Format(utils.DateLayout), days, u.RemainingAmount.StringFixed(2))
			}
			return w.Flush()
		},
	}
}

// findTransaction looks a ledger row up among its customer's rows.
func findTransaction(cmd *cobra.Command, a *app, customerArg, txArg string) (*domain.FinancialTransaction, error) {
	customerID, err := parseID(customerArg)
	if err != nil {
		return nil, err
	}
	txID, err := parseID(txArg)
	if err != nil {
		return nil, err
	}
	rows, err := a.client.Transactions(cmd.Context(), customerID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		if rows[i].ID == txID {
			return &rows[i], nil
		}
	}
	return nil, fmt.Errorf("transaction #%d not found for customer #%d", txID, customerID)
}

func newTxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Correct or remove ledger rows",
	}

	var (
		amount, description, date string
		orderID                   int64
		isDebt                    bool
	)
	edit := &cobra.Command{
		Use:     "edit <customerID> <transactionID>",
		Short:   "Overwrite a ledger row; unset flags keep the current value",
		Example: `  ledgerctl tx edit 4 17 --amount 1500 --description "corrected"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := findTransaction(cmd, a, args[0], args[1])
			if err != nil {
				return a.fail("tx edit", err)
			}
			upd := domain.TransactionUpdate{
				CustomerID:  current.CustomerID,
				OrderID:     current.OrderID,
				Date:        current.Date,
				Amount:      current.Amount,
				Description: current.Description,
				IsDebt:      current.IsDebt,
			}
			flags := cmd.Flags()
			if flags.Changed("amount") {
				if upd.Amount, err = parseAmount(amount); err != nil {
					return err
				}
			}
			if flags.Changed("description") {
				upd.Description = description
			}
			if flags.Changed("date") {
				if upd.Date, err = utils.ParseDate(date); err != nil {
					return err
				}
			}
			if flags.Changed("order") {
				upd.OrderID = nil
				if orderID > 0 {
					upd.OrderID = &orderID
				}
			}
			if flags.Changed("debt") {
				upd.IsDebt = isDebt
			}

			updated, err := a.client.UpdateTransaction(cmd.Context(), *current, upd)
			if err != nil {
				return a.fail("tx edit", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s #%d: %s on %s\n", updated.Type, updated.ID,
				updated.Amount.StringFixed(2), updated.Date.Format(utils.DateLayout))
			return nil
		},
	}
	edit.Flags().StringVar(&amount, "amount", "", "New amount")
	edit.Flags().StringVar(&description, "description", "", "New description")
	edit.Flags().StringVar(&date, "date", "", "New date, yyyy-mm-dd")
	edit.Flags().Int64Var(&orderID, "order", 0, "Link to this order; 0 unlinks")
	edit.Flags().BoolVar(&isDebt, "debt", false, "Whether the row is debt")

	del := &cobra.Command{
		Use:   "delete <customerID> <transactionID>",
		Short: "Remove a ledger row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := findTransaction(cmd, a, args[0], args[1])
			if err != nil {
				return a.fail("tx delete", err)
			}
			if err := a.client.DeleteTransaction(cmd.Context(), *current); err != nil {
				return a.fail("tx delete", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s #%d of %s\n", current.Type, current.ID, current.Amount.StringFixed(2))
			return nil
		},
	}

	cmd.AddCommand(edit, del)
	return cmd
}
