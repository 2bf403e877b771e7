package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"lawnledger/internal/core"
	apphttp "lawnledger/internal/http"
	"lawnledger/internal/ledger"
	"lawnledger/internal/services"
	"lawnledger/internal/storage"
	"lawnledger/internal/voice"
)

func newParseCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "parse <sentence...>",
		Short: "Parse a spoken sentence without recording it",
		Example: `  ledger parse made 50 for mowing lawn
  ledger parse "spent 12.50 on gas"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := voice.NewParser().Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t$%s\t%s\n", p.Kind, p.Amount, p.Description)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the proposal as JSON")
	return cmd
}

// formFlags binds the transaction form fields to flags.
func formFlags(cmd *cobra.Command, in *services.FormInput, withDate bool) {
	cmd.Flags().StringVarP(&in.Description, "description", "d", "", "What the money was for")
	cmd.Flags().StringVarP(&in.Amount, "amount", "a", "", "Amount in dollars, e.g. 45 or 12.50")
	cmd.Flags().StringVarP(&in.Kind, "type", "t", "income", "income or expense")
	cmd.Flags().StringVarP(&in.Client, "client", "c", "", "Client name")
	if withDate {
		cmd.Flags().StringVar(&in.Date, "date", "", "Date as YYYY-MM-DD (default today)")
	}
}

func newAddCmd(a *app) *cobra.Command {
	var in services.FormInput
	var sentence string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  ledger add -d "Mow Smith" -a 45 --client Smith
  ledger add -d Gas -a 12.50 -t expense --date 2024-05-03
  ledger add --say "made 50 for mowing lawn"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var tx core.Transaction
			if sentence != "" {
				tx, err = svc.SubmitTranscript(ctx, sentence)
			} else {
				if in.Date == "" {
					in.Date = svc.Ledger().Today().String()
				}
				tx, err = svc.SubmitForm(ctx, in)
			}
			if err != nil {
				return err
			}
			printTransactions(cmd.OutOrStdout(), []core.Transaction{tx})
			return nil
		},
	}
	formFlags(cmd, &in, true)
	cmd.Flags().BoolVar(&in.SaveAsTemplate, "save-template", false, "Also save the entry as a template")
	cmd.Flags().StringVar(&sentence, "say", "", "Record a spoken sentence instead of form fields")
	cmd.MarkFlagsMutuallyExclusive("say", "description")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := svc.Remove(ctx, core.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s $%s)\n", tx.ID, tx.Description, tx.Amount)
			return nil
		},
	}
}

func newViewCmd(a *app) *cobra.Command {
	var start, end, period, date, filter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show totals for a date range",
		Example: `  ledger view
  ledger view --period week --type expense
  ledger view --start 2024-05-01 --end 2024-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			l := svc.Ledger()
			q := url.Values{}
			for k, v := range map[string]string{"start": start, "end": end, "period": period, "date": date, "type": filter} {
				if v != "" {
					q.Set(k, v)
				}
			}
			params, err := apphttp.ParseViewParams(q, l.Today())
			if err != nil {
				return err
			}

			view := l.View(params.Range, params.Filter)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), apphttp.ViewResponse{
					Range:   params.Range,
					Filter:  params.Filter,
					View:    view,
					Events:  ledger.CalendarEvents(view.Filtered),
					Version: l.Version(),
				})
			}
			printView(cmd.OutOrStdout(), params, view)
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&period, "period", "", "day, week or month around --date (default month)")
	cmd.Flags().StringVar(&date, "date", "", "Anchor day for --period (default today)")
	cmd.Flags().StringVarP(&filter, "type", "t", "all", "all, income or expense")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the view as JSON")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List the most recently added transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if limit <= 0 {
				limit = a.cfg.HistoryLimit
			}
			printTransactions(cmd.OutOrStdout(), svc.Ledger().History(limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "How many entries (default HISTORY_LIMIT)")
	return cmd
}

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Manage quick-add templates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()
			printTemplates(cmd.OutOrStdout(), svc.Ledger().Templates())
			return nil
		},
	}

	var addIn services.FormInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Save a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tp, added, err := svc.AddTemplate(ctx, addIn)
			if err != nil {
				return err
			}
			if !added {
				fmt.Fprintln(cmd.OutOrStdout(), "template already exists")
				return nil
			}
			printTemplates(cmd.OutOrStdout(), []core.Template{tp})
			return nil
		},
	}
	formFlags(add, &addIn, false)

	var removeIn services.FormInput
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Delete the template matching description, amount and type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := svc.RemoveTemplate(ctx, removeIn)
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("template %q: %w", removeIn.Description, core.ErrNotFound)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "template removed")
			return nil
		},
	}
	formFlags(remove, &removeIn, false)

	var useIn services.FormInput
	use := &cobra.Command{
		Use:   "use",
		Short: "Record today's transaction from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := a.commandContext(cmd)
			svc, _, cleanup, err := a.openService(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := svc.UseTemplate(ctx, useIn)
			if err != nil {
				return err
			}
			printTransactions(cmd.OutOrStdout(), []core.Transaction{tx})
			return nil
		},
	}
	formFlags(use, &useIn, false)

	cmd.AddCommand(list, add, remove, use)
	return cmd
}

func newEventsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List the audit log written by ledger-worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewSQLiteStore(a.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.ListEvents(a.commandContext(cmd), limit)
			if err != nil {
				return err
			}
			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "How many events, 0 for all")
	return cmd
}
