package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"lawnledger/internal/core"
	apphttp "lawnledger/internal/http"
	"lawnledger/internal/storage"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTransactions(w io.Writer, txs []core.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "no transactions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tDESCRIPTION\tCLIENT")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", tx.ID, tx.Date, tx.Kind, tx.Amount, tx.Description, tx.Client)
	}
	tw.Flush()
}

func printTemplates(w io.Writer, tps []core.Template) {
	if len(tps) == 0 {
		fmt.Fprintln(w, "no templates")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tAMOUNT\tDESCRIPTION\tCLIENT")
	for _, tp := range tps {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", tp.Kind, tp.Amount, tp.Description, tp.Client)
	}
	tw.Flush()
}

func printView(w io.Writer, p apphttp.ViewParams, v core.View) {
	fmt.Fprintf(w, "%s (%s)\n", p.Range, p.Filter)
	fmt.Fprintf(w, "income   %10s\n", v.IncomeTotal)
	fmt.Fprintf(w, "expenses %10s\n", v.ExpenseTotal)
	fmt.Fprintf(w, "net      %10s\n\n", v.NetTotal)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DAY\tNET")
	for _, d := range v.PerDay {
		if d.Net.Cents == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", d.Date, d.Net)
	}
	tw.Flush()
}

func printEvents(w io.Writer, events []storage.EventRecord) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "AT\tEVENT\tTRANSACTION\tTYPE\tCENTS\tDAY\tDESCRIPTION")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.OccurredAt.Format("2006-01-02 15:04:05"), e.Type, e.TransactionID, e.Kind, e.AmountCents, e.Day, e.Description)
	}
	tw.Flush()
}
