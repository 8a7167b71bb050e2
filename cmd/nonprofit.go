package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/nonprofit"
	"github.com/sells-group/dds-finder/pkg/propublica"
)

// -- search --

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search ProPublica for nonprofits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")
		state, _ := cmd.Flags().GetString("state")
		page, _ := cmd.Flags().GetInt("page")
		if state == "" {
			state = cfg.ProPublica.State
		}

		env, err := initEnv(ctx, "search")
		if err != nil {
			return err
		}
		defer env.Close()

		orgs, err := env.Nonprofits.Search(ctx, query, state, page)
		if err != nil {
			return eris.Wrap(err, "search")
		}
		if len(orgs) == 0 && outputFormat == formatTable {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No organizations found.")
			return nil
		}

		return render(cmd.OutOrStdout(), outputFormat, orgs, func(w *tabwriter.Writer) {
			row(w, "EIN", "NAME", "CITY", "STATE", "NTEE")
			for _, o := range orgs {
				row(w, o.EIN, o.Name, o.City, o.State, o.NTEECode)
			}
		})
	},
}

// -- financials --

var financialsCmd = &cobra.Command{
	Use:   "financials <ein>",
	Short: "Show an organization's financial history from its Form 990 filings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		years, _ := cmd.Flags().GetInt("years")
		if years <= 0 {
			years = cfg.ProPublica.HistoryYears
		}
		years = min(years, cfg.ProPublica.MaxHistoryYears)

		env, err := initEnv(ctx, "financials")
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Nonprofits.Summary(ctx, args[0], years)
		if err != nil {
			return eris.Wrapf(err, "financials %s", args[0])
		}

		return render(cmd.OutOrStdout(), outputFormat, sum, func(w *tabwriter.Writer) {
			summaryTable(w, sum)
		})
	},
}

func summaryTable(w *tabwriter.Writer, sum *nonprofit.Summary) {
	_, _ = fmt.Fprintf(w, "%s (EIN %s) %s, %s\n", sum.Name, sum.EIN, sum.City, sum.State)
	_, _ = fmt.Fprintf(w, "%s\n\n", sum.ProPublicaURL)
	row(w, "YEAR", "REVENUE", "EXPENSES", "NET INCOME", "ASSETS", "NET ASSETS")
	for _, y := range sum.FinancialHistory {
		row(w, y.Year, y.Revenue, y.Expenses, y.NetIncome, y.Assets, y.NetAssets)
	}
}

// -- form990 --

var form990Cmd = &cobra.Command{
	Use:   "form990 <ein>",
	Short: "Download an organization's Form 990 PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		year, _ := cmd.Flags().GetInt("year")
		out, _ := cmd.Flags().GetString("out")

		env, err := initEnv(ctx, "form990")
		if err != nil {
			return err
		}
		defer env.Close()

		data, filing, err := env.Nonprofits.Form990PDF(ctx, args[0], year)
		if err != nil {
			return eris.Wrapf(err, "form990 %s", args[0])
		}
		if out == "" {
			out = fmt.Sprintf("form990_%s_%s.pdf", propublica.NormalizeEIN(args[0]), filing.TaxPeriod)
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return eris.Wrap(err, "form990: write file")
		}

		zap.L().Info("saved form 990", zap.String("ein", args[0]), zap.String("tax_period", filing.TaxPeriod), zap.String("path", out))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

func init() {
	searchCmd.Flags().String("state", "", "two-letter state filter (default from config)")
	searchCmd.Flags().Int("page", 0, "result page")

	financialsCmd.Flags().Int("years", 0, "years of history (default from config)")

	form990Cmd.Flags().Int("year", 0, "tax year (default most recent filing with a PDF)")
	form990Cmd.Flags().String("out", "", "output path (default form990_<ein>_<year>.pdf)")

	rootCmd.AddCommand(searchCmd, financialsCmd, form990Cmd)
}
