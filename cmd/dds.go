package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dds-finder/internal/dds"
	"github.com/sells-group/dds-finder/internal/export"
	"github.com/sells-group/dds-finder/internal/match"
	"github.com/sells-group/dds-finder/internal/model"
	"github.com/sells-group/dds-finder/internal/pdftext"
)

// -- towns --

var townsCmd = &cobra.Command{
	Use:   "towns",
	Short: "List towns with a DDS provider roster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "towns")
		if err != nil {
			return err
		}
		defer env.Close()

		if name, _ := cmd.Flags().GetString("town"); name != "" {
			pdfURL, err := env.DDS.TownPDFURL(ctx, name)
			if err != nil {
				return eris.Wrapf(err, "towns %s", name)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), pdfURL)
			return nil
		}

		towns, err := env.DDS.Towns(ctx)
		if err != nil {
			return eris.Wrap(err, "towns")
		}

		return render(cmd.OutOrStdout(), outputFormat, towns, func(w *tabwriter.Writer) {
			row(w, "TOWN", "PDF")
			for _, t := range towns {
				row(w, t.Name, t.PDFURL)
			}
		})
	},
}

// -- providers --

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the qualified providers on a town's roster",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		town, _ := cmd.Flags().GetString("town")
		refresh, _ := cmd.Flags().GetBool("refresh")

		env, err := initEnv(ctx, "providers")
		if err != nil {
			return err
		}
		defer env.Close()

		if refresh {
			if err := env.DDS.RefreshProviders(ctx, town); err != nil && !errors.Is(err, dds.ErrTownNotFound) {
				return eris.Wrapf(err, "providers %s: refresh", town)
			}
		}

		providers, err := env.DDS.Providers(ctx, town)
		if errors.Is(err, dds.ErrTownNotFound) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No roster found for town %q. Run `dds-finder towns` for the list.\n", town)
			return err
		}
		if err != nil {
			return eris.Wrapf(err, "providers %s", town)
		}
		return renderProviders(cmd, providers)
	},
}

func renderProviders(cmd *cobra.Command, providers []model.Provider) error {
	if len(providers) == 0 && outputFormat == formatTable {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No providers found.")
		return nil
	}
	return render(cmd.OutOrStdout(), outputFormat, providers, func(w *tabwriter.Writer) {
		row(w, "NAME", "TOWN", "PROFILE")
		for _, p := range providers {
			row(w, p.Name, p.Town, p.Link)
		}
	})
}

// -- match --

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match an organization name against a town's providers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		name, _ := cmd.Flags().GetString("name")
		town, _ := cmd.Flags().GetString("town")
		explain, _ := cmd.Flags().GetBool("explain")

		env, err := initEnv(ctx, "match")
		if err != nil {
			return err
		}
		defer env.Close()

		providers, err := env.DDS.Providers(ctx, town)
		if err != nil {
			return eris.Wrapf(err, "match: load providers for %s", town)
		}

		out := cmd.OutOrStdout()
		if explain {
			scores := explainScores(name, providers)
			if err := render(out, outputFormat, scores, func(w *tabwriter.Writer) {
				row(w, "SCORE", "PROVIDER", "NORMALIZED")
				for _, s := range scores {
					row(w, fmt.Sprintf("%.3f", s.Score), s.Provider, s.Normalized)
				}
			}); err != nil {
				return err
			}
		}

		p, ok := match.MatchBest(name, providers, cfg.Match.Threshold)
		if !ok {
			zap.L().Info("no provider match", zap.String("name", name), zap.String("town", town))
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "No provider in %s scored %.2f or higher for %q.\n", town, cfg.Match.Threshold, name)
			return nil
		}
		if explain {
			_, _ = fmt.Fprintln(out)
		}
		m := model.NewProviderMatch(p, town)
		return render(out, outputFormat, m, func(w *tabwriter.Writer) {
			row(w, "MATCH", "TOWN", "PROFILE")
			row(w, m.Name, m.Town, m.URL)
		})
	},
}

// candidateScore is one provider's similarity to the searched name.
type candidateScore struct {
	Provider   string  `json:"provider" yaml:"provider"`
	Normalized string  `json:"normalized" yaml:"normalized"`
	Score      float64 `json:"score" yaml:"score"`
}

// explainScores scores every provider against name, best first.
func explainScores(name string, providers []model.Provider) []candidateScore {
	scores := make([]candidateScore, 0, len(providers))
	for _, p := range providers {
		scores = append(scores, candidateScore{
			Provider:   p.Name,
			Normalized: match.Normalize(p.Name),
			Score:      match.Similarity(name, p.Name),
		})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

// -- parse --

var parseCmd = &cobra.Command{
	Use:   "parse <roster.pdf>",
	Short: "Parse a downloaded town roster PDF without network access",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		town, _ := cmd.Flags().GetString("town")
		if town == "" {
			town = townFromFilename(args[0])
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrap(err, "parse: read pdf")
		}

		extractor, err := pdftext.NewExtractor(cfg.PDF)
		if err != nil {
			return eris.Wrap(err, "parse: init extractor")
		}
		// Offline: no fetcher or cache is needed to parse a local file.
		providers, err := dds.NewService(nil, extractor, nil, dds.Options{}).ParseRoster(ctx, data, town)
		if err != nil {
			return err
		}
		zap.L().Info("parsed roster", zap.String("file", args[0]), zap.String("town", town), zap.Int("providers", len(providers)))
		return renderProviders(cmd, providers)
	},
}

// townFromFilename guesses a town from a roster file name such as
// "West_Hartford.pdf".
func townFromFilename(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}

// -- export --

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export providers to an Excel workbook",
	Long:  "Writes one town's providers, or every town's when --town is omitted, to an .xlsx file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		town, _ := cmd.Flags().GetString("town")
		out, _ := cmd.Flags().GetString("out")

		env, err := initEnv(ctx, "export")
		if err != nil {
			return err
		}
		defer env.Close()

		var providers []model.Provider
		if town != "" {
			providers, err = env.DDS.Providers(ctx, town)
		} else {
			providers, err = env.DDS.AllProviders(ctx)
		}
		if err != nil {
			return eris.Wrap(err, "export: load providers")
		}

		if err := export.WriteProvidersXLSX(out, providers); err != nil {
			return err
		}
		zap.L().Info("exported providers", zap.String("path", out), zap.Int("providers", len(providers)))
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d providers to %s\n", len(providers), out)
		return nil
	},
}

func init() {
	townsCmd.Flags().String("town", "", "print only this town's roster PDF URL")

	providersCmd.Flags().String("town", "", "town name (required)")
	providersCmd.Flags().Bool("refresh", false, "drop the cached roster and download it again")
	_ = providersCmd.MarkFlagRequired("town")

	matchCmd.Flags().String("name", "", "organization name to match (required)")
	matchCmd.Flags().String("town", "", "town whose roster to search (required)")
	matchCmd.Flags().Bool("explain", false, "print every provider's score")
	_ = matchCmd.MarkFlagRequired("name")
	_ = matchCmd.MarkFlagRequired("town")

	parseCmd.Flags().String("town", "", "town the roster belongs to (default from file name)")

	exportCmd.Flags().String("town", "", "export a single town (default all towns)")
	exportCmd.Flags().String("out", "dds_providers.xlsx", "output .xlsx path")

	rootCmd.AddCommand(townsCmd, providersCmd, matchCmd, parseCmd, exportCmd)
}
