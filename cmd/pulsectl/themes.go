package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/pulse/internal/domain/themes"
)

var (
	themesFile     string
	themesStrategy string
)

func init() {
	themesCmd.PersistentFlags().StringVar(&themesFile, "file", "", "YAML theme dictionary (default: built-in)")
	themesClassifyCmd.Flags().StringVar(&themesStrategy, "strategy", "first", "theme pick strategy: first or best")
	themesCmd.AddCommand(themesListCmd, themesClassifyCmd)
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect theme dictionaries",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List themes and their keywords",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dict, err := loadDictionary()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKEYWORDS")
		for _, d := range dict.Definitions() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, strings.Join(d.Keywords, ", "))
		}
		return w.Flush()
	},
}

var themesClassifyCmd = &cobra.Command{
	Use:   "classify <text>...",
	Short: "Score a snippet against every theme",
	Long: `Score a feedback snippet against every theme and show which one it is assigned to.

Examples:
  pulsectl themes classify "Altijd op tijd"
  pulsectl themes classify --strategy best --file themes.yaml "Helpt het team vooruit"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dict, err := loadDictionary()
		if err != nil {
			return err
		}
		strategy, ok := themes.ParseStrategy(themesStrategy)
		if !ok {
			return fmt.Errorf("unknown strategy %q", themesStrategy)
		}
		c := themes.NewClusterer(dict, themes.WithStrategy(strategy))
		text := strings.Join(args, " ")

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "THEME\tSCORE\tDETECTED")
		for _, s := range c.Scores(text) {
			fmt.Fprintf(w, "%s\t%.2f\t%t\n", s.ThemeID, s.Value, s.Detected)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if def, ok := c.Classify(text); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "assigned: %s\n", def.ID)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "assigned: unrecognized")
		}
		return nil
	},
}

func loadDictionary() (*themes.Dictionary, error) {
	if themesFile == "" {
		return themes.Default(), nil
	}
	return themes.LoadFile(themesFile)
}
