package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shundroid/three-blockly/locale"
)

var localesCmd = &cobra.Command{
	Use:   "locales",
	Short: "List interface languages",
	Long: `List the languages of the language menu, sorted by display name.

The configured --locale is marked with "*". With --query the selection is
taken from a page query string such as "?lang=de" instead.`,
	Args: cobra.NoArgs,
	RunE: runLocales,
}

func init() {
	localesCmd.Flags().String("query", "", "Page query string to resolve the language from")
	localesCmd.Flags().Bool("json", false, "Print the menu as JSON")
	rootCmd.AddCommand(localesCmd)
}

func runLocales(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	asJSON, _ := cmd.Flags().GetBool("json")

	selected := resolveLocale(cfg.Locale)
	if query != "" {
		selected = locale.Resolve(query, locale.Names, selected)
	}

	menu := locale.Menu(locale.Names, selected)
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(menu)
	}

	for _, opt := range menu {
		mark := " "
		if opt.Selected {
			mark = "*"
		}
		dir := ""
		if locale.IsRightToLeft(opt.Code, locale.RightToLeft) {
			dir = " (rtl)"
		}
		fmt.Fprintf(out, "%s %-6s %s%s\n", mark, opt.Code, opt.Name, dir)
	}
	return nil
}
