package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fsbo/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the scoring rule set",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rules and their hash",
	RunE: func(cmd *cobra.Command, _ []string) error {
		r, err := rules.LoadFile(cfg.RulesPath)
		if err != nil {
			return err
		}
		return writeRules(cmd.OutOrStdout(), r, cfg.RulesPath)
	},
}

func init() {
	rulesCmd.AddCommand(rulesShowCmd)
	rootCmd.AddCommand(rulesCmd)
}

func writeRules(out io.Writer, r rules.Rules, source string) error {
	if source == "" {
		source = "built-in defaults"
	}
	_, _ = fmt.Fprintf(out, "# source: %s\n# hash: %s\n", source, r.Hash())
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "rules: encode")
	}
	return enc.Close()
}
