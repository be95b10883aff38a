package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagcore/codec"
	"github.com/TimurManjosov/flagcore/internal/cli"
	"github.com/TimurManjosov/flagcore/snapshot"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <snapshot.json>",
	Short: "Summarise the flags in a snapshot file",
	Long: `Decode a snapshot file and print a per-flag summary: value type, default,
salt, active state, rule count, the top rule specificity and the widest
ramp-up.

Examples:
  flagcore inspect snapshot.json
  flagcore inspect snapshot.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := decodeFile(args[0])
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		return cli.PrintFlagRows(summarise(m), cli.OutputFormat(format))
	},
}

func decodeFile(path string) (*snapshot.Materialized, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	s, err := codec.InferSchema(payload)
	if err != nil {
		return nil, err
	}
	return codec.Decode(payload, s, codec.Strict())
}

func summarise(m *snapshot.Materialized) []cli.FlagRow {
	rows := make([]cli.FlagRow, 0, m.Len())
	for _, id := range m.Features() {
		def, _ := m.Definition(id)
		row := cli.FlagRow{
			Key:         id.String(),
			Type:        def.Default.Kind.String(),
			Default:     fmt.Sprintf("%v", def.Default.Any()),
			Salt:        def.Salt,
			Active:      def.Active,
			Rules:       len(def.Rules()),
			Allowlisted: len(def.Allowlist),
		}
		for i, r := range def.Rules() {
			if i == 0 {
				row.TopSpec = r.Specificity()
			}
			if r.RampUp > row.MaxRampUp {
				row.MaxRampUp = r.RampUp
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
