package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagcore/codec"
	"github.com/TimurManjosov/flagcore/config"
)

var lintCmd = &cobra.Command{
	Use:   "lint <snapshot.json>",
	Short: "Validate a snapshot file",
	Long: `Decode a snapshot file against a schema inferred from its own value tags
and report the first structural problem found.

Examples:
  flagcore lint snapshot.json
  flagcore lint snapshot.json --lenient`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}

		s, err := codec.InferSchema(payload)
		if err != nil {
			return err
		}

		opts := lintOptions()
		opts.OnWarning = func(msg string) {
			if !quiet {
				fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			}
		}
		m, err := codec.Decode(payload, s, opts)
		if err != nil {
			return err
		}

		if !quiet {
			fmt.Printf("ok: namespace %s, %d flag(s), fingerprint %016x\n",
				s.Namespace(), m.Len(), m.Fingerprint())
		}
		return nil
	},
}

var lenient bool

// lintOptions derives decode options from the --lenient flag and the
// environment (FLAGCORE_STRICT_DECODE).
func lintOptions() codec.Options {
	if lenient {
		return codec.Lenient()
	}
	if cfg, err := config.Load(); err == nil && !cfg.StrictDecode {
		return codec.Lenient()
	}
	return codec.Strict()
}

func init() {
	lintCmd.Flags().BoolVar(&lenient, "lenient", false, "Skip unknown flags and fill missing declared flags")
	rootCmd.AddCommand(lintCmd)
}
