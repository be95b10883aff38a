package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagcore/engine"
	"github.com/TimurManjosov/flagcore/flags"
	"github.com/TimurManjosov/flagcore/identity"
)

var (
	evalFeature  string
	evalID       string
	evalLocale   string
	evalPlatform string
	evalVersion  string
	evalAxes     []string
)

var evalCmd = &cobra.Command{
	Use:   "eval <snapshot.json>",
	Short: "Evaluate a feature from a snapshot file",
	Long: `Decode a snapshot file and evaluate one feature against a context
assembled from flags, printing the resolved value and the explain trace.

Examples:
  flagcore eval snapshot.json --feature app::darkMode --id user-42
  flagcore eval snapshot.json --feature app::theme --id user-42 --platform IOS --app-version 3.1.0 --axis tier=premium`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalFeature == "" || evalID == "" {
			return fmt.Errorf("--feature and --id are required")
		}
		id, err := flags.ParseFeatureID(evalFeature)
		if err != nil {
			return err
		}

		m, err := decodeFile(args[0])
		if err != nil {
			return err
		}
		def, ok := m.Definition(id)
		if !ok {
			return fmt.Errorf("feature %s not present in snapshot", id)
		}

		ctx, err := buildContext()
		if err != nil {
			return err
		}

		value, decision := engine.Evaluate(&def, ctx, engine.ModeExplain)
		if quiet {
			fmt.Println(renderValue(value.Any()))
			return nil
		}
		fmt.Printf("value:        %s\n", renderValue(value.Any()))
		fmt.Printf("reason:       %s\n", decision.Reason)
		if decision.MatchedRule >= 0 {
			fmt.Printf("matched rule: %d\n", decision.MatchedRule)
		}
		if decision.SkippedRule >= 0 {
			fmt.Printf("skipped rule: %d (ramp-up)\n", decision.SkippedRule)
		}
		if decision.Bucket >= 0 {
			fmt.Printf("bucket:       %d\n", decision.Bucket)
		}
		fmt.Printf("duration:     %s\n", decision.Duration)
		return nil
	},
}

func buildContext() (*engine.Context, error) {
	sid, err := identity.Parse(evalID)
	if err != nil {
		sid = identity.FromString(evalID)
	}
	ctx := engine.NewContext(sid)
	if evalLocale != "" {
		ctx.WithLocale(evalLocale)
	}
	if evalPlatform != "" {
		ctx.WithPlatform(evalPlatform)
	}
	if evalVersion != "" {
		if _, err := ctx.WithVersionString(evalVersion); err != nil {
			return nil, err
		}
	}
	for _, pair := range evalAxes {
		axis, value, ok := strings.Cut(pair, "=")
		if !ok || axis == "" {
			return nil, fmt.Errorf("invalid --axis %q (expected axis=value)", pair)
		}
		ctx.WithAxis(axis, value)
	}
	return ctx, nil
}

func renderValue(v any) string {
	switch v.(type) {
	case map[string]any:
		out, err := json.Marshal(v)
		if err == nil {
			return string(out)
		}
	}
	return fmt.Sprintf("%v", v)
}

func init() {
	evalCmd.Flags().StringVar(&evalFeature, "feature", "", "Canonical feature id (namespace::key)")
	evalCmd.Flags().StringVar(&evalID, "id", "", "User identifier")
	evalCmd.Flags().StringVar(&evalLocale, "locale", "", "Context locale")
	evalCmd.Flags().StringVar(&evalPlatform, "platform", "", "Context platform")
	evalCmd.Flags().StringVar(&evalVersion, "app-version", "", "Context semantic version (major.minor.patch)")
	evalCmd.Flags().StringArrayVar(&evalAxes, "axis", nil, "Custom axis value (axis=value, repeatable)")
	rootCmd.AddCommand(evalCmd)
}
