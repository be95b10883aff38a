package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format for CLI commands.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// FlagRow is the flat per-flag view the inspect command renders.
type FlagRow struct {
	Key         string  `json:"key" yaml:"key"`
	Type        string  `json:"type" yaml:"type"`
	Default     string  `json:"default" yaml:"default"`
	Salt        string  `json:"salt" yaml:"salt"`
	Active      bool    `json:"active" yaml:"active"`
	Rules       int     `json:"rules" yaml:"rules"`
	TopSpec     int     `json:"topSpecificity" yaml:"topSpecificity"`
	MaxRampUp   float64 `json:"maxRampUp" yaml:"maxRampUp"`
	Allowlisted int     `json:"allowlisted" yaml:"allowlisted"`
}

// PrintFlagRows outputs flag rows in the requested format.
func PrintFlagRows(rows []FlagRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]FlagRow{"flags": rows})
	case FormatYAML:
		return printYAML(map[string][]FlagRow{"flags": rows})
	case FormatTable:
		return printTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printTable(rows []FlagRow) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Default", "Salt", "Active", "Rules", "Top Spec", "Max Ramp-Up", "Allowlisted"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, r := range rows {
		table.Append([]string{
			r.Key,
			r.Type,
			r.Default,
			r.Salt,
			fmt.Sprintf("%t", r.Active),
			fmt.Sprintf("%d", r.Rules),
			fmt.Sprintf("%d", r.TopSpec),
			fmt.Sprintf("%g%%", r.MaxRampUp),
			fmt.Sprintf("%d", r.Allowlisted),
		})
	}
	table.Render()
	return nil
}
