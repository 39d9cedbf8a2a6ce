package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/breeze-rmm/screendup/internal/logging"
	"github.com/breeze-rmm/screendup/pkg/duplication"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var flagFormat string

var outputsCmd = &cobra.Command{
	Use:   "outputs",
	Short: "List desktop outputs and the capture source index that selects each",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(cmd); err != nil {
			return err
		}
		defer closeLog()

		driver, win, err := duplication.PlatformDriver()
		if err != nil {
			return err
		}
		infos, err := duplication.ListOutputs(driver, win, logging.L("duplication"))
		if err != nil {
			return fmt.Errorf("list outputs: %w", err)
		}
		return writeOutputs(cmd.OutOrStdout(), flagFormat, infos)
	},
}

func init() {
	outputsCmd.Flags().StringVarP(&flagFormat, "format", "f", "text", "output format (text, json, yaml)")
}

func writeOutputs(w io.Writer, format string, infos []duplication.OutputInfo) error {
	if infos == nil {
		infos = []duplication.OutputInfo{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tADAPTER\tOUTPUT\tNAME\tPOSITION\tSIZE\tROTATION\tPRIMARY")
		for _, o := range infos {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d,%d\t%dx%d\t%s\t%t\n",
				o.SourceIndex, o.Adapter, o.Output, o.Name, o.Left, o.Top, o.Width, o.Height, o.Rotation, o.Primary)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (use text, json, yaml)", format)
	}
}
