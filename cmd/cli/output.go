package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/viper"
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgCyan)
	muted   = color.New(color.FgHiBlack)
)

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, h := range headers {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		bold.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

func printSuccess(w io.Writer, format string, args ...interface{}) {
	success.Fprintf(w, "✓ "+format+"\n", args...)
}
