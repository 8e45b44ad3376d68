package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Exmortem/roman-numerals/internal/app"
	"github.com/Exmortem/roman-numerals/internal/common/config"
	"github.com/Exmortem/roman-numerals/internal/common/logger"
	"github.com/Exmortem/roman-numerals/internal/models"
	"github.com/Exmortem/roman-numerals/internal/romannumeral"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type convertOptions struct {
	min     string
	max     string
	output  string
	verbose bool
}

func newConvertCmd(configPath *string) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [number]",
		Short: "Convert a number or a range locally",
		Example: `  roman-numeral-api convert 1990
  roman-numeral-api convert --min 1 --max 5 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			values := url.Values{}
			if len(args) == 1 {
				values.Set(romannumeral.FieldQuery, args[0])
			}
			if cmd.Flags().Changed("min") {
				values.Set(romannumeral.FieldMin, opts.min)
			}
			if cmd.Flags().Changed("max") {
				values.Set(romannumeral.FieldMax, opts.max)
			}
			var log logger.Logger
			if opts.verbose {
				log = logger.NewStructured("debug", "console", "stderr")
			}
			return runConvert(cmd, cfg, log, values, opts.output)
		},
	}
	cmd.Flags().StringVar(&opts.min, "min", "", "lower bound of a range")
	cmd.Flags().StringVar(&opts.max, "max", "", "upper bound of a range")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log cache and conversion steps to stderr")
	return cmd
}

func runConvert(cmd *cobra.Command, cfg *config.Config, log logger.Logger, values url.Values, output string) error {
	switch output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	req, result := romannumeral.ParseRequest(values)
	if err := romannumeral.ValidationError(result); err != nil {
		return err
	}

	// Local conversions never need the shared cache.
	local := *cfg
	local.Cache.Driver = config.CacheDriverMemory

	a, err := app.New(cmd.Context(), &local, log, app.WithoutServer())
	if err != nil {
		return err
	}
	defer a.Close(cmd.Context())

	resp, err := a.Service.GetRomanNumeral(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeResponse(cmd.OutOrStdout(), resp, output)
}

func writeResponse(w io.Writer, resp models.Response, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return enc.Close()
	}

	var b strings.Builder
	switch r := resp.(type) {
	case models.Conversion:
		fmt.Fprintf(&b, "%s\t%s\n", r.Input, r.Output)
	case models.Conversions:
		for _, c := range r.Conversions {
			fmt.Fprintf(&b, "%s\t%s\n", c.Input, c.Output)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
