package cmd

import (
	"fmt"

	"github.com/oneconcern/rackham/pkg/dlogger"
	"github.com/oneconcern/rackham/pkg/resources"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flagsT struct {
	root struct {
		logLevel  string
		logFormat string
	}
	adjust struct {
		file       string
		partition  string
		constraint string
		cpus       string
		mem        string
		only       bool
	}
	output struct {
		format   string
		template string
	}
}

var rackhamFlags = flagsT{}

const (
	logLevelFlag  = "loglevel"
	logFormatFlag = "logformat"
)

func addLogLevelFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().StringVar(&rackhamFlags.root.logLevel, logLevelFlag, dlogger.LogLevelInfo,
		`The logging level. Levels by increasing order of verbosity: none, error, warn, info, debug.`)
	return logLevelFlag
}

func addLogFormatFlag(cmd *cobra.Command) string {
	cmd.PersistentFlags().StringVar(&rackhamFlags.root.logFormat, logFormatFlag, dlogger.EncodingConsole,
		`The format of log lines on stderr: "console" or "json".`)
	return logFormatFlag
}

func addFileFlag(cmd *cobra.Command) string {
	file := "file"
	cmd.Flags().StringVarP(&rackhamFlags.adjust.file, file, "f", "",
		`A YAML or JSON file with the requested resources. Use "-" to read from stdin. `+
			`When not specified, only the resource flags are used.`)
	return file
}

func addFormatFlag(cmd *cobra.Command, formats ...string) string {
	format := "format"
	cmd.Flags().StringVarP(&rackhamFlags.output.format, format, "o", formats[0],
		fmt.Sprintf("Output format, one of %q", formats))
	return format
}

func addTemplateFlag(cmd *cobra.Command) string {
	template := "template"
	cmd.Flags().StringVar(&rackhamFlags.output.template, template, "",
		"Go template applied to each line of the table output")
	return template
}

func addResourcesOnlyFlag(cmd *cobra.Command) string {
	only := "resources-only"
	cmd.Flags().BoolVar(&rackhamFlags.adjust.only, only, false,
		"Print only the adjusted resource keys in the yaml and json outputs, dropping the other keys of the input")
	return only
}

// resource flags override the keys of the input, so they are named after these keys
func addResourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&rackhamFlags.adjust.partition, resources.KeyPartition, "",
		`The requested partition (defaults to "core")`)
	cmd.Flags().StringVar(&rackhamFlags.adjust.constraint, resources.KeyConstraint, "",
		"The requested node constraint")
	cmd.Flags().StringVar(&rackhamFlags.adjust.cpus, resources.KeyCPUs, "",
		"The requested number of CPUs (defaults to 1)")
	cmd.Flags().StringVar(&rackhamFlags.adjust.mem, resources.KeyMem, "",
		`The requested memory, in MB or with a unit such as "200G" (defaults to 6400MB per CPU)`)
}

// resourceOverrides returns the resource flags explicitly set on the command line
func resourceOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{}, 4)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		switch f.Name {
		case resources.KeyPartition, resources.KeyConstraint, resources.KeyCPUs, resources.KeyMem:
			overrides[f.Name] = f.Value.String()
		}
	})
	return overrides
}
