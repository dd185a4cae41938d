package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/oneconcern/rackham/pkg/resources"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	formatYAML   = "yaml"
	formatJSON   = "json"
	formatFlags  = "flags"
	formatScript = "script"
	formatTable  = "table"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Adjust job resources to the cluster partitions",
	Long: `Reads the resources requested by a job, as a YAML or JSON map with the keys
partition, constraint, cpus-per-task and mem, and prints them adjusted to the cluster.

Resource flags override the keys read from the input. Keys other than resources are
passed through unchanged in the yaml and json outputs, unless --resources-only is set.

The adjusted mem is always 0, which tells the scheduler to allocate all the memory
that comes with the granted CPUs or node.
`,
	Example: `# a job asking for 100GB on 2 CPUs
rackham adjust --mem 100000 --cpus-per-task 2

# as sbatch directives, from a snakemake cluster config
rackham adjust -f resources.yaml -o script

# from a pipe, as sbatch options
echo '{"mem": "200G"}' | rackham adjust -f - -o flags`,
	Run: func(cmd *cobra.Command, args []string) {
		input, err := readResources(cmd)
		if err != nil {
			wrapFatalln("read resources", err)
			return
		}
		for key, value := range resourceOverrides(cmd) {
			input[key] = value
		}

		opts, err := config.adjustOpts()
		if err != nil {
			wrapFatalln("initialize", err)
			return
		}
		req, err := resources.ParseRequest(input)
		if err != nil {
			wrapFatalln("parse resources", err)
			return
		}
		resp, err := resources.Adjust(req, opts...)
		if err != nil {
			wrapFatalln("adjust resources", err)
			return
		}

		adjusted := resp.Map()
		if !rackhamFlags.adjust.only {
			adjusted = resp.Apply(input)
		}
		if err = writeResources(cmd.OutOrStdout(), rackhamFlags.output.format, resp, adjusted); err != nil {
			wrapFatalln("write resources", err)
			return
		}
	},
}

func init() {
	addFileFlag(adjustCmd)
	addResourceFlags(adjustCmd)
	addResourcesOnlyFlag(adjustCmd)
	addFormatFlag(adjustCmd, formatYAML, formatJSON, formatFlags, formatScript)

	rootCmd.AddCommand(adjustCmd)
}

func readResources(cmd *cobra.Command) (map[string]interface{}, error) {
	var (
		buf []byte
		err error
	)
	switch rackhamFlags.adjust.file {
	case "":
		return make(map[string]interface{}), nil
	case "-":
		buf, err = ioutil.ReadAll(cmd.InOrStdin())
	default:
		buf, err = afero.ReadFile(appFs, rackhamFlags.adjust.file)
	}
	if err != nil {
		return nil, err
	}

	// JSON documents are valid YAML. Decoding through JSON keeps nested maps keyed by strings.
	var input map[string]interface{}
	if err = yaml.Unmarshal(buf, &input); err != nil {
		return nil, fmt.Errorf("deserialize resources: %w", err)
	}
	if input == nil {
		input = make(map[string]interface{})
	}
	return input, nil
}

func writeResources(w io.Writer, format string, resp resources.Response, adjusted map[string]interface{}) error {
	switch format {
	case formatYAML:
		buf, err := yaml.Marshal(adjusted)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(adjusted)
	case formatFlags:
		_, err := fmt.Fprintln(w, strings.Join(resp.Flags(), " "))
		return err
	case formatScript:
		_, err := io.WriteString(w, resp.Script())
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
