package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	units "github.com/docker/go-units"
	"github.com/oneconcern/rackham/pkg/resources"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the cluster policy",
	Long: `Prints the policy used to adjust resources: memory per CPU on the core partition,
caps, and the node tiers with their constraints.

The policy defaults to Rackham's and may be overridden in the configuration file.
`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := writePolicy(cmd.OutOrStdout(), rackhamFlags.output.format, config.Policy); err != nil {
			wrapFatalln("write policy", err)
			return
		}
	},
}

func init() {
	addFormatFlag(policyCmd, formatYAML, formatJSON, formatTable)
	addTemplateFlag(policyCmd)

	rootCmd.AddCommand(policyCmd)
}

// policyLine is one line of the table output
type policyLine struct {
	Partition   string
	Constraint  string
	MaxMem      int
	HumanMaxMem string
	Grant       string
}

const policyLineTemplateString = `{{.Partition}}, {{.Constraint}}, up to {{.MaxMem}}MB ({{.HumanMaxMem}}), grants {{.Grant}}`

func policyLineTemplate() (*template.Template, error) {
	if rackhamFlags.output.template != "" {
		return template.New("policy line").Parse(rackhamFlags.output.template)
	}
	return template.Must(template.New("policy line").Parse(policyLineTemplateString)), nil
}

func humanMem(mb int) string {
	return units.HumanSize(float64(mb) * units.MB)
}

func policyLines(p resources.Policy) []policyLine {
	lines := make([]policyLine, 0, len(p.Tiers)+1)
	lines = append(lines, policyLine{
		Partition:   p.Core.Partition,
		Constraint:  "-",
		MaxMem:      p.Core.MaxMem,
		HumanMaxMem: humanMem(p.Core.MaxMem),
		Grant:       fmt.Sprintf("%dMB per CPU", p.MemPerCPU),
	})
	for _, t := range p.Tiers {
		constraint := t.Constraint
		if constraint == "" {
			constraint = "-"
		}
		lines = append(lines, policyLine{
			Partition:   t.Partition,
			Constraint:  constraint,
			MaxMem:      t.MaxMem,
			HumanMaxMem: humanMem(t.MaxMem),
			Grant:       fmt.Sprintf("%dMB (%s)", t.Mem, humanMem(t.Mem)),
		})
	}
	return lines
}

func writePolicy(w io.Writer, format string, p resources.Policy) error {
	switch format {
	case formatYAML:
		buf, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case formatTable:
		tpl, err := policyLineTemplate()
		if err != nil {
			return fmt.Errorf("invalid template: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s: at most %d CPUs and %dMB (%s) per job\n",
			p.Cluster, p.MaxCPUs, p.MaxMem, humanMem(p.MaxMem))
		if err != nil {
			return err
		}
		for _, line := range policyLines(p) {
			if err = tpl.Execute(w, line); err != nil {
				return err
			}
			if _, err = io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
