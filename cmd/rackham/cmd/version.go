package cmd

import (
	"bytes"
	"io"

	"github.com/spf13/cobra"
)

// set with -ldflags at build time
var (
	Version   string
	BuildDate string
	GitCommit string
	GitState  string
)

// VersionInfo describes the build of the binary
type VersionInfo struct {
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GitCommit string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GitState  string `json:"gitState,omitempty" yaml:"gitState,omitempty"`
}

// NewVersionInfo collects the build information, falling back to "dev" for unreleased builds
func NewVersionInfo() VersionInfo {
	ver := VersionInfo{
		Version:   "dev",
		BuildDate: BuildDate,
		GitCommit: GitCommit,
	}
	if Version != "" {
		ver.Version = Version
		ver.GitState = "clean"
	}
	if GitState != "" {
		ver.GitState = GitState
	}
	return ver
}

func (v VersionInfo) String() string {
	var buf bytes.Buffer
	for _, line := range [][2]string{
		{"Version", v.Version},
		{"Build date", v.BuildDate},
		{"Commit", v.GitCommit},
		{"Working tree", v.GitState},
	} {
		buf.WriteString(line[0])
		buf.WriteString(": ")
		buf.WriteString(line[1])
		buf.WriteString("\n")
	}
	return buf.String()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build information of rackham",
	Long: `Prints the build information stamped into the rackham binary.

Release builds set it through the linker, e.g.

	go build -ldflags "-X github.com/oneconcern/rackham/cmd/rackham/cmd.Version=$(git describe --tags)
	  -X github.com/oneconcern/rackham/cmd/rackham/cmd.GitCommit=$(git rev-parse HEAD)
	  -X github.com/oneconcern/rackham/cmd/rackham/cmd.BuildDate=$(date -u +%FT%TZ)" ./cmd/rackham

A binary built without a version reports "dev". A release build reports a "clean" working
tree unless GitState says otherwise.
`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = io.WriteString(cmd.OutOrStdout(), NewVersionInfo().String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
