// Copyright © 2018 One Concern

package cmd

import (
	"log"
	"os"
	"strings"

	"github.com/oneconcern/rackham/pkg/dlogger"
	"github.com/oneconcern/rackham/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rackham",
	Short: "Fit batch job resources to the Rackham cluster",
	Long: `rackham rewrites the resources requested by a batch job (partition, constraint,
cpus-per-task and mem) so that they match the partitions of the Rackham cluster.

On Rackham, memory comes with CPUs on the "core" partition, or with whole nodes
of a memory class on the "node" partition. Requests are capped rather than rejected,
and every correction is logged on stderr.

It is meant to sit between a workflow engine and sbatch.
`,
}

var config *CLIConfig

// appFs is the filesystem used to read inputs and the configuration file
var appFs = afero.NewOsFs()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		terminate(err)
	}
}

func init() {
	log.SetFlags(0)
	addLogLevelFlag(rootCmd)
	addLogFormatFlag(rootCmd)
	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	viper.SetFs(appFs)
	viper.SetDefault(logLevelFlag, dlogger.LogLevelInfo)
	viper.SetDefault(logFormatFlag, dlogger.EncodingConsole)
	if err := viper.BindPFlag(logLevelFlag, rootCmd.PersistentFlags().Lookup(logLevelFlag)); err != nil {
		wrapFatalln("bind flag", err)
		return
	}
	if err := viper.BindPFlag(logFormatFlag, rootCmd.PersistentFlags().Lookup(logFormatFlag)); err != nil {
		wrapFatalln("bind flag", err)
		return
	}

	explicitConfig := os.Getenv("RACKHAM_CONFIG")
	if explicitConfig != "" {
		// Use config file from the environment.
		viper.SetConfigFile(explicitConfig)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.rackham")
		viper.AddConfigPath("/etc/rackham")
		viper.SetConfigName("rackham")
	}

	viper.SetEnvPrefix("rackham")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	case errors.As(err, &notFound) && explicitConfig == "":
		// no config file: defaults apply
	default:
		wrapFatalln("read config file", err)
		return
	}

	config, err = newConfig()
	if err != nil {
		wrapFatalln("load config", err)
	}
}
