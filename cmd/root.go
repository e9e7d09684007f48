package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/batchkv/batchkv/cmd/admin"
	"github.com/batchkv/batchkv/cmd/kv"
	"github.com/batchkv/batchkv/cmd/serve"
	"github.com/batchkv/batchkv/cmd/util"
)

const (
	Version = "0.1.0"
)

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "batchkv",
		Short: "batched key-value store",
		Long: fmt.Sprintf(`batchkv (v%s)

A networked, batched key/value (and key-set) service hosting multiple
independently configured databases behind one endpoint.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of batchkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("batchkv v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(admin.AdminCommands)
	RootCmd.AddCommand(versionCmd)

	key := "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
