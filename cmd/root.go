package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dorea/cmd/kv"
	"github.com/ValentinKolb/dorea/cmd/serve"
	"github.com/ValentinKolb/dorea/cmd/util"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/spf13/cobra"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dorea",
		Short: "grouped key-value store",
		Long: fmt.Sprintf(`Dorea (v%s)

A lightweight key-value store written in Go. Keys live in named groups,
each group is a bounded LRU index that is periodically flushed to disk.
Values are typed (String, Integer, Float, Boolean, List, Dict, Tuple,
Binary) and can be edited in place on the server.`, common.Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of Dorea",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Dorea v%s\n", common.Version)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "value-style"
	RootCmd.PersistentFlags().String(key, "doson", util.WrapString("How values are rendered in replies (doson, json, binary). Client and server must use the same style"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
	key = "config"
	RootCmd.PersistentFlags().String(key, "", util.WrapString("Optional config file (toml, yaml or json), flags and environment variables take precedence"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
