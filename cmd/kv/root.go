package kv

import (
	"github.com/ValentinKolb/dorea/cmd/util"
	"github.com/ValentinKolb/dorea/rpc/client"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/spf13/cobra"
)

var (
	rpcClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(cleanCmd)
	KeyValueCommands.AddCommand(searchCmd)
	KeyValueCommands.AddCommand(infoCmd)
	KeyValueCommands.AddCommand(editCmd)
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(echoCmd)
	KeyValueCommands.AddCommand(evalCmd)
	KeyValueCommands.AddCommand(execCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the client used by the subcommands
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.ReadConfigFile(); err != nil {
		return err
	}
	if err := common.InitLoggers("warning"); err != nil {
		return err
	}

	// the perf command manages its own connection pool
	if cmd == perfTestCmd {
		return nil
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcClient, err = client.NewClient(*config, t, s)
	return err
}

func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcClient == nil {
		return nil
	}
	return rpcClient.Close()
}
