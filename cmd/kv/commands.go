package kv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/client"
	"github.com/spf13/cobra"
)

// parseValue reads a value in constructor notation, anything else is stored
// as a String
func parseValue(text string) value.DataValue {
	if v, err := value.Parse(text); err == nil {
		return v
	}
	return value.String(text)
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value] [ttl]",
		Short: "Sets the value for a key",
		Long:  `Sets the value for a key. The value is given in constructor notation (e.g. 'Integer(5)', 'List([String("a"), Boolean(true)])'), other text is stored as a String. The optional ttl is given in seconds.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ttl uint64
			if len(args) == 3 {
				var err error
				if ttl, err = strconv.ParseUint(args[2], 10, 64); err != nil {
					return fmt.Errorf("ttl must be a number: %w", err)
				}
			}
			if err := rpcClient.Set(args[0], parseValue(args[1]), ttl); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			v, ok, err := rpcClient.Get(key)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Printf("key=%s, found=false\n", key)
				return nil
			}
			fmt.Printf("key=%s, found=true, value=%s\n", key, value.Encode(v))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := client.StoreOf(rpcClient).Has(key)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	cleanCmd = &cobra.Command{
		Use:   "clean [group]",
		Short: "Removes all keys of a group (default: the selected group)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Clean(args...); err != nil {
				return err
			}
			fmt.Println("clean successfully")
			return nil
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search [pattern...]",
		Short: "Lists the keys matching any of the wildcard patterns (* and ?)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := rpcClient.Search(args...)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Println(key)
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [field|@key] [field]",
		Short: "Shows server, session or key information",
		Long:  `Shows server, session or key information. Fields: current, version, max-connect-number, tin, stt, cid, keys, groups, stats. For a key (@key) the fields expire, timestamp and weight are available.`,
		Args:  cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rpcClient.Info(args...)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	editCmd = &cobra.Command{
		Use:   "edit [key] [operation] [args...]",
		Short: "Modifies a value in place",
		Long:  `Modifies a value in place. Operations: incr [n], expire [+|-|=]seconds, insert, remove, push, pop, sort [DESC], reverse.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rpcClient.Edit(args[0], args[1], args[2:]...)
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	pingCmd = &cobra.Command{
		Use:   "ping",
		Short: "Checks the connection to the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Ping(); err != nil {
				return err
			}
			fmt.Println("PONG")
			return nil
		},
	}
	echoCmd = &cobra.Command{
		Use:   "echo [text...]",
		Short: "Sends text to the server and prints the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rpcClient.Echo(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	evalCmd = &cobra.Command{
		Use:   "eval [script...]",
		Short: "Runs a script on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rpcClient.Eval(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}
	execCmd = &cobra.Command{
		Use:   "exec [command...]",
		Short: "Sends a raw command and prints the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rpcClient.Do(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(string(reply))
			return nil
		},
	}
)
