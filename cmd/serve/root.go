package serve

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dorea/cmd/util"
	"github.com/ValentinKolb/dorea/lib/store/lstore"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/server"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/ValentinKolb/dorea/rpc/transport/tcp"
	"github.com/ValentinKolb/dorea/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the Dorea server",
		Long:    `Start the Dorea server with the specified configuration. The configuration can be set via command line flags, environment variables or a config file. The format of the environment variables is DOREA_<flag> (e.g. DOREA_MAX_GROUP_NUMBER=50)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	defaults := common.DefaultServerConfig()

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, defaults.Endpoint, util.WrapString("The address on which the server will listen (e.g. 0.0.0.0:3450, /tmp/dorea.sock, ...)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, defaults.DataDir, util.WrapString("Directory holding one file per group"))

	key = "password"
	ServeCmd.PersistentFlags().String(key, "", util.WrapString("Password required by AUTH before any other command (empty = no authentication)"))

	key = "max-connect-number"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxConnectNumber, util.WrapString("Maximum number of simultaneous connections"))

	key = "max-group-number"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxGroupNumber, util.WrapString("Maximum number of groups loaded in memory at the same time"))

	key = "default-group"
	ServeCmd.PersistentFlags().String(key, defaults.DefaultGroup, util.WrapString("Group selected by new connections"))

	key = "preload-groups"
	ServeCmd.PersistentFlags().String(key, strings.Join(defaults.PreloadGroups, ","), util.WrapString("Comma-separated list of groups loaded on startup"))

	key = "max-index-number"
	ServeCmd.PersistentFlags().Int(key, defaults.MaxIndexNumber, util.WrapString(fmt.Sprintf("Maximum number of keys over all loaded groups (at most %d)", lstore.MaxIndexLimit)))

	key = "group-capacity"
	ServeCmd.PersistentFlags().Int(key, defaults.GroupCapacity, util.WrapString("Maximum number of keys per group, the least recently used key is evicted when a group is full"))

	key = "flush-interval"
	ServeCmd.PersistentFlags().Duration(key, defaults.FlushInterval, util.WrapString("How often dirty groups are written to disk"))

	key = "rate-limit"
	ServeCmd.PersistentFlags().Float64(key, 0, util.WrapString("Commands per second allowed per connection (0 = unlimited)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 0, util.WrapString("Read timeout in seconds per command, idle connections are closed after it (0 = none)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", util.WrapString("Address of the Prometheus /metrics endpoint (e.g. localhost:9100, empty = disabled)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, defaults.LogLevel, util.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags, environment variables
// and the config file and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.ReadConfigFile(); err != nil {
		return err
	}

	// parse preload groups
	serveCmdConfig.PreloadGroups = nil
	for _, group := range strings.Split(viper.GetString("preload-groups"), ",") {
		if group = strings.TrimSpace(group); group != "" {
			serveCmdConfig.PreloadGroups = append(serveCmdConfig.PreloadGroups, group)
		}
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport = viper.GetString("transport")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.Password = viper.GetString("password")
	serveCmdConfig.MaxConnectNumber = viper.GetInt("max-connect-number")
	serveCmdConfig.MaxGroupNumber = viper.GetInt("max-group-number")
	serveCmdConfig.DefaultGroup = viper.GetString("default-group")
	serveCmdConfig.MaxIndexNumber = viper.GetInt("max-index-number")
	serveCmdConfig.GroupCapacity = viper.GetInt("group-capacity")
	serveCmdConfig.FlushInterval = viper.GetDuration("flush-interval")
	serveCmdConfig.RateLimit = viper.GetFloat64("rate-limit")
	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.ValueStyle = viper.GetString("value-style")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.MaxIndexNumber > lstore.MaxIndexLimit {
		return fmt.Errorf("max-index-number must not exceed %d", lstore.MaxIndexLimit)
	}
	if serveCmdConfig.FlushInterval <= 0 {
		return fmt.Errorf("flush-interval must be positive")
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the Dorea server
func run(_ *cobra.Command, _ []string) error {

	// parse the value style
	s, err := serializer.New(serveCmdConfig.ValueStyle)
	if err != nil {
		return err
	}

	// Parse the transport
	var t transport.IRPCServerTransport
	switch serveCmdConfig.Transport {
	case "tcp", "":
		t = tcp.NewTCPServerTransport()
	case "unix":
		t = unix.NewUnixServerTransport()
	default:
		return fmt.Errorf("invalid transport %s", serveCmdConfig.Transport)
	}

	fmt.Println(serveCmdConfig.String())

	serv, err := server.NewRPCServer(*serveCmdConfig, t, s)
	if err != nil {
		return err
	}

	return serv.Serve()
}
