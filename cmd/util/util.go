package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dorea/rpc/client"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DOREA_ENDPOINT)
	EnvPrefix = "dorea"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files, binds the environment and reads the optional
// config file. Values are resolved in the order flag > env > file > default.
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// ReadConfigFile reads the file set with --config (or DOREA_CONFIG), if any
func ReadConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoint"
	cmd.PersistentFlags().String(key, fmt.Sprintf("localhost:%d", common.DefaultPort), WrapString("The address of the Dorea server (host:port, or a socket path for the unix transport)"))

	key = "password"
	cmd.PersistentFlags().String(key, "", WrapString("Password used to authenticate the session"))

	key = "group"
	cmd.PersistentFlags().String(key, "", WrapString("Group to select after connecting (empty = server default group)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry a request"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, 10, WrapString("Maximum number of pooled connections (used by the perf command)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		Transport:     viper.GetString("transport"),
		Password:      viper.GetString("password"),
		Group:         viper.GetString("group"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
		PoolSize:      viper.GetInt("pool-size"),
	}
}

// GetSerializer creates the serializer for the configured value style
func GetSerializer() (serializer.IValueSerializer, error) {
	return serializer.New(viper.GetString("value-style"))
}

// GetTransport creates the client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	return client.NewTransport(viper.GetString("transport"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
