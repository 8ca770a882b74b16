package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dorea/lib/store/lstore"
)

// DefaultPort is the default port of the server
const DefaultPort = 3450

// --------------------------------------------------------------------------
// helper functions to interface with the storage engine
// --------------------------------------------------------------------------

// ToStoreConfig converts the ServerConfig to the storage engine configuration
func (c *ServerConfig) ToStoreConfig() lstore.Config {
	cfg := lstore.DefaultConfig(c.DataDir)
	cfg.MaxGroupNumber = c.MaxGroupNumber
	cfg.DefaultGroup = c.DefaultGroup
	cfg.PreloadGroups = c.PreloadGroups
	cfg.MaxIndexNumber = c.MaxIndexNumber
	cfg.GroupCapacity = c.GroupCapacity
	cfg.FlushInterval = c.FlushInterval
	return cfg
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the server.
type ServerConfig struct {
	// Network settings
	Endpoint         string
	Transport        string // tcp or unix
	TimeoutSecond    int    // read timeout per command, 0 = none
	MaxConnectNumber int
	RateLimit        float64 // commands per second per connection, 0 = unlimited

	// Authentication, an empty password disables it
	Password string

	// Storage settings
	DataDir        string
	MaxGroupNumber int
	DefaultGroup   string
	PreloadGroups  []string
	MaxIndexNumber int
	GroupCapacity  int
	FlushInterval  time.Duration

	// Value rendering (doson or json)
	ValueStyle string

	// Observability
	MetricsEndpoint string
	LogLevel        string
}

// DefaultServerConfig returns the configuration used when nothing is set
func DefaultServerConfig() ServerConfig {
	store := lstore.DefaultConfig("data")
	return ServerConfig{
		Endpoint:         fmt.Sprintf("0.0.0.0:%d", DefaultPort),
		Transport:        "tcp",
		MaxConnectNumber: 255,
		DataDir:          store.Root,
		MaxGroupNumber:   store.MaxGroupNumber,
		DefaultGroup:     store.DefaultGroup,
		PreloadGroups:    store.PreloadGroups,
		MaxIndexNumber:   store.MaxIndexNumber,
		GroupCapacity:    store.GroupCapacity,
		FlushInterval:    store.FlushInterval,
		ValueStyle:       "doson",
		LogLevel:         "info",
	}
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Connections", strconv.Itoa(c.MaxConnectNumber))
	if c.RateLimit > 0 {
		addField("Rate Limit", fmt.Sprintf("%g cmd/s", c.RateLimit))
	} else {
		addField("Rate Limit", "disabled")
	}
	addField("Authentication", fmt.Sprintf("%t", c.Password != ""))
	addField("Value Style", c.ValueStyle)

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)
	addField("Default Group", c.DefaultGroup)
	addField("Preload Groups", strings.Join(c.PreloadGroups, ", "))
	addField("Max Groups", strconv.Itoa(c.MaxGroupNumber))
	addField("Max Index Number", strconv.Itoa(c.MaxIndexNumber))
	addField("Group Capacity", strconv.Itoa(c.GroupCapacity))
	addField("Flush Interval", c.FlushInterval.String())

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoint      string
	Transport     string // tcp or unix
	Password      string
	Group         string // group selected after connecting, empty = server default
	TimeoutSecond int
	RetryCount    int
	PoolSize      int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Transport", c.Transport)
	addField("Group", c.Group)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Pool Size", strconv.Itoa(max(1, c.PoolSize)))

	return sb.String()
}
