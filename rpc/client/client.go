package client

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/ValentinKolb/dorea/lib/value"
	"github.com/ValentinKolb/dorea/rpc/common"
	"github.com/ValentinKolb/dorea/rpc/serializer"
	"github.com/ValentinKolb/dorea/rpc/transport"
	"github.com/ValentinKolb/dorea/rpc/transport/tcp"
	"github.com/ValentinKolb/dorea/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

// msgNotFound is the server reply for missing keys
const msgNotFound = "Data Not Found"

// ResponseError is returned for replies with a state other than OK
type ResponseError struct {
	State common.State
	Msg   string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.State, e.Msg)
}

// IsNoAuth reports whether the session is not authenticated
func (e *ResponseError) IsNoAuth() bool {
	return e.State == common.StateNoAuth
}

// NewTransport returns the client transport for a transport name
func NewTransport(name string) (transport.IRPCClientTransport, error) {
	switch strings.ToLower(name) {
	case "", "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q (expected tcp or unix)", name)
	}
}

// Client is a typed client for one server session. Requests are sent one
// after another, use a Pool for parallel requests.
type Client struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IValueSerializer

	mu    sync.Mutex
	group string
}

// NewClient connects to the server. After every (re)connect the session is
// authenticated with the configured password and the selected group is
// restored. The serializer must match the value style of the server.
func NewClient(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IValueSerializer,
) (*Client, error) {
	c := &Client{
		config:     config,
		transport:  transport,
		serializer: serializer,
		group:      config.Group,
	}

	if err := transport.Connect(config, c.restoreSession); err != nil {
		return nil, err
	}
	return c, nil
}

// restoreSession implements transport.ConnectHook
func (c *Client) restoreSession(roundTrip transport.RoundTrip) error {
	if c.config.Password != "" {
		if err := expectOK(roundTrip([]byte("AUTH " + c.config.Password))); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	c.mu.Lock()
	group := c.group
	c.mu.Unlock()

	if group != "" {
		if err := expectOK(roundTrip([]byte("SELECT " + group))); err != nil {
			return fmt.Errorf("failed to select group %s: %w", group, err)
		}
	}
	return nil
}

func expectOK(state common.State, body []byte, err error) error {
	if err != nil {
		return err
	}
	if state != common.StateOK {
		return &ResponseError{State: state, Msg: string(body)}
	}
	return nil
}

// --------------------------------------------------------------------------
// Raw Commands
// --------------------------------------------------------------------------

// Do sends a command and returns the body of an OK reply. Other replies are
// returned as *ResponseError.
func (c *Client) Do(command string) ([]byte, error) {
	state, body, err := c.transport.Send([]byte(command))
	if err != nil {
		return nil, err
	}
	if state != common.StateOK {
		return nil, &ResponseError{State: state, Msg: string(body)}
	}
	return body, nil
}

// Exec sends a command built from its parts
func (c *Client) Exec(op common.Operation, args ...string) ([]byte, error) {
	return c.Do(common.Command{Op: op, Args: args}.String())
}

// --------------------------------------------------------------------------
// Typed Commands
// --------------------------------------------------------------------------

// Ping checks the connection
func (c *Client) Ping() error {
	_, err := c.Exec(common.OpPing)
	return err
}

// Get returns the value of a key in the selected group
func (c *Client) Get(key string) (value.DataValue, bool, error) {
	body, err := c.Exec(common.OpGet, key)
	if err != nil {
		if isResponse(err, msgNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	v, err := c.serializer.Deserialize(body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode value: %w", err)
	}
	return v, true, nil
}

// Set stores a value, ttl is given in seconds (0 = never expires)
func (c *Client) Set(key string, v value.DataValue, ttl uint64) error {
	_, err := c.Exec(common.OpSet, key, value.Encode(v), strconv.FormatUint(ttl, 10))
	return err
}

// Delete removes a key
func (c *Client) Delete(key string) error {
	_, err := c.Exec(common.OpDelete, key)
	return err
}

// Clean removes all keys of the selected group, or of the given group
func (c *Client) Clean(group ...string) error {
	_, err := c.Exec(common.OpClean, group...)
	return err
}

// Select switches the session to another group
func (c *Client) Select(group string) error {
	if _, err := c.Exec(common.OpSelect, group); err != nil {
		return err
	}
	c.mu.Lock()
	c.group = group
	c.mu.Unlock()
	return nil
}

// Group returns the selected group, empty for the server default
func (c *Client) Group() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.group
}

// Search returns all keys matching at least one wildcard pattern
func (c *Client) Search(patterns ...string) ([]string, error) {
	body, err := c.Exec(common.OpSearch, patterns...)
	if err != nil {
		return nil, err
	}
	return c.decodeStrings(body)
}

// Info runs an INFO subcommand and returns the raw reply
func (c *Client) Info(args ...string) (string, error) {
	body, err := c.Exec(common.OpInfo, args...)
	return string(body), err
}

// Keys returns all keys of the selected group
func (c *Client) Keys() ([]string, error) {
	body, err := c.Exec(common.OpInfo, "keys")
	if err != nil {
		return nil, err
	}
	return c.decodeStrings(body)
}

// Edit modifies a value in place (e.g. Edit("counter", "incr", "2"))
func (c *Client) Edit(key, op string, args ...string) (string, error) {
	body, err := c.Exec(common.OpEdit, append([]string{key, op}, args...)...)
	return string(body), err
}

// Echo returns the text as sent back by the server
func (c *Client) Echo(text string) (string, error) {
	body, err := c.Exec(common.OpEcho, text)
	return string(body), err
}

// Eval runs a script on the server
func (c *Client) Eval(script string) (string, error) {
	body, err := c.Exec(common.OpEval, script)
	return string(body), err
}

// Close ends the session
func (c *Client) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (c *Client) decodeStrings(body []byte) ([]string, error) {
	v, err := c.serializer.Deserialize(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode reply: %w", err)
	}
	list, ok := v.(value.List)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", v.Kind())
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(value.String); ok {
			out = append(out, string(s))
		}
	}
	return out, nil
}

func isResponse(err error, msg string) bool {
	respErr, ok := err.(*ResponseError)
	return ok && respErr.State == common.StateErr && respErr.Msg == msg
}
