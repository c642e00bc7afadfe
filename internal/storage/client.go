package storage

import (
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/samber/mo"
)

// Client implements Storage by forwarding every call to a storage daemon over
// a Unix socket. Processes sharing one daemon share its namespace.
type Client struct {
	socketPath  string
	dialTimeout time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath, dialTimeout: 500 * time.Millisecond}
}

// Probe reports whether a daemon is accepting connections on the socket.
func (c *Client) Probe() error {
	conn, err := net.DialTimeout("unix", c.socketPath, 200*time.Millisecond)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (c *Client) roundTrip(req Request) (Response, error) {
	var resp Response
	conn, err := net.DialTimeout("unix", c.socketPath, c.dialTimeout)
	if err != nil {
		return resp, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return resp, err
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return resp, err
	}
	if !resp.OK {
		return resp, remoteError(resp.Error)
	}
	return resp, nil
}

func (c *Client) GetItem(key string) (mo.Option[string], error) {
	resp, err := c.roundTrip(Request{Op: opGet, Key: key})
	if err != nil {
		return mo.None[string](), err
	}
	if !resp.Found {
		return mo.None[string](), nil
	}
	return mo.Some(resp.Value), nil
}

func (c *Client) SetItem(key, value string) error {
	_, err := c.roundTrip(Request{Op: opSet, Key: key, Value: value})
	return err
}

func (c *Client) RemoveItem(key string) error {
	_, err := c.roundTrip(Request{Op: opRemove, Key: key})
	return err
}

func (c *Client) Keys() ([]string, error) {
	resp, err := c.roundTrip(Request{Op: opKeys})
	if err != nil {
		return nil, err
	}
	return resp.Keys, nil
}

// remoteError turns a daemon error message back into a sentinel when one
// matches, so errors.Is works across the socket.
func remoteError(msg string) error {
	for _, known := range []error{ErrClosed, ErrUnknownNamespace, errUnknownOp} {
		if msg == known.Error() {
			return known
		}
	}
	return errors.New(msg)
}
