// Package ctlsock is a Go library that can be used to query the
// cryptopuck control socket interface. This interface can be
// activated by passing `--ctlsock /run/cryptopuck.sock` to
// `cryptopuck watch`.
// See `cryptopuck status` for a usage example.
package ctlsock

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

func (r *ResponseStruct) Error() string {
	return fmt.Sprintf("errno %d: %s", r.ErrNo, r.ErrText)
}

// CtlSock encapsulates a control socket
type CtlSock struct {
	Conn net.Conn
	dec  *json.Decoder
}

// New opens the socket at `socketPath` and stores it in a `CtlSock` object.
func New(socketPath string) (*CtlSock, error) {
	conn, err := net.DialTimeout("unix", socketPath, 1*time.Second)
	if err != nil {
		return nil, err
	}
	return &CtlSock{Conn: conn, dec: json.NewDecoder(conn)}, nil
}

// Query sends a request to the control socket returns the response.
func (c *CtlSock) Query(req *RequestStruct) (*ResponseStruct, error) {
	c.Conn.SetDeadline(time.Now().Add(time.Second))
	msg, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	_, err = c.Conn.Write(msg)
	if err != nil {
		return nil, err
	}
	var resp ResponseStruct
	if err = c.dec.Decode(&resp); err != nil {
		return nil, err
	}
	if resp.ErrNo != 0 {
		return nil, &resp
	}
	return &resp, nil
}

// Status is a shorthand for a CmdStatus query.
func (c *CtlSock) Status() (*ResponseStruct, error) {
	return c.Query(&RequestStruct{Command: CmdStatus})
}

// History is a shorthand for a CmdHistory query.
func (c *CtlSock) History(limit int) ([]Run, error) {
	resp, err := c.Query(&RequestStruct{Command: CmdHistory, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Close closes the socket
func (c *CtlSock) Close() {
	c.Conn.Close()
}
