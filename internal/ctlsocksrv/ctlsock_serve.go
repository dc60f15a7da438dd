// Package ctlsocksrv implements the control socket interface that can be
// activated by passing "--ctlsock" to "cryptopuck watch".
package ctlsocksrv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"github.com/cryptopuck/cryptopuck/ctlsock"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// Interface is implemented by the watch daemon
type Interface interface {
	// Status returns the operational state and the most recent run, which
	// may be nil.
	Status() (state string, last *ctlsock.Run)
	// History returns up to "limit" runs, newest first.
	History(limit int) ([]ctlsock.Run, error)
}

// MaxHistoryLimit caps RequestStruct.Limit.
const MaxHistoryLimit = 1000

type ctlSockHandler struct {
	backend Interface
	socket  *net.UnixListener
}

// Serve serves incoming connections on "sock". This call blocks until the
// listener is closed, so you probably want to run it in a new goroutine.
func Serve(sock net.Listener, backend Interface) {
	handler := ctlSockHandler{
		backend: backend,
		socket:  sock.(*net.UnixListener),
	}
	handler.acceptLoop()
}

func (ch *ctlSockHandler) acceptLoop() {
	for {
		conn, err := ch.socket.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				tlog.Info.Printf("ctlsock: Accept error: %v", err)
			}
			break
		}
		go ch.handleConnection(conn.(*net.UnixConn))
	}
}

// ReadBufSize is the size of the request read buffer. Requests are tiny
// JSON objects, anything approaching this size is garbage.
// We abort the connection if the request is bigger than this.
const ReadBufSize = 5000

// handleConnection reads and parses JSON requests from "conn"
func (ch *ctlSockHandler) handleConnection(conn *net.UnixConn) {
	buf := make([]byte, ReadBufSize)
	for {
		n, err := conn.Read(buf)
		if err == io.EOF {
			conn.Close()
			return
		} else if err != nil {
			tlog.Warn.Printf("ctlsock: Read error: %#v", err)
			conn.Close()
			return
		}
		if n == ReadBufSize {
			tlog.Warn.Printf("ctlsock: request too big (max = %d bytes)", ReadBufSize-1)
			conn.Close()
			return
		}
		data := buf[:n]
		var in ctlsock.RequestStruct
		err = json.Unmarshal(data, &in)
		if err != nil {
			tlog.Warn.Printf("ctlsock: JSON Unmarshal error: %#v", err)
			err = errors.New("JSON Unmarshal error: " + err.Error())
			sendResponse(conn, err, &ctlsock.ResponseStruct{})
			continue
		}
		ch.handleRequest(&in, conn)
	}
}

// handleRequest handles an already-unmarshaled JSON request
func (ch *ctlSockHandler) handleRequest(in *ctlsock.RequestStruct, conn *net.UnixConn) {
	var err error
	resp := &ctlsock.ResponseStruct{}
	switch in.Command {
	case ctlsock.CmdStatus:
		resp.State, resp.Last = ch.backend.Status()
	case ctlsock.CmdHistory:
		limit := in.Limit
		if limit <= 0 {
			limit = ctlsock.DefaultHistoryLimit
		}
		if limit > MaxHistoryLimit {
			resp.WarnText = fmt.Sprintf("Limit %d has been capped to %d.", limit, MaxHistoryLimit)
			limit = MaxHistoryLimit
		}
		resp.State, _ = ch.backend.Status()
		resp.Runs, err = ch.backend.History(limit)
	case "":
		err = errors.New("Empty input")
	default:
		err = fmt.Errorf("Unknown command %q", in.Command)
	}
	sendResponse(conn, err, resp)
}

// sendResponse sends a JSON response message
func sendResponse(conn *net.UnixConn, err error, msg *ctlsock.ResponseStruct) {
	if err != nil {
		msg.ErrText = err.Error()
		msg.ErrNo = -1
		// Try to extract the actual error number
		if pe, ok := err.(*os.PathError); ok {
			if se, ok := pe.Err.(syscall.Errno); ok {
				msg.ErrNo = int32(se)
			}
		} else if se, ok := err.(syscall.Errno); ok {
			msg.ErrNo = int32(se)
		}
	}
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		tlog.Warn.Printf("ctlsock: Marshal failed: %v", err)
		return
	}
	// For convenience for the user, add a newline at the end.
	jsonMsg = append(jsonMsg, '\n')
	_, err = conn.Write(jsonMsg)
	if err != nil {
		tlog.Warn.Printf("ctlsock: Write failed: %v", err)
	}
}
