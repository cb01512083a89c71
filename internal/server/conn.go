package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Request is a JSON-RPC 2.0 request or notification. The id is kept raw so
// it is echoed byte for byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Conn exchanges NDJSON messages over a reader/writer pair.
type Conn struct {
	in      *LineReader
	out     io.Writer
	writeMu sync.Mutex
}

func NewConn(r io.Reader, w io.Writer) *Conn {
	return &Conn{in: NewLineReader(r, MaxLineSize), out: w}
}

// ReadRequest returns io.EOF at end of input and ErrLineTooLong for an
// oversized line. Malformed JSON is returned as a *RPCError parse error.
func (c *Conn) ReadRequest() (*Request, error) {
	for {
		line, err := c.in.ReadLine()
		if err != nil {
			return nil, err
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, &RPCError{Code: ParseErrorCode, Message: "Parse error: " + err.Error()}
		}
		return &req, nil
	}
}

// WriteResponse is safe for concurrent use.
func (c *Conn) WriteResponse(resp *Response) error {
	if resp.ID == nil {
		resp.ID = json.RawMessage("null")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err = c.out.Write(data)
	return err
}
