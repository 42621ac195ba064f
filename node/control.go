// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/ironpeer/coreward/errkind"
)

// ControlRequest is the single-line JSON request the coreward CLI sends
// over a node's control socket. cmd is "status" or "stop"; a running
// node is the only thing that can answer either, since this process is
// the one holding the chainstate lock and the open database handle.
type ControlRequest struct {
	Cmd string `json:"cmd"`
}

// ControlResponse is the single-line JSON reply. Err is set instead of
// Status when Cmd failed.
type ControlResponse struct {
	Status *Status `json:"status,omitempty"`
	Err    string  `json:"err,omitempty"`
}

// ServeControl listens on a Unix domain socket at sockPath and answers
// "status"/"stop" requests from the CLI until ctx is cancelled. It
// removes any stale socket file left by a prior unclean shutdown before
// binding, and removes its own socket file on return.
func (n *Node) ServeControl(ctx context.Context, sockPath string) error {
	_ = os.Remove(sockPath)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "unix", sockPath)
	if err != nil {
		return errkind.New(errkind.Transient, "node.ServeControl/Listen", err)
	}
	defer os.Remove(sockPath)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return errkind.New(errkind.Transient, "node.ServeControl/Accept", err)
			}
		}
		go n.handleControlConn(conn)
	}
}

func (n *Node) handleControlConn(conn net.Conn) {
	defer conn.Close()

	var req ControlRequest
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&req); err != nil {
		writeControlResponse(conn, ControlResponse{Err: err.Error()})
		return
	}

	switch req.Cmd {
	case "status":
		status := n.Status()
		writeControlResponse(conn, ControlResponse{Status: &status})
	case "stop":
		status := n.Status()
		writeControlResponse(conn, ControlResponse{Status: &status})
		if n.cancel != nil {
			n.cancel()
		}
	default:
		writeControlResponse(conn, ControlResponse{Err: fmt.Sprintf("unknown control command %q", req.Cmd)})
	}
}

func writeControlResponse(conn net.Conn, resp ControlResponse) {
	_ = json.NewEncoder(conn).Encode(resp)
}

// DialControl connects to a running node's control socket and issues a
// single request, returning its response.
func DialControl(ctx context.Context, sockPath string, cmd string) (*ControlResponse, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return nil, fmt.Errorf("node: no running node reachable at %s: %w", sockPath, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(ControlRequest{Cmd: cmd}); err != nil {
		return nil, err
	}
	var resp ControlResponse
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&resp); err != nil {
		return nil, err
	}
	if resp.Err != "" {
		return nil, fmt.Errorf("node: %s", resp.Err)
	}
	return &resp, nil
}
