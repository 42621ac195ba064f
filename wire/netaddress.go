// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2024 The Ironpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"
	"net"
	"time"
)

// NetAddress describes a peer on the network, as relayed in MsgAddr and
// embedded in MsgVersion.
type NetAddress struct {
	Timestamp time.Time
	Services  ServiceFlag
	IP        net.IP
	Port      uint16
}

func (na *NetAddress) HasService(flag ServiceFlag) bool {
	return na.Services&flag == flag
}

func (na *NetAddress) AddService(flag ServiceFlag) {
	na.Services |= flag
}

func readNetAddress(r io.Reader, pver uint32, na *NetAddress, hasTimestamp bool) error {
	var ip [16]byte
	if hasTimestamp {
		var ts uint32
		if err := readElement(r, &ts); err != nil {
			return err
		}
		na.Timestamp = time.Unix(int64(ts), 0)
	}
	var services uint64
	if err := readElement(r, &services); err != nil {
		return err
	}
	na.Services = ServiceFlag(services)
	if _, err := io.ReadFull(r, ip[:]); err != nil {
		return err
	}
	na.IP = net.IP(ip[:])
	var port uint16
	if err := binaryReadPort(r, &port); err != nil {
		return err
	}
	na.Port = port
	return nil
}

func writeNetAddress(w io.Writer, pver uint32, na *NetAddress, hasTimestamp bool) error {
	if hasTimestamp {
		if err := writeElement(w, uint32(na.Timestamp.Unix())); err != nil {
			return err
		}
	}
	if err := writeElement(w, uint64(na.Services)); err != nil {
		return err
	}
	var ip [16]byte
	if v4 := na.IP.To4(); v4 != nil {
		copy(ip[10:12], []byte{0xff, 0xff})
		copy(ip[12:16], v4)
	} else if na.IP != nil {
		copy(ip[:], na.IP.To16())
	}
	if _, err := w.Write(ip[:]); err != nil {
		return err
	}
	return binaryWritePort(w, na.Port)
}

// port is encoded big-endian on the wire, unlike every other integer
// field, matching a standard full node's address serialization.
func binaryReadPort(r io.Reader, port *uint16) error {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return err
	}
	*port = uint16(buf[0])<<8 | uint16(buf[1])
	return nil
}

func binaryWritePort(w io.Writer, port uint16) error {
	buf := [2]byte{byte(port >> 8), byte(port)}
	_, err := w.Write(buf[:])
	return err
}
