/*
Licensed to the Apache Software Foundation (ASF) under one
or more contributor license agreements.  See the NOTICE file
distributed with this work for additional information
regarding copyright ownership.  The ASF licenses this file
to you under the Apache License, Version 2.0 (the
"License"); you may not use this file except in compliance
with the License.  You may obtain a copy of the License at

  http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing,
software distributed under the License is distributed on an
"AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
KIND, either express or implied.  See the License for the
specific language governing permissions and limitations
under the License.
*/

package connection

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"

	"k8s.io/klog"
)

const (
	// DefaultListenAddr is the IANA OpenFlow port on every interface.
	DefaultListenAddr = ":6653"
)

type EventType int

const (
	// EventConnected is delivered once per connection, before any message.
	EventConnected EventType = iota
	// EventMessage carries one received message. Msg is nil and Err is set
	// when the message could not be parsed.
	EventMessage
	// EventDisconnected is the last event of a connection.
	EventDisconnected
)

// Event is something that happened on one switch connection. Remote
// identifies the connection and is the key Send expects.
type Event struct {
	Type   EventType
	Remote string
	Msg    ofp13.OFMessage
	Raw    []byte
	Err    error
}

// Conn is one OpenFlow control channel. Messages passed to Send are queued
// and written in order by a dedicated goroutine.
type Conn struct {
	conn   net.Conn
	remote string

	queue     []ofp13.OFMessage
	queueMu   sync.Mutex
	queueCond sync.Cond
	closed    bool
}

// NewConn wraps an established connection. Nothing is read or written until
// Serve is called.
func NewConn(conn net.Conn) *Conn {
	c := &Conn{
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		queue:  make([]ofp13.OFMessage, 0),
	}
	c.queueCond.L = &c.queueMu
	return c
}

// Dial opens a control channel to a controller.
func Dial(addr string) (*Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to controller %q: %v", addr, err)
	}
	return NewConn(conn), nil
}

func (c *Conn) RemoteAddr() string {
	return c.remote
}

func (c *Conn) Send(msg ofp13.OFMessage) {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	if c.closed {
		klog.Warningf("dropping message for closed connection %s", c.remote)
		return
	}

	c.queue = append(c.queue, msg)
	c.queueCond.Broadcast()
}

func (c *Conn) Close() error {
	c.queueMu.Lock()
	if c.closed {
		c.queueMu.Unlock()
		return nil
	}
	c.closed = true
	c.queueCond.Broadcast()
	c.queueMu.Unlock()

	return c.conn.Close()
}

func (c *Conn) WriteConnection(msg ofp13.OFMessage) error {
	buf := SerializeMessage(msg)
	if len(buf) == 0 {
		return errors.New("message serialized to zero bytes")
	}

	_, err := c.conn.Write(buf)
	return err
}

// ProcessQueue writes queued messages until the connection is closed.
func (c *Conn) ProcessQueue() {
	for {
		c.queueMu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.queueCond.Wait()
		}
		if c.closed {
			c.queueMu.Unlock()
			return
		}

		msg := c.queue[0]
		c.queue = c.queue[1:]
		c.queueMu.Unlock()

		if err := c.WriteConnection(msg); err != nil {
			klog.Errorf("error writing to connection %s: %v", c.remote, err)
		}
	}
}

// Serve delivers every message read from the connection to events until the
// peer goes away or stopCh is closed, then closes the connection.
func (c *Conn) Serve(events chan<- Event, stopCh <-chan struct{}) {
	defer c.Close()
	go c.ProcessQueue()

	if !deliver(events, stopCh, Event{Type: EventConnected, Remote: c.remote}) {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-stopCh:
			c.Close()
		case <-done:
		}
	}()

	for {
		buf, err := ReadMessage(c.conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				klog.Errorf("error reading connection %s: %v", c.remote, err)
			}
			deliver(events, stopCh, Event{Type: EventDisconnected, Remote: c.remote, Err: err})
			return
		}

		msg, err := ParseMessage(buf)
		event := Event{Type: EventMessage, Remote: c.remote, Msg: msg, Raw: buf, Err: err}
		if !deliver(events, stopCh, event) {
			return
		}
	}
}

func deliver(events chan<- Event, stopCh <-chan struct{}, event Event) bool {
	select {
	case events <- event:
		return true
	case <-stopCh:
		return false
	}
}

// OFConnect accepts control channels from any number of switches and
// multiplexes their events onto one channel.
type OFConnect struct {
	listener net.Listener

	connsMu sync.Mutex
	conns   map[string]*Conn

	receiveCh chan Event
}

func NewOFConnect(addr string) (*OFConnect, error) {
	if addr == "" {
		addr = DefaultListenAddr
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("error listening on %q: %v", addr, err)
	}

	return &OFConnect{
		listener:  listener,
		conns:     make(map[string]*Conn),
		receiveCh: make(chan Event),
	}, nil
}

func (of *OFConnect) Addr() net.Addr {
	return of.listener.Addr()
}

func (of *OFConnect) Events() <-chan Event {
	return of.receiveCh
}

// Send queues msg for the switch connected from remote.
func (of *OFConnect) Send(remote string, msg ofp13.OFMessage) error {
	of.connsMu.Lock()
	conn, ok := of.conns[remote]
	of.connsMu.Unlock()

	if !ok {
		return fmt.Errorf("no connection from switch %s", remote)
	}

	conn.Send(msg)
	return nil
}

// Serve accepts connections until stopCh is closed.
func (of *OFConnect) Serve(stopCh <-chan struct{}) {
	go func() {
		<-stopCh
		of.listener.Close()
	}()

	for {
		netConn, err := of.listener.Accept()
		if err != nil {
			select {
			case <-stopCh:
				return
			default:
			}
			klog.Errorf("error accepting TCP connections: %v", err)
			continue
		}

		conn := NewConn(netConn)
		of.connsMu.Lock()
		of.conns[conn.remote] = conn
		of.connsMu.Unlock()

		klog.Infof("switch connected from %s", conn.remote)
		go of.handleConn(conn, stopCh)
	}
}

func (of *OFConnect) handleConn(conn *Conn, stopCh <-chan struct{}) {
	defer func() {
		of.connsMu.Lock()
		delete(of.conns, conn.remote)
		of.connsMu.Unlock()
	}()

	conn.Serve(of.receiveCh, stopCh)
}
