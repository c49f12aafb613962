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

package datapath

import (
	"encoding/binary"
	"io"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/k-vswitch/ofwifi/connection"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

// controlChannel is the connection an agent runs on.
type controlChannel interface {
	Sender
	Serve(events chan<- connection.Event, stopCh <-chan struct{})
}

// Agent is the OpenFlow endpoint of one datapath. It answers the handshake
// and keepalives itself and hands wifi experimenter messages to a Dispatcher.
type Agent struct {
	datapathID uint64
	registry   *Registry
	dispatcher *Dispatcher
}

func NewAgent(datapathID uint64, registry *Registry, dispatcher *Dispatcher) *Agent {
	return &Agent{
		datapathID: datapathID,
		registry:   registry,
		dispatcher: dispatcher,
	}
}

// Run serves conn until the controller disconnects or stopCh is closed.
func (a *Agent) Run(conn controlChannel, stopCh <-chan struct{}) error {
	events := make(chan connection.Event)
	done := make(chan struct{})
	defer close(done)

	// the agent stops reading events on return, so the connection must
	// stop with it
	connStop := make(chan struct{})
	go func() {
		select {
		case <-stopCh:
		case <-done:
		}
		close(connStop)
	}()
	go conn.Serve(events, connStop)

	if dp, err := a.registry.Get(a.datapathID); err == nil {
		dp.SetSender(conn)
		defer dp.SetSender(nil)
	} else {
		klog.Warningf("datapath %016x has no wifi device, wifi requests will fail", a.datapathID)
	}

	for {
		select {
		case event := <-events:
			switch event.Type {
			case connection.EventConnected:
				conn.Send(ofp13.NewOfpHello())
				klog.Infof("datapath %016x: OF_HELLO sent to controller %s", a.datapathID, event.Remote)

			case connection.EventMessage:
				a.handleMessage(conn, event)

			case connection.EventDisconnected:
				if event.Err == nil || event.Err == io.EOF {
					return nil
				}
				return errors.Wrap(event.Err, "controller connection lost")
			}

		case <-stopCh:
			return nil
		}
	}
}

func (a *Agent) handleMessage(s Sender, event connection.Event) {
	if event.Err != nil {
		klog.Errorf("datapath %016x: error decoding message: %v", a.datapathID, event.Err)
		var xid uint32
		if len(event.Raw) >= 8 {
			xid = binary.BigEndian.Uint32(event.Raw[4:])
		}
		s.Send(wifiext.NewErrorMsg(xid, event.Err, event.Raw))
		return
	}

	switch msg := event.Msg.(type) {
	case *ofp13.OfpHeader:
		switch msg.Type {
		case ofp13.OFPT_HELLO:
			klog.Infof("datapath %016x: received hello from controller", a.datapathID)

		case ofp13.OFPT_FEATURES_REQUEST:
			s.Send(connection.NewFeaturesReply(msg.Xid, a.datapathID))
			klog.Infof("datapath %016x: features reply sent to controller", a.datapathID)

		case ofp13.OFPT_ECHO_REQUEST:
			echoReply := ofp13.NewOfpEchoReply()
			echoReply.Xid = msg.Xid
			s.Send(echoReply)
			klog.V(5).Info("echo reply sent to controller")

		case ofp13.OFPT_BARRIER_REQUEST:
			barrierReply := ofp13.NewOfpBarrierReply()
			barrierReply.Xid = msg.Xid
			s.Send(barrierReply)

		case ofp13.OFPT_ECHO_REPLY:
			klog.V(5).Info("received echo reply from controller")
		}

	case *wifiext.Frame:
		if err := a.dispatcher.Dispatch(a.datapathID, msg.Msg, s); err != nil {
			klog.Errorf("datapath %016x: error handling %s: %v", a.datapathID, msg.Msg, err)
			s.Send(wifiext.NewErrorMsg(msg.Msg.GetXid(), err, event.Raw))
		}

	case *ofp13.OfpErrorMsg:
		klog.Errorf("datapath %016x: controller reported error type %d code %d for xid %d",
			a.datapathID, msg.Type, msg.Code, msg.Header.Xid)

	default:
		klog.V(2).Infof("datapath %016x: ignoring message %T", a.datapathID, msg)
	}
}
