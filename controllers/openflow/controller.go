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

// Package openflow implements the controller end of the wifi experimenter
// extension. One Controller serves every access point datapath connected to
// its listener.
package openflow

import (
	"encoding/binary"
	"sort"
	"time"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/k-vswitch/ofwifi/connection"
	"github.com/k-vswitch/ofwifi/netstatus"
	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

type connectionManager interface {
	Events() <-chan connection.Event
	Send(remote string, msg ofp13.OFMessage) error
}

type pendingKey struct {
	remote  string
	subtype wifiext.Subtype
}

// Controller holds everything learned from the connected access points. It
// is not safe for concurrent use: Run owns it, and strategies run on the Run
// goroutine.
type Controller struct {
	connManager connectionManager
	status      *netstatus.NetworkStatus
	strategies  []Strategy

	aps         map[string]*netstatus.WifiAp
	apsByHwAddr map[wifiext.MAC]string
	datapaths   map[string]uint64

	xid      uint32
	pending  map[pendingKey]uint32
	handoffs map[wifiext.MAC]string
}

func NewController(connManager connectionManager, status *netstatus.NetworkStatus, strategies ...Strategy) *Controller {
	if status == nil {
		status = netstatus.NewNetworkStatus(nil)
	}

	return &Controller{
		connManager: connManager,
		status:      status,
		strategies:  strategies,
		aps:         make(map[string]*netstatus.WifiAp),
		apsByHwAddr: make(map[wifiext.MAC]string),
		datapaths:   make(map[string]uint64),
		pending:     make(map[pendingKey]uint32),
		handoffs:    make(map[wifiext.MAC]string),
	}
}

func (c *Controller) Status() *netstatus.NetworkStatus {
	return c.status
}

// AP returns the access point connected from remote.
func (c *Controller) AP(remote string) (*netstatus.WifiAp, bool) {
	ap, ok := c.aps[remote]
	return ap, ok
}

// APs returns the remote addresses of every connected access point, sorted.
func (c *Controller) APs() []string {
	remotes := make([]string, 0, len(c.aps))
	for remote := range c.aps {
		remotes = append(remotes, remote)
	}
	sort.Strings(remotes)
	return remotes
}

// APByHardwareAddr returns the access point whose radio has hwAddr.
func (c *Controller) APByHardwareAddr(hwAddr wifiext.MAC) (string, bool) {
	remote, ok := c.apsByHwAddr[hwAddr]
	return remote, ok
}

// DatapathID returns the datapath id remote announced in its features reply.
func (c *Controller) DatapathID(remote string) (uint64, bool) {
	id, ok := c.datapaths[remote]
	return id, ok
}

// Run handles connection events and runs strategies until stopCh is closed
// or the connection manager stops delivering events.
func (c *Controller) Run(stopCh <-chan struct{}) {
	ticks := make(chan int)
	for i, strategy := range c.strategies {
		go tick(i, strategy.Interval, ticks, stopCh)
	}

	events := c.connManager.Events()
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			c.HandleEvent(event)

		case i := <-ticks:
			strategy := c.strategies[i]
			klog.V(2).Infof("running strategy %s", strategy.Name)
			strategy.Apply(c)

		case <-stopCh:
			return
		}
	}
}

func tick(i int, interval time.Duration, ticks chan<- int, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case ticks <- i:
			case <-stopCh:
				return
			}
		case <-stopCh:
			return
		}
	}
}

// HandleEvent applies one connection event.
func (c *Controller) HandleEvent(event connection.Event) {
	switch event.Type {
	case connection.EventConnected:
		// send initial hello which is required to establish a proper connection
		// with an open flow switch.
		c.send(event.Remote, ofp13.NewOfpHello())
		klog.Infof("OF_HELLO message sent to switch %s", event.Remote)

	case connection.EventDisconnected:
		c.removeAP(event.Remote)

	case connection.EventMessage:
		if event.Err != nil {
			klog.Errorf("error decoding message from %s: %v", event.Remote, event.Err)
			var xid uint32
			if len(event.Raw) >= 8 {
				xid = binary.BigEndian.Uint32(event.Raw[4:])
			}
			c.send(event.Remote, wifiext.NewErrorMsg(xid, event.Err, event.Raw))
			return
		}
		c.handleMessage(event.Remote, event.Msg)
	}
}

func (c *Controller) handleMessage(remote string, msg ofp13.OFMessage) {
	switch msgVal := msg.(type) {
	case *ofp13.OfpHeader:
		switch msgVal.Type {
		case ofp13.OFPT_HELLO:
			// hello received, next thing to do is send a feature request message
			// to receive the data path ID of the switch
			c.send(remote, ofp13.NewOfpFeaturesRequest())

		case ofp13.OFPT_ECHO_REQUEST:
			echoReply := ofp13.NewOfpEchoReply()
			echoReply.Xid = msgVal.Xid
			klog.V(5).Info("echo reply sent to switch")
			c.send(remote, echoReply)

		case ofp13.OFPT_ECHO_REPLY:
			klog.V(5).Info("received echo reply from switch")
		}

	case *ofp13.OfpSwitchFeatures:
		c.HandleFeaturesReply(remote, msgVal)

	case *wifiext.Frame:
		if err := c.HandleExperimenter(remote, msgVal.Msg); err != nil {
			klog.Errorf("error handling %s from %s: %v", msgVal.Msg, remote, err)
		}

	case *ofp13.OfpErrorMsg:
		klog.Errorf("switch %s reported error type %d code %d for xid %d",
			remote, msgVal.Type, msgVal.Code, msgVal.Header.Xid)
		c.failRequest(remote, msgVal.Header.Xid)

	default:
		klog.V(2).Infof("ignoring message %T from %s", msg, remote)
	}
}

// HandleFeaturesReply registers a newly connected access point and asks for
// its radio parameters.
func (c *Controller) HandleFeaturesReply(remote string, features *ofp13.OfpSwitchFeatures) {
	c.datapaths[remote] = features.DatapathId
	klog.Infof("switch %s has datapath ID %016x", remote, features.DatapathId)

	if _, ok := c.aps[remote]; !ok {
		c.aps[remote] = netstatus.NewWifiAp(remote)
	}

	if err := c.RequestChannelConfig(remote); err != nil {
		klog.Errorf("error requesting channel config from %s: %v", remote, err)
	}
}

func (c *Controller) removeAP(remote string) {
	ap, ok := c.aps[remote]
	if !ok {
		return
	}

	klog.Infof("access point %s disconnected", ap)
	if hwAddr, ok := ap.HardwareAddr(); ok {
		delete(c.apsByHwAddr, hwAddr)
	}
	delete(c.aps, remote)
	delete(c.datapaths, remote)
	for key := range c.pending {
		if key.remote == remote {
			delete(c.pending, key)
		}
	}
	for sta, target := range c.handoffs {
		if target == remote {
			delete(c.handoffs, sta)
		}
	}
	c.status.RemoveAp(remote)
}

func (c *Controller) send(remote string, msg ofp13.OFMessage) error {
	if err := c.connManager.Send(remote, msg); err != nil {
		klog.Errorf("error sending message to %s: %v", remote, err)
		return err
	}
	return nil
}
