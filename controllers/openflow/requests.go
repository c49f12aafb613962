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

package openflow

import (
	"errors"
	"fmt"

	"github.com/k-vswitch/ofwifi/netstatus"
	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

// ErrUnknownAP is returned for requests to a remote that completed no
// handshake.
var ErrUnknownAP = errors.New("unknown access point")

// replySubtypes maps requests that expect a reply to the subtype of that reply.
var replySubtypes = map[wifiext.Subtype]wifiext.Subtype{
	wifiext.ChannelConfigRequest:  wifiext.ChannelConfigReply,
	wifiext.ChannelQualityRequest: wifiext.ChannelQualityReply,
	wifiext.AssocStatusRequest:    wifiext.AssocStatusReply,
	wifiext.DisassocConfig:        wifiext.DisassocConfigReply,
}

func (c *Controller) nextXid() uint32 {
	c.xid++
	return c.xid
}

// request sends msg to remote with a fresh transaction id. Only one request
// of each reply subtype is tracked per access point; a newer one replaces it.
func (c *Controller) request(remote string, msg wifiext.Message) error {
	if _, ok := c.aps[remote]; !ok {
		return fmt.Errorf("%w %s", ErrUnknownAP, remote)
	}

	xid := c.nextXid()
	msg.SetXid(xid)
	if err := c.send(remote, wifiext.NewFrame(msg)); err != nil {
		return err
	}

	if subtype, ok := replySubtypes[msg.Subtype()]; ok {
		key := pendingKey{remote, subtype}
		if old, ok := c.pending[key]; ok {
			klog.Warningf("%s to %s replaces unanswered request xid %d", msg.Subtype(), remote, old)
		}
		c.pending[key] = xid
	}

	klog.V(2).Infof("sent %s to %s", msg, remote)
	return nil
}

// Pending returns the transaction id of the unanswered request remote is
// expected to answer with subtype.
func (c *Controller) Pending(remote string, subtype wifiext.Subtype) (uint32, bool) {
	xid, ok := c.pending[pendingKey{remote, subtype}]
	return xid, ok
}

// completeRequest clears the request msg answers. Replies that match no
// request are still applied.
func (c *Controller) completeRequest(remote string, msg wifiext.Message) {
	key := pendingKey{remote, msg.Subtype()}
	xid, ok := c.pending[key]
	if !ok {
		return
	}

	if xid != msg.GetXid() {
		klog.Warningf("%s from %s has xid %d, expected %d", msg.Subtype(), remote, msg.GetXid(), xid)
	}
	delete(c.pending, key)
}

func (c *Controller) failRequest(remote string, xid uint32) {
	for key, pendingXid := range c.pending {
		if key.remote == remote && pendingXid == xid {
			klog.Errorf("%s from %s will not arrive, request xid %d failed", key.subtype, remote, xid)
			delete(c.pending, key)
		}
	}
}

// RequestChannelConfig asks remote for its radio channel and address.
func (c *Controller) RequestChannelConfig(remote string) error {
	return c.request(remote, &wifiext.ChannelConfigRequestMsg{})
}

// ConfigChannel moves the radio of remote to ch. The datapath does not
// reply, so the access point and frequency usage are updated on send.
func (c *Controller) ConfigChannel(remote string, ch wifiext.ChannelInfo) error {
	if err := c.request(remote, &wifiext.ChannelSetMsg{Channel: ch}); err != nil {
		return err
	}

	c.aps[remote].SetChannelInfo(ch, netstatus.StandardForChannel(ch))
	c.status.UpdateFrequencyUsed(remote, ch.Frequency, ch.Width)
	return nil
}

// RequestChannelQuality asks remote how well it hears addr, or everyone when
// addr is wifiext.Broadcast.
func (c *Controller) RequestChannelQuality(remote string, addr wifiext.MAC) error {
	return c.request(remote, &wifiext.ChannelQualityRequestMsg{Address: addr})
}

// SetChannelQualityTrigger arms quality triggers on remote.
func (c *Controller) SetChannelQualityTrigger(remote string, triggers []wifiext.QualityReport) error {
	return c.request(remote, &wifiext.ChannelQualityTriggerSetMsg{Triggers: triggers})
}

// RequestAssocStatus asks remote for its stations. It also arms association
// change notifications on remote.
func (c *Controller) RequestAssocStatus(remote string) error {
	return c.request(remote, &wifiext.AssocStatusRequestMsg{})
}

// DisassocStation removes sta from remote.
func (c *Controller) DisassocStation(remote string, sta wifiext.MAC) error {
	return c.request(remote, &wifiext.DisassocConfigMsg{Station: sta})
}

// AssocStation admits sta on remote with the management frame it originally
// associated with.
func (c *Controller) AssocStation(remote string, sta wifiext.MAC, frame []byte) error {
	return c.request(remote, &wifiext.AssocConfigMsg{Station: sta, Data: frame})
}

// Handoff moves sta from one access point to another. sta is disassociated
// from `from` and, once its management frame comes back, admitted on `to`.
func (c *Controller) Handoff(sta wifiext.MAC, from, to string) error {
	if from == to {
		return fmt.Errorf("station %s is already on %s", sta, to)
	}
	if _, ok := c.aps[to]; !ok {
		return fmt.Errorf("%w %s", ErrUnknownAP, to)
	}

	if err := c.DisassocStation(from, sta); err != nil {
		return err
	}

	c.handoffs[sta] = to
	klog.Infof("handing off station %s from %s to %s", sta, from, to)
	return nil
}
