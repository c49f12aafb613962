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

// ErrUnsupportedSubtype is returned for experimenter messages a controller
// never expects to receive, such as requests.
var ErrUnsupportedSubtype = errors.New("unsupported experimenter subtype")

// HandleExperimenter applies a wifi experimenter message received from the
// access point connected from remote.
func (c *Controller) HandleExperimenter(remote string, msg wifiext.Message) error {
	klog.V(2).Infof("received %s from %s", msg, remote)
	c.completeRequest(remote, msg)

	switch m := msg.(type) {
	case *wifiext.ChannelConfigReplyMsg:
		c.handleChannelConfigReply(remote, m)

	case *wifiext.ChannelQualityReplyMsg:
		c.handleQualityReports(remote, m.Reports)

	case *wifiext.ChannelQualityTriggeredMsg:
		klog.Infof("quality trigger fired on %s for %d addresses", remote, len(m.Reports))
		c.handleQualityReports(remote, m.Reports)

	case *wifiext.AssocStatusReplyMsg:
		c.status.SetAssociations(remote, m.Stations)

	case *wifiext.AssocTriggeredMsg:
		for _, sta := range m.Stations {
			c.handleAssociated(remote, sta)
		}

	case *wifiext.DisassocTriggeredMsg:
		for _, sta := range m.Stations {
			if err := c.status.RemoveAssociation(remote, sta); err != nil {
				klog.Errorf("disassociation of %s from %s: %v", sta, remote, err)
			}
		}

	case *wifiext.DisassocConfigReplyMsg:
		return c.handleDisassocConfigReply(remote, m)

	default:
		return fmt.Errorf("%w %s from %s", ErrUnsupportedSubtype, msg.Subtype(), remote)
	}
	return nil
}

func (c *Controller) handleChannelConfigReply(remote string, m *wifiext.ChannelConfigReplyMsg) {
	ap, ok := c.aps[remote]
	if !ok {
		ap = netstatus.NewWifiAp(remote)
		c.aps[remote] = ap
	}

	if old, ok := ap.HardwareAddr(); ok && old != m.Address {
		delete(c.apsByHwAddr, old)
	}
	ap.SetHardwareAddr(m.Address)
	ap.SetChannelInfo(m.Channel, netstatus.StandardForChannel(m.Channel))
	c.apsByHwAddr[m.Address] = remote
	c.status.UpdateFrequencyUsed(remote, m.Channel.Frequency, m.Channel.Width)

	// reports filed before this address was known to be an access point
	for observer, report := range c.status.RemoveStation(m.Address) {
		c.status.UpdateApsInterference(observer, remote, report)
	}

	klog.Infof("access point %s", ap)
}

// handleQualityReports files every report observed by remote either as
// interference from another access point or as the quality of a station.
func (c *Controller) handleQualityReports(remote string, reports []wifiext.QualityReport) {
	for _, report := range reports {
		if observed, ok := c.apsByHwAddr[report.Address]; ok {
			c.status.UpdateApsInterference(remote, observed, report)
			continue
		}
		c.status.UpdateChannelQuality(remote, report)
	}
}

func (c *Controller) handleAssociated(remote string, sta wifiext.MAC) {
	if err := c.status.AddAssociation(remote, sta); err != nil {
		klog.Errorf("association of %s with %s: %v", sta, remote, err)
	}

	if target, ok := c.handoffs[sta]; ok && target == remote {
		delete(c.handoffs, sta)
		klog.Infof("handoff of station %s to %s completed", sta, remote)
	}
}

func (c *Controller) handleDisassocConfigReply(remote string, m *wifiext.DisassocConfigReplyMsg) error {
	if ap, ok := c.status.AssociatedAP(m.Station); ok && ap == remote {
		c.status.RemoveAssociation(remote, m.Station)
	}

	target, ok := c.handoffs[m.Station]
	if !ok {
		return nil
	}

	if err := c.AssocStation(target, m.Station, m.Data); err != nil {
		delete(c.handoffs, m.Station)
		return fmt.Errorf("error admitting %s on %s: %v", m.Station, target, err)
	}
	return nil
}

// PendingHandoff returns the access point sta is being handed off to.
func (c *Controller) PendingHandoff(sta wifiext.MAC) (string, bool) {
	target, ok := c.handoffs[sta]
	return target, ok
}
