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
	"bytes"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

func reply(s Sender, request wifiext.Message, msg wifiext.Message) {
	msg.SetXid(request.GetXid())
	s.Send(wifiext.NewFrame(msg))
}

// HandleChannelConfigRequest answers with the radio's channel and address.
func HandleChannelConfigRequest(dp *Datapath, msg wifiext.Message, s Sender) error {
	radio, err := dp.radio()
	if err != nil {
		return err
	}

	ch, err := radio.Channel()
	if err != nil {
		return errors.Wrap(err, "error reading radio channel")
	}

	reply(s, msg, &wifiext.ChannelConfigReplyMsg{
		Channel: ch,
		Address: radio.HardwareAddr(),
	})
	return nil
}

// HandleChannelSet moves the radio to the requested channel. There is no reply.
func HandleChannelSet(dp *Datapath, msg wifiext.Message, s Sender) error {
	set := msg.(*wifiext.ChannelSetMsg)

	radio, err := dp.radio()
	if err != nil {
		return err
	}

	current, err := radio.Channel()
	if err == nil && current == set.Channel {
		klog.V(2).Infof("datapath %016x: already on %s", dp.ID, current)
		return nil
	}

	if err := radio.SetChannel(set.Channel); err != nil {
		return errors.Wrapf(err, "error setting %s", set.Channel)
	}

	klog.Infof("datapath %016x: radio moved to %s", dp.ID, set.Channel)
	return nil
}

// HandleChannelQualityRequest answers with every quality record when the
// request is addressed to Broadcast, otherwise with the matching record, if any.
func HandleChannelQualityRequest(dp *Datapath, msg wifiext.Message, s Sender) error {
	req := msg.(*wifiext.ChannelQualityRequestMsg)

	if _, err := dp.radio(); err != nil {
		return err
	}

	var reports []wifiext.QualityReport
	if req.Address.IsBroadcast() {
		reports = dp.Quality.Reports()
	} else if report, ok := dp.Quality.Report(req.Address); ok {
		reports = []wifiext.QualityReport{report}
	}
	if len(reports) == 0 {
		reports = nil
	}

	reply(s, msg, &wifiext.ChannelQualityReplyMsg{Reports: reports})
	return nil
}

// HandleChannelQualityTriggerSet arms quality triggers. Either all of them
// are armed or none is.
func HandleChannelQualityTriggerSet(dp *Datapath, msg wifiext.Message, s Sender) error {
	set := msg.(*wifiext.ChannelQualityTriggerSetMsg)

	if _, err := dp.radio(); err != nil {
		return err
	}

	if err := dp.Quality.SetTriggers(set.Triggers); err != nil {
		return err
	}

	klog.Infof("datapath %016x: armed %d quality triggers", dp.ID, len(set.Triggers))
	return nil
}

// HandleAssocStatusRequest answers with the associated stations and arms
// association change notifications.
func HandleAssocStatusRequest(dp *Datapath, msg wifiext.Message, s Sender) error {
	ap, err := dp.accessPoint()
	if err != nil {
		return err
	}

	stations, err := ap.Stations()
	if err != nil {
		return errors.Wrap(err, "error listing stations")
	}
	if len(stations) == 0 {
		stations = nil
	}

	dp.ArmAssocTrigger()
	reply(s, msg, &wifiext.AssocStatusReplyMsg{Stations: stations})
	return nil
}

// HandleDisassocConfig removes a station and answers with the management
// frame it associated with, so the controller can hand it to another AP.
func HandleDisassocConfig(dp *Datapath, msg wifiext.Message, s Sender) error {
	req := msg.(*wifiext.DisassocConfigMsg)

	ap, err := dp.accessPoint()
	if err != nil {
		return err
	}

	frame, err := ap.ManagementFrame(req.Station)
	if err != nil {
		return errors.Wrapf(err, "error reading management frame of %s", req.Station)
	}

	if err := ap.Disassociate(req.Station); err != nil {
		return errors.Wrapf(err, "error disassociating %s", req.Station)
	}

	if len(frame) == 0 {
		frame = nil
	}
	reply(s, msg, &wifiext.DisassocConfigReplyMsg{Station: req.Station, Data: frame})
	return nil
}

// HandleAssocConfig admits a station. A non-empty frame must be an 802.11
// management frame transmitted by that station. Success is reported by the
// association trigger, not by a reply.
func HandleAssocConfig(dp *Datapath, msg wifiext.Message, s Sender) error {
	req := msg.(*wifiext.AssocConfigMsg)

	ap, err := dp.accessPoint()
	if err != nil {
		return err
	}

	if err := validateManagementFrame(req.Station, req.Data); err != nil {
		return err
	}

	if err := ap.Associate(req.Station, req.Data); err != nil {
		return errors.Wrapf(err, "error associating %s", req.Station)
	}

	klog.Infof("datapath %016x: admitted station %s", dp.ID, req.Station)
	return nil
}

func validateManagementFrame(sta wifiext.MAC, frame []byte) error {
	if len(frame) == 0 {
		return nil
	}

	var dot11 layers.Dot11
	if err := dot11.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
		return errors.Wrapf(ErrBadFrame, "%v", err)
	}

	if dot11.Type.MainType() != layers.Dot11TypeMgmt {
		return errors.Wrapf(ErrBadFrame, "frame type %s is not a management frame", dot11.Type)
	}

	if !bytes.Equal(dot11.Address2, sta[:]) {
		return errors.Wrapf(ErrBadFrame, "frame transmitted by %s, not %s", dot11.Address2, sta)
	}
	return nil
}
