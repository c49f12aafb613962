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

// Package datapath implements the access point side of the wifi experimenter
// extension: the per datapath device state, the handlers answering controller
// requests and the OpenFlow agent that connects a datapath to its controller.
package datapath

import (
	"sync"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

var (
	// ErrNoDevice reports a datapath without the radio or access point a
	// request needs.
	ErrNoDevice = errors.New("no wifi device attached to datapath")
	// ErrUnknownStation reports a trigger for an address with no quality record.
	ErrUnknownStation = errors.New("no quality record for address")
	// ErrUnsupported reports a subtype with no registered handler.
	ErrUnsupported = errors.New("unsupported experimenter subtype")
	// ErrBadFrame reports an association frame that is not a management
	// frame sent by the station being admitted.
	ErrBadFrame = errors.New("bad management frame")
)

// Radio is the wireless interface backing a datapath.
type Radio interface {
	HardwareAddr() wifiext.MAC
	Channel() (wifiext.ChannelInfo, error)
	SetChannel(ch wifiext.ChannelInfo) error
}

// AccessPoint is the MAC layer of the access point backing a datapath.
type AccessPoint interface {
	Stations() ([]wifiext.MAC, error)
	// ManagementFrame returns the frame saved when sta associated.
	ManagementFrame(sta wifiext.MAC) ([]byte, error)
	Disassociate(sta wifiext.MAC) error
	Associate(sta wifiext.MAC, frame []byte) error
}

// Sender queues a message on a control channel.
type Sender interface {
	Send(msg ofp13.OFMessage)
}

// Datapath is the wifi state of one OpenFlow datapath.
type Datapath struct {
	ID      uint64
	Radio   Radio
	AP      AccessPoint
	Quality *QualityTable

	mu         sync.Mutex
	sender     Sender
	assocArmed bool
	xid        uint32
}

func NewDatapath(id uint64, radio Radio, ap AccessPoint) *Datapath {
	return &Datapath{
		ID:      id,
		Radio:   radio,
		AP:      ap,
		Quality: NewQualityTable(),
	}
}

// SetSender sets the control channel unsolicited notifications go to. A nil
// sender drops notifications and disarms the association trigger.
func (dp *Datapath) SetSender(s Sender) {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	dp.sender = s
	if s == nil {
		dp.assocArmed = false
	}
}

// ArmAssocTrigger enables association change notifications.
func (dp *Datapath) ArmAssocTrigger() {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	dp.assocArmed = true
}

func (dp *Datapath) AssocTriggerArmed() bool {
	dp.mu.Lock()
	defer dp.mu.Unlock()

	return dp.assocArmed
}

// AssociationChanged is called by the access point whenever a station joins
// or leaves. Once armed, every change is reported to the controller.
func (dp *Datapath) AssociationChanged(sta wifiext.MAC, associated bool) {
	if !dp.AssocTriggerArmed() {
		return
	}

	if associated {
		dp.Notify(&wifiext.AssocTriggeredMsg{Stations: []wifiext.MAC{sta}})
	} else {
		dp.Notify(&wifiext.DisassocTriggeredMsg{Stations: []wifiext.MAC{sta}})
	}
}

// Notify sends an unsolicited message with a fresh transaction id.
func (dp *Datapath) Notify(msg wifiext.Message) {
	dp.mu.Lock()
	s := dp.sender
	dp.xid++
	msg.SetXid(dp.xid)
	dp.mu.Unlock()

	if s == nil {
		klog.V(2).Infof("datapath %016x: no controller connection, dropping %s", dp.ID, msg)
		return
	}

	klog.V(2).Infof("datapath %016x: sending %s", dp.ID, msg)
	s.Send(wifiext.NewFrame(msg))
}

func (dp *Datapath) radio() (Radio, error) {
	if dp.Radio == nil {
		return nil, errors.Wrapf(ErrNoDevice, "datapath %016x has no radio", dp.ID)
	}
	return dp.Radio, nil
}

func (dp *Datapath) accessPoint() (AccessPoint, error) {
	if dp.AP == nil {
		return nil, errors.Wrapf(ErrNoDevice, "datapath %016x has no access point", dp.ID)
	}
	return dp.AP, nil
}
