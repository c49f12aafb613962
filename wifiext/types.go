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

// Package wifiext implements the Wi-Fi experimenter extension to OpenFlow 1.3:
// channel configuration, channel quality telemetry and station association
// control exchanged between a controller and access point datapaths.
package wifiext

import (
	"fmt"
	"net"
)

// VendorID is the experimenter id carried by every message of this extension.
const VendorID uint32 = 0x80000001

// Subtype identifies the body layout of a wifi experimenter message.
// The ordinal values are part of the wire protocol and must never change.
type Subtype uint32

const (
	ChannelConfigRequest Subtype = iota
	ChannelConfigReply
	ChannelSet
	ChannelQualityRequest
	ChannelQualityReply
	ChannelQualityTriggerSet
	ChannelQualityTriggered
	AssocStatusRequest
	AssocStatusReply
	AssocTriggered
	DisassocTriggered
	DisassocConfig
	DisassocConfigReply
	AssocConfig

	numSubtypes
)

var subtypeNames = [...]string{
	ChannelConfigRequest:     "CHANNEL_CONFIG_REQUEST",
	ChannelConfigReply:       "CHANNEL_CONFIG_REPLY",
	ChannelSet:               "CHANNEL_SET",
	ChannelQualityRequest:    "CHANNEL_QUALITY_REQUEST",
	ChannelQualityReply:      "CHANNEL_QUALITY_REPLY",
	ChannelQualityTriggerSet: "CHANNEL_QUALITY_TRIGGER_SET",
	ChannelQualityTriggered:  "CHANNEL_QUALITY_TRIGGERED",
	AssocStatusRequest:       "ASSOC_STATUS_REQUEST",
	AssocStatusReply:         "ASSOC_STATUS_REPLY",
	AssocTriggered:           "ASSOC_TRIGGERED",
	DisassocTriggered:        "DISASSOC_TRIGGERED",
	DisassocConfig:           "DISASSOC_CONFIG",
	DisassocConfigReply:      "DISASSOC_CONFIG_REPLY",
	AssocConfig:              "ASSOC_CONFIG",
}

func (s Subtype) Valid() bool {
	return s < numSubtypes
}

func (s Subtype) String() string {
	if !s.Valid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint32(s))
	}
	return subtypeNames[s]
}

// Encoded sizes, in bytes, of the fixed parts of each record.
const (
	ofpHeaderLen = 8

	ExtHeaderLen      = 16
	ChannelHeaderLen  = 32
	QualityRequestLen = 24
	QualityReportLen  = 32
	ListHeaderLen     = 24
	StationEntryLen   = 8
	AssocConfigLen    = 32

	// maxMessageLen is bounded by the 16 bit length of the OpenFlow header.
	maxMessageLen = 0xffff
)

// MAC is a 48 bit hardware address. Unlike net.HardwareAddr it is
// comparable and can be used as a map key.
type MAC [6]byte

// Broadcast addresses every station known to a datapath.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	return MACFromHardwareAddr(hw)
}

func MACFromHardwareAddr(hw net.HardwareAddr) (MAC, error) {
	var m MAC
	if len(hw) != len(m) {
		return m, fmt.Errorf("hardware address %q is not a 48 bit address", hw.String())
	}
	copy(m[:], hw)
	return m, nil
}

func (m MAC) IsBroadcast() bool {
	return m == Broadcast
}

func (m MAC) HardwareAddr() net.HardwareAddr {
	return net.HardwareAddr(m[:])
}

func (m MAC) String() string {
	return m.HardwareAddr().String()
}

// ChannelInfo describes the operating channel of a radio.
type ChannelInfo struct {
	Number    uint8
	Frequency uint16 // MHz
	Width     uint16 // MHz
}

func (c ChannelInfo) String() string {
	return fmt.Sprintf("channel=%d frequency=%d width=%d", c.Number, c.Frequency, c.Width)
}

// QualityReport aggregates the signal observed from one transmitter.
// The same record shape carries trigger thresholds in a trigger-set message.
type QualityReport struct {
	Address    MAC
	Packets    uint64
	RxPowerAvg float64
	RxPowerStd float64
}

func (q QualityReport) String() string {
	return fmt.Sprintf("{%s packets=%d rxPowerAvg=%.2f rxPowerStd=%.2f}",
		q.Address, q.Packets, q.RxPowerAvg, q.RxPowerStd)
}
