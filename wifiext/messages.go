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

package wifiext

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Message is one decoded wifi experimenter message. The set of implementations
// is closed: exactly one pointer type per Subtype.
type Message interface {
	fmt.Stringer

	Subtype() Subtype
	GetXid() uint32
	SetXid(xid uint32)

	bodyLen() int
	packBody(b []byte)
	unpackBody(b []byte) error
}

// Header holds the fields shared by every message. The OpenFlow version,
// type, length, vendor and subtype are derived when packing.
type Header struct {
	Xid uint32
}

func (h *Header) GetXid() uint32 {
	return h.Xid
}

func (h *Header) SetXid(xid uint32) {
	h.Xid = xid
}

// newMessage returns an empty message for subtype s.
func newMessage(s Subtype) Message {
	switch s {
	case ChannelConfigRequest:
		return new(ChannelConfigRequestMsg)
	case ChannelConfigReply:
		return new(ChannelConfigReplyMsg)
	case ChannelSet:
		return new(ChannelSetMsg)
	case ChannelQualityRequest:
		return new(ChannelQualityRequestMsg)
	case ChannelQualityReply:
		return new(ChannelQualityReplyMsg)
	case ChannelQualityTriggerSet:
		return new(ChannelQualityTriggerSetMsg)
	case ChannelQualityTriggered:
		return new(ChannelQualityTriggeredMsg)
	case AssocStatusRequest:
		return new(AssocStatusRequestMsg)
	case AssocStatusReply:
		return new(AssocStatusReplyMsg)
	case AssocTriggered:
		return new(AssocTriggeredMsg)
	case DisassocTriggered:
		return new(DisassocTriggeredMsg)
	case DisassocConfig:
		return new(DisassocConfigMsg)
	case DisassocConfigReply:
		return new(DisassocConfigReplyMsg)
	case AssocConfig:
		return new(AssocConfigMsg)
	}
	return nil
}

/*****************************************************/
/* empty bodies                                      */
/*****************************************************/

// ChannelConfigRequestMsg asks a datapath for its current channel and
// radio hardware address.
type ChannelConfigRequestMsg struct {
	Header
}

func (m *ChannelConfigRequestMsg) Subtype() Subtype { return ChannelConfigRequest }
func (m *ChannelConfigRequestMsg) bodyLen() int     { return 0 }
func (m *ChannelConfigRequestMsg) packBody([]byte)  {}

func (m *ChannelConfigRequestMsg) unpackBody(b []byte) error {
	return expectLen(ChannelConfigRequest, b, 0)
}

func (m *ChannelConfigRequestMsg) String() string {
	return fmt.Sprintf("%s{xid=%d}", ChannelConfigRequest, m.Xid)
}

// AssocStatusRequestMsg asks a datapath for its associated stations and arms
// association change notifications.
type AssocStatusRequestMsg struct {
	Header
}

func (m *AssocStatusRequestMsg) Subtype() Subtype { return AssocStatusRequest }
func (m *AssocStatusRequestMsg) bodyLen() int     { return 0 }
func (m *AssocStatusRequestMsg) packBody([]byte)  {}

func (m *AssocStatusRequestMsg) unpackBody(b []byte) error {
	return expectLen(AssocStatusRequest, b, 0)
}

func (m *AssocStatusRequestMsg) String() string {
	return fmt.Sprintf("%s{xid=%d}", AssocStatusRequest, m.Xid)
}

/*****************************************************/
/* channel                                           */
/*****************************************************/

func packChannel(b []byte, ch ChannelInfo, addr MAC) {
	binary.BigEndian.PutUint16(b[0:], ch.Frequency)
	binary.BigEndian.PutUint16(b[2:], ch.Width)
	b[4] = ch.Number
	copy(b[8:14], addr[:])
}

func unpackChannel(s Subtype, b []byte) (ch ChannelInfo, addr MAC, err error) {
	if err = expectLen(s, b, ChannelHeaderLen-ExtHeaderLen); err != nil {
		return
	}
	ch.Frequency = binary.BigEndian.Uint16(b[0:])
	ch.Width = binary.BigEndian.Uint16(b[2:])
	ch.Number = b[4]
	copy(addr[:], b[8:14])
	return
}

// ChannelConfigReplyMsg reports the channel a datapath's radio operates on
// together with the radio's own hardware address.
type ChannelConfigReplyMsg struct {
	Header
	Channel ChannelInfo
	Address MAC
}

func (m *ChannelConfigReplyMsg) Subtype() Subtype  { return ChannelConfigReply }
func (m *ChannelConfigReplyMsg) bodyLen() int      { return ChannelHeaderLen - ExtHeaderLen }
func (m *ChannelConfigReplyMsg) packBody(b []byte) { packChannel(b, m.Channel, m.Address) }

func (m *ChannelConfigReplyMsg) unpackBody(b []byte) (err error) {
	m.Channel, m.Address, err = unpackChannel(ChannelConfigReply, b)
	return err
}

func (m *ChannelConfigReplyMsg) String() string {
	return fmt.Sprintf("%s{xid=%d reply channel configure, %s, mac=%s}",
		ChannelConfigReply, m.Xid, m.Channel, m.Address)
}

// ChannelSetMsg moves a datapath's radio to another channel. Address is
// carried on the wire but not interpreted by the datapath.
type ChannelSetMsg struct {
	Header
	Channel ChannelInfo
	Address MAC
}

func (m *ChannelSetMsg) Subtype() Subtype  { return ChannelSet }
func (m *ChannelSetMsg) bodyLen() int      { return ChannelHeaderLen - ExtHeaderLen }
func (m *ChannelSetMsg) packBody(b []byte) { packChannel(b, m.Channel, m.Address) }

func (m *ChannelSetMsg) unpackBody(b []byte) (err error) {
	m.Channel, m.Address, err = unpackChannel(ChannelSet, b)
	return err
}

func (m *ChannelSetMsg) String() string {
	return fmt.Sprintf("%s{xid=%d set channel configure, %s}", ChannelSet, m.Xid, m.Channel)
}

/*****************************************************/
/* channel quality                                   */
/*****************************************************/

// ChannelQualityRequestMsg asks for the quality record of one transmitter,
// or of every transmitter when Address is Broadcast.
type ChannelQualityRequestMsg struct {
	Header
	Address MAC
}

func (m *ChannelQualityRequestMsg) Subtype() Subtype { return ChannelQualityRequest }

func (m *ChannelQualityRequestMsg) bodyLen() int {
	return QualityRequestLen - ExtHeaderLen
}

func (m *ChannelQualityRequestMsg) packBody(b []byte) {
	copy(b[0:6], m.Address[:])
}

func (m *ChannelQualityRequestMsg) unpackBody(b []byte) error {
	if err := expectLen(ChannelQualityRequest, b, QualityRequestLen-ExtHeaderLen); err != nil {
		return err
	}
	copy(m.Address[:], b[0:6])
	return nil
}

func (m *ChannelQualityRequestMsg) String() string {
	return fmt.Sprintf("%s{xid=%d mac=%s}", ChannelQualityRequest, m.Xid, m.Address)
}

type qualityList []QualityReport

func (l qualityList) bodyLen() int {
	return ListHeaderLen - ExtHeaderLen + len(l)*QualityReportLen
}

func (l qualityList) packBody(b []byte) {
	binary.BigEndian.PutUint32(b[0:], uint32(len(l)))
	off := ListHeaderLen - ExtHeaderLen
	for _, r := range l {
		copy(b[off:off+6], r.Address[:])
		binary.BigEndian.PutUint64(b[off+8:], r.Packets)
		binary.BigEndian.PutUint64(b[off+16:], math.Float64bits(r.RxPowerAvg))
		binary.BigEndian.PutUint64(b[off+24:], math.Float64bits(r.RxPowerStd))
		off += QualityReportLen
	}
}

func unpackQualityList(s Subtype, b []byte) (qualityList, error) {
	num, entries, err := unpackListHeader(s, b, QualityReportLen)
	if err != nil || num == 0 {
		return nil, err
	}
	l := make(qualityList, num)
	for i := range l {
		e := entries[i*QualityReportLen : (i+1)*QualityReportLen]
		copy(l[i].Address[:], e[0:6])
		l[i].Packets = binary.BigEndian.Uint64(e[8:])
		l[i].RxPowerAvg = math.Float64frombits(binary.BigEndian.Uint64(e[16:]))
		l[i].RxPowerStd = math.Float64frombits(binary.BigEndian.Uint64(e[24:]))
	}
	return l, nil
}

func (l qualityList) String() string {
	parts := make([]string, 0, len(l))
	for _, r := range l {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("num=%d reports=[%s]", len(l), strings.Join(parts, " "))
}

// ChannelQualityReplyMsg answers a ChannelQualityRequestMsg.
type ChannelQualityReplyMsg struct {
	Header
	Reports []QualityReport
}

func (m *ChannelQualityReplyMsg) Subtype() Subtype  { return ChannelQualityReply }
func (m *ChannelQualityReplyMsg) bodyLen() int      { return qualityList(m.Reports).bodyLen() }
func (m *ChannelQualityReplyMsg) packBody(b []byte) { qualityList(m.Reports).packBody(b) }

func (m *ChannelQualityReplyMsg) unpackBody(b []byte) (err error) {
	m.Reports, err = unpackQualityList(ChannelQualityReply, b)
	return err
}

func (m *ChannelQualityReplyMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", ChannelQualityReply, m.Xid, qualityList(m.Reports))
}

// ChannelQualityTriggerSetMsg arms one trigger per entry. Each entry's
// Packets, RxPowerAvg and RxPowerStd are thresholds, not measurements.
type ChannelQualityTriggerSetMsg struct {
	Header
	Triggers []QualityReport
}

func (m *ChannelQualityTriggerSetMsg) Subtype() Subtype  { return ChannelQualityTriggerSet }
func (m *ChannelQualityTriggerSetMsg) bodyLen() int      { return qualityList(m.Triggers).bodyLen() }
func (m *ChannelQualityTriggerSetMsg) packBody(b []byte) { qualityList(m.Triggers).packBody(b) }

func (m *ChannelQualityTriggerSetMsg) unpackBody(b []byte) (err error) {
	m.Triggers, err = unpackQualityList(ChannelQualityTriggerSet, b)
	return err
}

func (m *ChannelQualityTriggerSetMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", ChannelQualityTriggerSet, m.Xid, qualityList(m.Triggers))
}

// ChannelQualityTriggeredMsg is sent unsolicited when an armed trigger fires.
type ChannelQualityTriggeredMsg struct {
	Header
	Reports []QualityReport
}

func (m *ChannelQualityTriggeredMsg) Subtype() Subtype  { return ChannelQualityTriggered }
func (m *ChannelQualityTriggeredMsg) bodyLen() int      { return qualityList(m.Reports).bodyLen() }
func (m *ChannelQualityTriggeredMsg) packBody(b []byte) { qualityList(m.Reports).packBody(b) }

func (m *ChannelQualityTriggeredMsg) unpackBody(b []byte) (err error) {
	m.Reports, err = unpackQualityList(ChannelQualityTriggered, b)
	return err
}

func (m *ChannelQualityTriggeredMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", ChannelQualityTriggered, m.Xid, qualityList(m.Reports))
}

/*****************************************************/
/* association status                                */
/*****************************************************/

type stationList []MAC

func (l stationList) bodyLen() int {
	return ListHeaderLen - ExtHeaderLen + len(l)*StationEntryLen
}

func (l stationList) packBody(b []byte) {
	binary.BigEndian.PutUint32(b[0:], uint32(len(l)))
	off := ListHeaderLen - ExtHeaderLen
	for _, sta := range l {
		copy(b[off:off+6], sta[:])
		off += StationEntryLen
	}
}

func unpackStationList(s Subtype, b []byte) (stationList, error) {
	num, entries, err := unpackListHeader(s, b, StationEntryLen)
	if err != nil || num == 0 {
		return nil, err
	}
	l := make(stationList, num)
	for i := range l {
		copy(l[i][:], entries[i*StationEntryLen:i*StationEntryLen+6])
	}
	return l, nil
}

func (l stationList) String() string {
	parts := make([]string, 0, len(l))
	for _, sta := range l {
		parts = append(parts, sta.String())
	}
	return fmt.Sprintf("num=%d stations=[%s]", len(l), strings.Join(parts, " "))
}

// AssocStatusReplyMsg lists the stations associated with a datapath.
type AssocStatusReplyMsg struct {
	Header
	Stations []MAC
}

func (m *AssocStatusReplyMsg) Subtype() Subtype  { return AssocStatusReply }
func (m *AssocStatusReplyMsg) bodyLen() int      { return stationList(m.Stations).bodyLen() }
func (m *AssocStatusReplyMsg) packBody(b []byte) { stationList(m.Stations).packBody(b) }

func (m *AssocStatusReplyMsg) unpackBody(b []byte) (err error) {
	m.Stations, err = unpackStationList(AssocStatusReply, b)
	return err
}

func (m *AssocStatusReplyMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", AssocStatusReply, m.Xid, stationList(m.Stations))
}

// AssocTriggeredMsg reports stations that have just associated.
type AssocTriggeredMsg struct {
	Header
	Stations []MAC
}

func (m *AssocTriggeredMsg) Subtype() Subtype  { return AssocTriggered }
func (m *AssocTriggeredMsg) bodyLen() int      { return stationList(m.Stations).bodyLen() }
func (m *AssocTriggeredMsg) packBody(b []byte) { stationList(m.Stations).packBody(b) }

func (m *AssocTriggeredMsg) unpackBody(b []byte) (err error) {
	m.Stations, err = unpackStationList(AssocTriggered, b)
	return err
}

func (m *AssocTriggeredMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", AssocTriggered, m.Xid, stationList(m.Stations))
}

// DisassocTriggeredMsg reports stations that have just left.
type DisassocTriggeredMsg struct {
	Header
	Stations []MAC
}

func (m *DisassocTriggeredMsg) Subtype() Subtype  { return DisassocTriggered }
func (m *DisassocTriggeredMsg) bodyLen() int      { return stationList(m.Stations).bodyLen() }
func (m *DisassocTriggeredMsg) packBody(b []byte) { stationList(m.Stations).packBody(b) }

func (m *DisassocTriggeredMsg) unpackBody(b []byte) (err error) {
	m.Stations, err = unpackStationList(DisassocTriggered, b)
	return err
}

func (m *DisassocTriggeredMsg) String() string {
	return fmt.Sprintf("%s{xid=%d %s}", DisassocTriggered, m.Xid, stationList(m.Stations))
}

/*****************************************************/
/* association config                                */
/*****************************************************/

func assocBodyLen(data []byte) int {
	return AssocConfigLen - ExtHeaderLen + len(data)
}

func packAssoc(b []byte, sta MAC, data []byte) {
	binary.BigEndian.PutUint32(b[0:], uint32(len(data)))
	copy(b[8:14], sta[:])
	copy(b[AssocConfigLen-ExtHeaderLen:], data)
}

// unpackAssoc copies the opaque data out of b so the message never aliases
// the receive buffer.
func unpackAssoc(s Subtype, b []byte) (sta MAC, data []byte, err error) {
	fixed := AssocConfigLen - ExtHeaderLen
	if len(b) < fixed {
		err = badLength(s, "body is %d bytes, need at least %d", len(b), fixed)
		return
	}
	n := uint64(binary.BigEndian.Uint32(b[0:]))
	if n != uint64(len(b)-fixed) {
		err = badLength(s, "declared %d data bytes, %d present", n, len(b)-fixed)
		return
	}
	copy(sta[:], b[8:14])
	if n > 0 {
		data = make([]byte, n)
		copy(data, b[fixed:])
	}
	return
}

func describeAssoc(s Subtype, xid uint32, sta MAC, data []byte) string {
	return fmt.Sprintf("%s{xid=%d sta=%s len=%d}", s, xid, sta, len(data))
}

// DisassocConfigMsg forces a datapath to disassociate Station.
type DisassocConfigMsg struct {
	Header
	Station MAC
	Data    []byte
}

func (m *DisassocConfigMsg) Subtype() Subtype  { return DisassocConfig }
func (m *DisassocConfigMsg) bodyLen() int      { return assocBodyLen(m.Data) }
func (m *DisassocConfigMsg) packBody(b []byte) { packAssoc(b, m.Station, m.Data) }

func (m *DisassocConfigMsg) unpackBody(b []byte) (err error) {
	m.Station, m.Data, err = unpackAssoc(DisassocConfig, b)
	return err
}

func (m *DisassocConfigMsg) String() string {
	return describeAssoc(DisassocConfig, m.Xid, m.Station, m.Data)
}

// DisassocConfigReplyMsg returns the removed station's saved management frame
// so it can be handed to another access point.
type DisassocConfigReplyMsg struct {
	Header
	Station MAC
	Data    []byte
}

func (m *DisassocConfigReplyMsg) Subtype() Subtype  { return DisassocConfigReply }
func (m *DisassocConfigReplyMsg) bodyLen() int      { return assocBodyLen(m.Data) }
func (m *DisassocConfigReplyMsg) packBody(b []byte) { packAssoc(b, m.Station, m.Data) }

func (m *DisassocConfigReplyMsg) unpackBody(b []byte) (err error) {
	m.Station, m.Data, err = unpackAssoc(DisassocConfigReply, b)
	return err
}

func (m *DisassocConfigReplyMsg) String() string {
	return describeAssoc(DisassocConfigReply, m.Xid, m.Station, m.Data)
}

// AssocConfigMsg admits Station at a datapath. Data is the 802.11 management
// frame the station originally associated with, opaque to the codec.
type AssocConfigMsg struct {
	Header
	Station MAC
	Data    []byte
}

func (m *AssocConfigMsg) Subtype() Subtype  { return AssocConfig }
func (m *AssocConfigMsg) bodyLen() int      { return assocBodyLen(m.Data) }
func (m *AssocConfigMsg) packBody(b []byte) { packAssoc(b, m.Station, m.Data) }

func (m *AssocConfigMsg) unpackBody(b []byte) (err error) {
	m.Station, m.Data, err = unpackAssoc(AssocConfig, b)
	return err
}

func (m *AssocConfigMsg) String() string {
	return describeAssoc(AssocConfig, m.Xid, m.Station, m.Data)
}

/*****************************************************/
/* helpers                                           */
/*****************************************************/

func expectLen(s Subtype, b []byte, want int) error {
	if len(b) != want {
		return badLength(s, "body is %d bytes, want %d", len(b), want)
	}
	return nil
}

// unpackListHeader validates the count field of a list body against the bytes
// that follow it and returns the entry area.
func unpackListHeader(s Subtype, b []byte, entryLen int) (int, []byte, error) {
	fixed := ListHeaderLen - ExtHeaderLen
	if len(b) < fixed {
		return 0, nil, badLength(s, "body is %d bytes, need at least %d", len(b), fixed)
	}
	num := uint64(binary.BigEndian.Uint32(b[0:]))
	entries := b[fixed:]
	if num*uint64(entryLen) != uint64(len(entries)) {
		return 0, nil, badLength(s, "declared %d entries (%d bytes), %d bytes present",
			num, num*uint64(entryLen), len(entries))
	}
	return int(num), entries, nil
}

func badLength(s Subtype, format string, args ...interface{}) error {
	return errors.Wrapf(ErrBadLength, "%s: %s", s, fmt.Sprintf(format, args...))
}
