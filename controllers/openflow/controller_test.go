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
	"sync"
	"testing"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/k-vswitch/ofwifi/connection"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	remoteA = "10.0.0.1:40000"
	remoteB = "10.0.0.2:40000"
)

var (
	hwA  = wifiext.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	hwB  = wifiext.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x00}
	sta1 = wifiext.MAC{0x02, 0, 0, 0, 0, 0x01}
	sta2 = wifiext.MAC{0x02, 0, 0, 0, 0, 0x02}

	channel13 = wifiext.ChannelInfo{Number: 13, Frequency: 2472, Width: 20}
	channel1  = wifiext.ChannelInfo{Number: 1, Frequency: 2412, Width: 20}
)

type fakeConnManager struct {
	events chan connection.Event

	mu   sync.Mutex
	sent map[string][]ofp13.OFMessage
}

func newFakeConnManager() *fakeConnManager {
	return &fakeConnManager{
		events: make(chan connection.Event),
		sent:   make(map[string][]ofp13.OFMessage),
	}
}

func (f *fakeConnManager) Events() <-chan connection.Event {
	return f.events
}

func (f *fakeConnManager) Send(remote string, msg ofp13.OFMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if remote == "" {
		return errors.New("no remote")
	}
	f.sent[remote] = append(f.sent[remote], msg)
	return nil
}

// take returns and forgets everything sent to remote.
func (f *fakeConnManager) take(remote string) []ofp13.OFMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.sent[remote]
	delete(f.sent, remote)
	return msgs
}

func (f *fakeConnManager) takeWifi(t *testing.T, remote string) []wifiext.Message {
	var msgs []wifiext.Message
	for _, msg := range f.take(remote) {
		frame, ok := msg.(*wifiext.Frame)
		require.True(t, ok, "expected wifi message, got %T", msg)
		msgs = append(msgs, frame.Msg)
	}
	return msgs
}

func event(remote string, msg ofp13.OFMessage) connection.Event {
	return connection.Event{Type: connection.EventMessage, Remote: remote, Msg: msg}
}

// connectAP runs the handshake for remote and answers the channel config
// request with hwAddr on ch.
func connectAP(t *testing.T, c *Controller, f *fakeConnManager, remote string, dpid uint64, hwAddr wifiext.MAC, ch wifiext.ChannelInfo) {
	c.HandleEvent(connection.Event{Type: connection.EventConnected, Remote: remote})
	c.HandleEvent(event(remote, &ofp13.OfpHeader{Version: 4, Type: ofp13.OFPT_HELLO, Length: 8}))

	features := connection.NewFeaturesReply(1, dpid)
	c.HandleEvent(event(remote, features.OfpSwitchFeatures))

	xid, ok := c.Pending(remote, wifiext.ChannelConfigReply)
	require.True(t, ok)
	f.take(remote)

	require.NoError(t, c.HandleExperimenter(remote, &wifiext.ChannelConfigReplyMsg{
		Header:  wifiext.Header{Xid: xid},
		Channel: ch,
		Address: hwAddr,
	}))
}

func Test_Handshake(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)

	c.HandleEvent(connection.Event{Type: connection.EventConnected, Remote: remoteA})
	sent := f.take(remoteA)
	require.Len(t, sent, 1)
	hello, ok := sent[0].(*ofp13.OfpHello)
	require.True(t, ok)
	assert.Equal(t, uint8(ofp13.OFPT_HELLO), hello.Header.Type)

	c.HandleEvent(event(remoteA, &ofp13.OfpHeader{Version: 4, Type: ofp13.OFPT_HELLO, Length: 8}))
	sent = f.take(remoteA)
	require.Len(t, sent, 1)
	assert.Equal(t, uint8(ofp13.OFPT_FEATURES_REQUEST), sent[0].(*ofp13.OfpHeader).Type)

	c.HandleEvent(event(remoteA, &ofp13.OfpHeader{Version: 4, Type: ofp13.OFPT_ECHO_REQUEST, Length: 8, Xid: 99}))
	sent = f.take(remoteA)
	require.Len(t, sent, 1)
	echo := sent[0].(*ofp13.OfpHeader)
	assert.Equal(t, uint8(ofp13.OFPT_ECHO_REPLY), echo.Type)
	assert.Equal(t, uint32(99), echo.Xid)

	features := connection.NewFeaturesReply(2, 0x42)
	c.HandleEvent(event(remoteA, features.OfpSwitchFeatures))

	dpid, ok := c.DatapathID(remoteA)
	require.True(t, ok)
	assert.Equal(t, uint64(0x42), dpid)
	assert.Equal(t, []string{remoteA}, c.APs())

	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	request, ok := msgs[0].(*wifiext.ChannelConfigRequestMsg)
	require.True(t, ok)

	xid, ok := c.Pending(remoteA, wifiext.ChannelConfigReply)
	require.True(t, ok)
	assert.Equal(t, request.Xid, xid)
}

func Test_ChannelConfigReply(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	ap, ok := c.AP(remoteA)
	require.True(t, ok)
	assert.Equal(t, channel13, ap.Channel())
	hwAddr, ok := ap.HardwareAddr()
	require.True(t, ok)
	assert.Equal(t, hwA, hwAddr)

	assert.Equal(t, []string{remoteA}, c.Status().FrequencyUsers(2472, 20))
	remote, ok := c.APByHardwareAddr(hwA)
	require.True(t, ok)
	assert.Equal(t, remoteA, remote)

	_, ok = c.Pending(remoteA, wifiext.ChannelConfigReply)
	assert.False(t, ok)

	// an unsolicited reply with a new address replaces the old mapping
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.ChannelConfigReplyMsg{Channel: channel1, Address: hwB}))
	_, ok = c.APByHardwareAddr(hwA)
	assert.False(t, ok)
	assert.Equal(t, []string{remoteA}, c.Status().FrequencyUsers(2412, 20))
	assert.Empty(t, c.Status().FrequencyUsers(2472, 20))
}

func Test_QualityClassification(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)
	connectAP(t, c, f, remoteB, 2, hwB, channel13)

	testcases := []struct {
		name string
		msg  wifiext.Message
	}{
		{
			name: "quality reply",
			msg: &wifiext.ChannelQualityReplyMsg{Reports: []wifiext.QualityReport{
				{Address: hwB, Packets: 3, RxPowerAvg: -60},
				{Address: sta1, Packets: 5, RxPowerAvg: -40},
			}},
		},
		{
			name: "same pairs again",
			msg: &wifiext.ChannelQualityReplyMsg{Reports: []wifiext.QualityReport{
				{Address: hwB, Packets: 4, RxPowerAvg: -61},
				{Address: sta1, Packets: 6, RxPowerAvg: -41},
			}},
		},
		{
			name: "triggered",
			msg: &wifiext.ChannelQualityTriggeredMsg{Reports: []wifiext.QualityReport{
				{Address: sta1, Packets: 7, RxPowerAvg: -42},
			}},
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			require.NoError(t, c.HandleExperimenter(remoteA, testcase.msg))

			interference := c.Status().ApsInterference()
			require.Len(t, interference, 1)
			require.Len(t, interference[remoteA], 1)
			assert.Equal(t, hwB, interference[remoteA][remoteB].Address)

			quality := c.Status().ChannelQuality()
			require.Len(t, quality, 1)
			require.Len(t, quality[sta1], 1)
		})
	}

	assert.Equal(t, uint64(4), c.Status().ApsInterference()[remoteA][remoteB].Packets)
	assert.Equal(t, uint64(7), c.Status().StationQuality(sta1)[remoteA].Packets)
}

func Test_ReportsBeforeChannelConfigAreReclassified(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	// remoteB's radio is heard before its channel config reply arrives
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.ChannelQualityReplyMsg{Reports: []wifiext.QualityReport{
		{Address: hwB, Packets: 3, RxPowerAvg: -60},
		{Address: sta1, Packets: 5, RxPowerAvg: -40},
	}}))
	require.Len(t, c.Status().StationQuality(hwB), 1)

	connectAP(t, c, f, remoteB, 2, hwB, channel13)

	assert.Empty(t, c.Status().StationQuality(hwB))
	interference := c.Status().ApsInterference()
	assert.Equal(t, wifiext.QualityReport{Address: hwB, Packets: 3, RxPowerAvg: -60}, interference[remoteA][remoteB])

	quality := c.Status().ChannelQuality()
	assert.Len(t, quality, 1)
	assert.Contains(t, quality, sta1)
}

func Test_AssociationTracking(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	require.NoError(t, c.RequestAssocStatus(remoteA))
	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	require.IsType(t, &wifiext.AssocStatusRequestMsg{}, msgs[0])

	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocStatusReplyMsg{
		Header:   wifiext.Header{Xid: msgs[0].GetXid()},
		Stations: []wifiext.MAC{sta1},
	}))
	assert.Equal(t, []wifiext.MAC{sta1}, c.Status().Stations(remoteA))

	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocTriggeredMsg{Stations: []wifiext.MAC{sta2}}))
	assert.Equal(t, []wifiext.MAC{sta1, sta2}, c.Status().Stations(remoteA))

	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.DisassocTriggeredMsg{Stations: []wifiext.MAC{sta1}}))
	assert.Equal(t, []wifiext.MAC{sta2}, c.Status().Stations(remoteA))

	// repeated transitions are logged, not fatal
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.DisassocTriggeredMsg{Stations: []wifiext.MAC{sta1}}))
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocTriggeredMsg{Stations: []wifiext.MAC{sta2}}))
	assert.Equal(t, []wifiext.MAC{sta2}, c.Status().Stations(remoteA))
}

func Test_Handoff(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)
	connectAP(t, c, f, remoteB, 2, hwB, channel13)
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocStatusReplyMsg{Stations: []wifiext.MAC{sta1}}))

	require.NoError(t, c.Handoff(sta1, remoteA, remoteB))
	target, ok := c.PendingHandoff(sta1)
	require.True(t, ok)
	assert.Equal(t, remoteB, target)

	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	disassoc, ok := msgs[0].(*wifiext.DisassocConfigMsg)
	require.True(t, ok)
	assert.Equal(t, sta1, disassoc.Station)

	frame := []byte{0x00, 0x00, 0x3a, 0x01}
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.DisassocConfigReplyMsg{
		Header:  wifiext.Header{Xid: disassoc.Xid},
		Station: sta1,
		Data:    frame,
	}))
	_, ok = c.Status().AssociatedAP(sta1)
	assert.False(t, ok)

	msgs = f.takeWifi(t, remoteB)
	require.Len(t, msgs, 1)
	assoc, ok := msgs[0].(*wifiext.AssocConfigMsg)
	require.True(t, ok)
	assert.Equal(t, sta1, assoc.Station)
	assert.Equal(t, frame, assoc.Data)

	require.NoError(t, c.HandleExperimenter(remoteB, &wifiext.AssocTriggeredMsg{Stations: []wifiext.MAC{sta1}}))
	ap, ok := c.Status().AssociatedAP(sta1)
	require.True(t, ok)
	assert.Equal(t, remoteB, ap)
	_, ok = c.PendingHandoff(sta1)
	assert.False(t, ok)
}

func Test_HandoffErrors(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	assert.Error(t, c.Handoff(sta1, remoteA, remoteA))
	assert.True(t, errors.Is(c.Handoff(sta1, remoteA, remoteB), ErrUnknownAP))
	assert.True(t, errors.Is(c.Handoff(sta1, remoteB, remoteA), ErrUnknownAP))
	_, ok := c.PendingHandoff(sta1)
	assert.False(t, ok)
}

func Test_UnsupportedSubtype(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	requests := []wifiext.Message{
		&wifiext.ChannelConfigRequestMsg{},
		&wifiext.ChannelSetMsg{Channel: channel1},
		&wifiext.ChannelQualityRequestMsg{Address: wifiext.Broadcast},
		&wifiext.ChannelQualityTriggerSetMsg{},
		&wifiext.AssocStatusRequestMsg{},
		&wifiext.DisassocConfigMsg{Station: sta1},
		&wifiext.AssocConfigMsg{Station: sta1},
	}

	for _, msg := range requests {
		t.Run(msg.Subtype().String(), func(t *testing.T) {
			err := c.HandleExperimenter(remoteA, msg)
			assert.True(t, errors.Is(err, ErrUnsupportedSubtype))
		})
	}

	ap, _ := c.AP(remoteA)
	assert.Equal(t, channel13, ap.Channel())
}

func Test_ConfigChannel(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel1)

	require.NoError(t, c.ConfigChannel(remoteA, channel13))

	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	set, ok := msgs[0].(*wifiext.ChannelSetMsg)
	require.True(t, ok)
	assert.Equal(t, channel13, set.Channel)

	ap, _ := c.AP(remoteA)
	assert.Equal(t, channel13, ap.Channel())
	assert.Equal(t, []string{remoteA}, c.Status().FrequencyUsers(2472, 20))
	assert.Empty(t, c.Status().FrequencyUsers(2412, 20))

	assert.True(t, errors.Is(c.ConfigChannel(remoteB, channel13), ErrUnknownAP))
}

func Test_PendingRequests(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)

	require.NoError(t, c.RequestChannelQuality(remoteA, wifiext.Broadcast))
	first, ok := c.Pending(remoteA, wifiext.ChannelQualityReply)
	require.True(t, ok)

	require.NoError(t, c.RequestChannelQuality(remoteA, sta1))
	second, ok := c.Pending(remoteA, wifiext.ChannelQualityReply)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	// requests without a reply are not tracked
	require.NoError(t, c.SetChannelQualityTrigger(remoteA, nil))
	_, ok = c.Pending(remoteA, wifiext.ChannelQualityTriggerSet)
	assert.False(t, ok)

	// an error for the pending xid fails the request
	errMsg := wifiext.NewErrorMsg(second, errors.New("device gone"), nil)
	c.HandleEvent(event(remoteA, errMsg.OfpErrorMsg))
	_, ok = c.Pending(remoteA, wifiext.ChannelQualityReply)
	assert.False(t, ok)

	// a late reply is still applied
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.ChannelQualityReplyMsg{
		Header:  wifiext.Header{Xid: second},
		Reports: []wifiext.QualityReport{{Address: sta1, Packets: 1}},
	}))
	assert.Len(t, c.Status().StationQuality(sta1), 1)
}

func Test_DecodeErrorIsAnswered(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)

	raw := []byte{4, ofp13.OFPT_EXPERIMENTER, 0, 16, 0, 0, 0, 7, 0, 0, 0, 1, 0, 0, 0, 0}
	c.HandleEvent(connection.Event{
		Type:   connection.EventMessage,
		Remote: remoteA,
		Raw:    raw,
		Err:    wifiext.ErrBadExperimenter,
	})

	sent := f.take(remoteA)
	require.Len(t, sent, 1)
	errMsg, ok := sent[0].(*wifiext.ErrorMsg)
	require.True(t, ok)
	assert.Equal(t, uint32(7), errMsg.Header.Xid)
	assert.Equal(t, uint16(ofp13.OFPBRC_BAD_EXPERIMENTER), errMsg.Code)
	assert.Equal(t, raw, []byte(errMsg.Data))
}

func Test_Disconnect(t *testing.T) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel13)
	connectAP(t, c, f, remoteB, 2, hwB, channel13)
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocStatusReplyMsg{Stations: []wifiext.MAC{sta1}}))
	require.NoError(t, c.Handoff(sta1, remoteA, remoteB))
	require.NoError(t, c.RequestAssocStatus(remoteB))

	c.HandleEvent(connection.Event{Type: connection.EventDisconnected, Remote: remoteB})

	assert.Equal(t, []string{remoteA}, c.APs())
	_, ok := c.APByHardwareAddr(hwB)
	assert.False(t, ok)
	_, ok = c.DatapathID(remoteB)
	assert.False(t, ok)
	_, ok = c.Pending(remoteB, wifiext.AssocStatusReply)
	assert.False(t, ok)
	_, ok = c.PendingHandoff(sta1)
	assert.False(t, ok)
	assert.Equal(t, []string{remoteA}, c.Status().FrequencyUsers(2472, 20))

	// unknown remotes are ignored
	c.HandleEvent(connection.Event{Type: connection.EventDisconnected, Remote: remoteB})
}
