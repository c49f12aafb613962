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
	"hash/crc32"
	"net"
	"sync"
	"testing"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var (
	apMAC = wifiext.MAC{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	sta1  = wifiext.MAC{0, 0, 0, 0, 0, 1}
	sta2  = wifiext.MAC{0, 0, 0, 0, 0, 2}
	sta3  = wifiext.MAC{0, 0, 0, 0, 0, 3}
)

type fakeRadio struct {
	hwAddr  wifiext.MAC
	channel wifiext.ChannelInfo
	sets    int
}

func (r *fakeRadio) HardwareAddr() wifiext.MAC { return r.hwAddr }

func (r *fakeRadio) Channel() (wifiext.ChannelInfo, error) { return r.channel, nil }

func (r *fakeRadio) SetChannel(ch wifiext.ChannelInfo) error {
	r.sets++
	r.channel = ch
	return nil
}

type fakeAP struct {
	stations map[wifiext.MAC][]byte
	onChange func(sta wifiext.MAC, associated bool)
}

func newFakeAP(stations ...wifiext.MAC) *fakeAP {
	ap := &fakeAP{stations: make(map[wifiext.MAC][]byte)}
	for _, sta := range stations {
		ap.stations[sta] = []byte{byte(sta[5])}
	}
	return ap
}

func (ap *fakeAP) Stations() ([]wifiext.MAC, error) {
	stations := make([]wifiext.MAC, 0, len(ap.stations))
	for _, sta := range []wifiext.MAC{sta1, sta2, sta3} {
		if _, ok := ap.stations[sta]; ok {
			stations = append(stations, sta)
		}
	}
	return stations, nil
}

func (ap *fakeAP) ManagementFrame(sta wifiext.MAC) ([]byte, error) {
	frame, ok := ap.stations[sta]
	if !ok {
		return nil, errors.Errorf("station %s is not associated", sta)
	}
	return frame, nil
}

func (ap *fakeAP) Disassociate(sta wifiext.MAC) error {
	if _, ok := ap.stations[sta]; !ok {
		return errors.Errorf("station %s is not associated", sta)
	}
	delete(ap.stations, sta)
	if ap.onChange != nil {
		ap.onChange(sta, false)
	}
	return nil
}

func (ap *fakeAP) Associate(sta wifiext.MAC, frame []byte) error {
	ap.stations[sta] = frame
	if ap.onChange != nil {
		ap.onChange(sta, true)
	}
	return nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []ofp13.OFMessage
}

func (s *recordingSender) Send(msg ofp13.OFMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *recordingSender) sent() []ofp13.OFMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ofp13.OFMessage(nil), s.msgs...)
}

// wifi returns the experimenter messages sent, in order.
func (s *recordingSender) wifi() []wifiext.Message {
	var msgs []wifiext.Message
	for _, msg := range s.sent() {
		if frame, ok := msg.(*wifiext.Frame); ok {
			msgs = append(msgs, frame.Msg)
		}
	}
	return msgs
}

func newTestDatapath() (*Datapath, *fakeRadio, *fakeAP) {
	radio := &fakeRadio{
		hwAddr:  apMAC,
		channel: wifiext.ChannelInfo{Number: 13, Frequency: 2472, Width: 20},
	}
	ap := newFakeAP(sta1, sta2)
	dp := NewDatapath(1, radio, ap)
	ap.onChange = dp.AssociationChanged
	return dp, radio, ap
}

func withFCS(t *testing.T, layerList ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, layerList...)
	require.NoError(t, err)

	frame := buf.Bytes()
	fcs := make([]byte, 4)
	binary.LittleEndian.PutUint32(fcs, crc32.ChecksumIEEE(frame))
	return append(frame, fcs...)
}

func assocRequest(t *testing.T, sta wifiext.MAC) []byte {
	return withFCS(t,
		&layers.Dot11{
			Type:     layers.Dot11TypeMgmtAssociationReq,
			Address1: net.HardwareAddr(apMAC[:]),
			Address2: net.HardwareAddr(sta[:]),
			Address3: net.HardwareAddr(apMAC[:]),
		},
		&layers.Dot11MgmtAssociationReq{CapabilityInfo: 0x0401, ListenInterval: 10},
		&layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDSSID, Info: []byte("ofwifi")},
	)
}

func radiotapFrame(t *testing.T, src wifiext.MAC, signal int8) []byte {
	return radiotap(t, src, &layers.RadioTap{
		Present:          layers.RadioTapPresentDBMAntennaSignal,
		DBMAntennaSignal: signal,
	})
}

func radiotapWithoutSignal(t *testing.T, src wifiext.MAC) []byte {
	return radiotap(t, src, &layers.RadioTap{})
}

func radiotap(t *testing.T, src wifiext.MAC, header *layers.RadioTap) []byte {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		header,
		&layers.Dot11{
			Type:     layers.Dot11TypeMgmtProbeReq,
			Address1: net.HardwareAddr(wifiext.Broadcast[:]),
			Address2: net.HardwareAddr(src[:]),
			Address3: net.HardwareAddr(wifiext.Broadcast[:]),
		},
		&layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDSSID, Info: []byte("ofwifi")},
	)
	require.NoError(t, err)
	return buf.Bytes()
}
