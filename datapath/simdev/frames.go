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

package simdev

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
)

const (
	capabilityESS           = 0x0001
	capabilityShortPreamble = 0x0020
	listenInterval          = 10
)

// AssocRequestFrame builds the association request sta sends to join ssid
// on bssid, including the frame check sequence.
func AssocRequestFrame(sta, bssid wifiext.MAC, ssid string) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		&layers.Dot11{
			Type:     layers.Dot11TypeMgmtAssociationReq,
			Address1: bssid.HardwareAddr(),
			Address2: sta.HardwareAddr(),
			Address3: bssid.HardwareAddr(),
		},
		&layers.Dot11MgmtAssociationReq{
			CapabilityInfo: capabilityESS | capabilityShortPreamble,
			ListenInterval: listenInterval,
		},
		&layers.Dot11InformationElement{
			ID:     layers.Dot11InformationElementIDSSID,
			Length: uint8(len(ssid)),
			Info:   []byte(ssid),
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error serializing association request")
	}

	frame := buf.Bytes()
	fcs := make([]byte, 4)
	binary.LittleEndian.PutUint32(fcs, crc32.ChecksumIEEE(frame))
	return append(frame, fcs...), nil
}

// ProbeRequestFrame builds a radiotap encapsulated probe request from src as
// received at signal dBm.
func ProbeRequestFrame(src wifiext.MAC, signal int8) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		&layers.RadioTap{
			Present:          layers.RadioTapPresentDBMAntennaSignal,
			DBMAntennaSignal: signal,
		},
		&layers.Dot11{
			Type:     layers.Dot11TypeMgmtProbeReq,
			Address1: wifiext.Broadcast.HardwareAddr(),
			Address2: src.HardwareAddr(),
			Address3: wifiext.Broadcast.HardwareAddr(),
		},
		&layers.Dot11InformationElement{ID: layers.Dot11InformationElementIDSSID},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error serializing probe request")
	}
	return buf.Bytes(), nil
}

// Transmitter returns the transmitter address of an 802.11 frame carrying a
// frame check sequence.
func Transmitter(frame []byte) (wifiext.MAC, error) {
	var dot11 layers.Dot11
	if err := dot11.DecodeFromBytes(frame, gopacket.NilDecodeFeedback); err != nil {
		return wifiext.MAC{}, errors.Wrap(err, "error decoding 802.11 frame")
	}
	return wifiext.MACFromHardwareAddr(dot11.Address2)
}
