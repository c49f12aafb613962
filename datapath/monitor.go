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
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

// Monitor feeds received signal samples into the quality table of one
// datapath and raises quality triggers. It replaces any per process sample
// accumulator: whoever captures frames owns a Monitor.
type Monitor struct {
	dp *Datapath
}

func NewMonitor(dp *Datapath) *Monitor {
	return &Monitor{dp: dp}
}

// Observe records one frame from src received at rxPower dBm.
func (m *Monitor) Observe(src wifiext.MAC, rxPower float64) {
	report, fired := m.dp.Quality.Update(src, rxPower)
	if !fired {
		return
	}

	klog.Infof("datapath %016x: quality trigger fired for %s", m.dp.ID, report)
	m.dp.Notify(&wifiext.ChannelQualityTriggeredMsg{Reports: []wifiext.QualityReport{report}})
}

// ObservePacket decodes a radiotap encapsulated 802.11 frame and records its
// transmitter and antenna signal. Frames without either are ignored.
func (m *Monitor) ObservePacket(data []byte) bool {
	packet := gopacket.NewPacket(data, layers.LayerTypeRadioTap, gopacket.Default)
	return m.observe(packet)
}

func (m *Monitor) observe(packet gopacket.Packet) bool {
	radiotap, ok := packet.Layer(layers.LayerTypeRadioTap).(*layers.RadioTap)
	if !ok || !radiotap.Present.DBMAntennaSignal() {
		return false
	}

	dot11, ok := packet.Layer(layers.LayerTypeDot11).(*layers.Dot11)
	if !ok {
		return false
	}

	src, err := wifiext.MACFromHardwareAddr(dot11.Address2)
	if err != nil {
		// control frames such as ACK carry no transmitter address
		return false
	}

	m.Observe(src, float64(radiotap.DBMAntennaSignal))
	return true
}

// Run records every packet from source until it is exhausted or stopCh is
// closed.
func (m *Monitor) Run(source *gopacket.PacketSource, stopCh <-chan struct{}) {
	packets := source.Packets()
	for {
		select {
		case packet, ok := <-packets:
			if !ok {
				klog.Infof("datapath %016x: capture ended", m.dp.ID)
				return
			}
			m.observe(packet)
		case <-stopCh:
			return
		}
	}
}
