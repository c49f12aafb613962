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

package netstatus

import (
	"fmt"

	"github.com/k-vswitch/ofwifi/wifiext"
)

// Standard is the 802.11 PHY standard of an access point radio.
type Standard string

const (
	StandardUnspecified Standard = ""
	Standard80211a      Standard = "802.11a"
	Standard80211g      Standard = "802.11g"
	Standard80211n24GHz Standard = "802.11n-2.4GHz"
	Standard80211n5GHz  Standard = "802.11n-5GHz"
	Standard80211ac     Standard = "802.11ac"
)

// StandardForChannel returns the oldest standard able to operate on ch.
func StandardForChannel(ch wifiext.ChannelInfo) Standard {
	switch {
	case ch.Frequency == 0:
		return StandardUnspecified
	case ch.Is24GHz() && ch.Width <= 20:
		return Standard80211g
	case ch.Is24GHz():
		return Standard80211n24GHz
	case ch.Width <= 20:
		return Standard80211a
	case ch.Width == 40:
		return Standard80211n5GHz
	}
	return Standard80211ac
}

// WifiAp is the controller's view of one access point. It is keyed by the
// control channel address of the switch backing it.
type WifiAp struct {
	address string

	hwAddr    wifiext.MAC
	hasHwAddr bool

	channel  wifiext.ChannelInfo
	standard Standard
}

func NewWifiAp(address string) *WifiAp {
	return &WifiAp{address: address}
}

func (ap *WifiAp) Address() string {
	return ap.address
}

// HardwareAddr returns the radio address, which is unknown until the first
// channel config reply arrives.
func (ap *WifiAp) HardwareAddr() (wifiext.MAC, bool) {
	return ap.hwAddr, ap.hasHwAddr
}

func (ap *WifiAp) SetHardwareAddr(hwAddr wifiext.MAC) {
	ap.hwAddr = hwAddr
	ap.hasHwAddr = true
}

func (ap *WifiAp) Channel() wifiext.ChannelInfo {
	return ap.channel
}

func (ap *WifiAp) Standard() Standard {
	return ap.standard
}

func (ap *WifiAp) SetChannelInfo(ch wifiext.ChannelInfo, standard Standard) {
	ap.channel = ch
	ap.standard = standard
}

func (ap *WifiAp) String() string {
	hwAddr := "unknown"
	if ap.hasHwAddr {
		hwAddr = ap.hwAddr.String()
	}
	return fmt.Sprintf("ap %s (hw %s, %s, standard %q)", ap.address, hwAddr, ap.channel, ap.standard)
}
