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

// Package simdev provides an in-memory radio and access point, so a wifi
// datapath can run without wireless hardware.
package simdev

import (
	"sort"
	"sync"

	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

var (
	ErrNotInPlan      = errors.New("channel is not in the channel plan")
	ErrNotAssociated  = errors.New("station is not associated")
	ErrNotTransmitter = errors.New("frame was not transmitted by the station")
)

// Radio is a simulated wireless interface.
type Radio struct {
	mu      sync.Mutex
	hwAddr  wifiext.MAC
	channel wifiext.ChannelInfo
}

func NewRadio(hwAddr wifiext.MAC, channel wifiext.ChannelInfo) *Radio {
	return &Radio{
		hwAddr:  hwAddr,
		channel: channel,
	}
}

func (r *Radio) HardwareAddr() wifiext.MAC {
	return r.hwAddr
}

func (r *Radio) Channel() (wifiext.ChannelInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel, nil
}

// SetChannel accepts any channel of wifiext.ChannelPlan.
func (r *Radio) SetChannel(ch wifiext.ChannelInfo) error {
	known, ok := wifiext.ChannelByFrequency(ch.Frequency, ch.Width)
	if !ok {
		return errors.Wrapf(ErrNotInPlan, "%s", ch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.channel = known
	return nil
}

// AccessPoint is a simulated access point MAC layer. It keeps the
// management frame each station associated with.
type AccessPoint struct {
	bssid wifiext.MAC

	mu       sync.Mutex
	stations map[wifiext.MAC][]byte
	onChange func(sta wifiext.MAC, associated bool)
}

func NewAccessPoint(bssid wifiext.MAC) *AccessPoint {
	return &AccessPoint{
		bssid:    bssid,
		stations: make(map[wifiext.MAC][]byte),
	}
}

// OnChange sets the function called after every association change.
func (ap *AccessPoint) OnChange(fn func(sta wifiext.MAC, associated bool)) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	ap.onChange = fn
}

func (ap *AccessPoint) BSSID() wifiext.MAC {
	return ap.bssid
}

// Stations returns the associated stations ordered by address.
func (ap *AccessPoint) Stations() ([]wifiext.MAC, error) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	stations := make([]wifiext.MAC, 0, len(ap.stations))
	for sta := range ap.stations {
		stations = append(stations, sta)
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].String() < stations[j].String()
	})
	return stations, nil
}

func (ap *AccessPoint) ManagementFrame(sta wifiext.MAC) ([]byte, error) {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	frame, ok := ap.stations[sta]
	if !ok {
		return nil, errors.Wrapf(ErrNotAssociated, "%s", sta)
	}
	return append([]byte(nil), frame...), nil
}

func (ap *AccessPoint) Disassociate(sta wifiext.MAC) error {
	ap.mu.Lock()
	if _, ok := ap.stations[sta]; !ok {
		ap.mu.Unlock()
		return errors.Wrapf(ErrNotAssociated, "%s", sta)
	}
	delete(ap.stations, sta)
	onChange := ap.onChange
	ap.mu.Unlock()

	klog.Infof("ap %s: station %s disassociated", ap.bssid, sta)
	if onChange != nil {
		onChange(sta, false)
	}
	return nil
}

// Associate admits sta. A station that is already associated keeps its
// association and has its saved frame replaced; no change is reported.
func (ap *AccessPoint) Associate(sta wifiext.MAC, frame []byte) error {
	if len(frame) > 0 {
		transmitter, err := Transmitter(frame)
		if err != nil {
			return err
		}
		if transmitter != sta {
			return errors.Wrapf(ErrNotTransmitter, "frame from %s, station %s", transmitter, sta)
		}
	}

	ap.mu.Lock()
	_, known := ap.stations[sta]
	ap.stations[sta] = append([]byte(nil), frame...)
	onChange := ap.onChange
	ap.mu.Unlock()

	if known {
		klog.V(2).Infof("ap %s: station %s reassociated", ap.bssid, sta)
		return nil
	}

	klog.Infof("ap %s: station %s associated", ap.bssid, sta)
	if onChange != nil {
		onChange(sta, true)
	}
	return nil
}
