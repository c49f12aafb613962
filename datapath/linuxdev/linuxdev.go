//go:build linux

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

package linuxdev

import (
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/mdlayher/wifi"
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"k8s.io/klog"
)

var (
	// ErrReadOnly reports an operation nl80211 station info cannot perform.
	ErrReadOnly = errors.New("operation not supported by the linux wifi device")
	ErrNotFound = errors.New("wireless interface not found")
)

// defaultWidth is assumed for the operating channel, nl80211 interface
// info carries no channel width.
const defaultWidth = 20

// Device is a wireless interface operating as an access point. It serves
// both as the datapath radio and as its access point.
type Device struct {
	client *wifi.Client
	ifname string
	hwAddr wifiext.MAC

	mu       sync.Mutex
	frames   map[wifiext.MAC][]byte
	known    map[wifiext.MAC]bool
	onChange func(sta wifiext.MAC, associated bool)
}

// Open brings ifname up and attaches to it over nl80211.
func Open(ifname string) (*Device, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		return nil, errors.Wrapf(err, "error finding link %s", ifname)
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return nil, errors.Wrapf(err, "error setting link %s up", ifname)
	}

	hwAddr, err := wifiext.MACFromHardwareAddr(link.Attrs().HardwareAddr)
	if err != nil {
		return nil, err
	}

	client, err := wifi.New()
	if err != nil {
		return nil, errors.Wrap(err, "error opening nl80211")
	}

	d := &Device{
		client: client,
		ifname: ifname,
		hwAddr: hwAddr,
		frames: make(map[wifiext.MAC][]byte),
		known:  make(map[wifiext.MAC]bool),
	}
	if _, err := d.iface(); err != nil {
		client.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) Close() error {
	return d.client.Close()
}

func (d *Device) iface() (*wifi.Interface, error) {
	ifis, err := d.client.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "error listing wireless interfaces")
	}

	for _, ifi := range ifis {
		if ifi.Name == d.ifname {
			return ifi, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "%s", d.ifname)
}

func (d *Device) HardwareAddr() wifiext.MAC {
	return d.hwAddr
}

func (d *Device) Channel() (wifiext.ChannelInfo, error) {
	ifi, err := d.iface()
	if err != nil {
		return wifiext.ChannelInfo{}, err
	}

	if ch, ok := wifiext.ChannelByFrequency(uint16(ifi.Frequency), defaultWidth); ok {
		return ch, nil
	}
	return wifiext.ChannelInfo{Frequency: uint16(ifi.Frequency), Width: defaultWidth}, nil
}

func (d *Device) SetChannel(ch wifiext.ChannelInfo) error {
	return errors.Wrapf(ErrReadOnly, "cannot move %s to %s", d.ifname, ch)
}

// OnChange sets the function Watch calls for every association change.
func (d *Device) OnChange(fn func(sta wifiext.MAC, associated bool)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.onChange = fn
}

// Stations returns the stations nl80211 reports as associated.
func (d *Device) Stations() ([]wifiext.MAC, error) {
	ifi, err := d.iface()
	if err != nil {
		return nil, err
	}

	infos, err := d.client.StationInfo(ifi)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading stations of %s", d.ifname)
	}

	stations := make([]wifiext.MAC, 0, len(infos))
	for _, info := range infos {
		sta, err := wifiext.MACFromHardwareAddr(info.HardwareAddr)
		if err != nil {
			klog.Warningf("ignoring station with bad address: %v", err)
			continue
		}
		stations = append(stations, sta)
	}
	return stations, nil
}

// ManagementFrame returns the frame a station was admitted with by
// Associate. Stations that joined on their own have none.
func (d *Device) ManagementFrame(sta wifiext.MAC) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.frames[sta], nil
}

func (d *Device) Disassociate(sta wifiext.MAC) error {
	return errors.Wrapf(ErrReadOnly, "cannot disassociate %s", sta)
}

func (d *Device) Associate(sta wifiext.MAC, frame []byte) error {
	return errors.Wrapf(ErrReadOnly, "cannot associate %s", sta)
}

// Watch polls the station list every interval and reports joins and leaves
// until stopCh is closed.
func (d *Device) Watch(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stations, err := d.Stations()
			if err != nil {
				klog.Errorf("error polling stations: %v", err)
				continue
			}
			d.update(stations)
		case <-stopCh:
			return
		}
	}
}

func (d *Device) update(stations []wifiext.MAC) {
	current := make(map[wifiext.MAC]bool, len(stations))
	for _, sta := range stations {
		current[sta] = true
	}

	d.mu.Lock()
	var joined, left []wifiext.MAC
	for sta := range current {
		if !d.known[sta] {
			joined = append(joined, sta)
		}
	}
	for sta := range d.known {
		if !current[sta] {
			left = append(left, sta)
			delete(d.frames, sta)
		}
	}
	d.known = current
	onChange := d.onChange
	d.mu.Unlock()

	if onChange == nil {
		return
	}
	for _, sta := range joined {
		onChange(sta, true)
	}
	for _, sta := range left {
		onChange(sta, false)
	}
}

// Capture opens a raw socket on a monitor mode interface. The returned
// source yields radiotap encapsulated frames.
func Capture(ifname string) (*gopacket.PacketSource, func(), error) {
	handle, err := pcapgo.NewEthernetHandle(ifname)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "error opening capture on %s", ifname)
	}

	source := gopacket.NewPacketSource(handle, layers.LinkTypeIEEE80211Radio)
	return source, handle.Close, nil
}
