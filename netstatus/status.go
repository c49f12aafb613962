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

// Package netstatus tracks what the controller knows about the wireless
// network: which frequencies are in use, how well each access point hears
// each station and every other access point, and who is associated where.
//
// A NetworkStatus is not safe for concurrent use. The controller owns it and
// mutates it from its single event loop.
package netstatus

import (
	"bytes"
	"errors"
	"sort"

	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

var (
	ErrAlreadyAssociated = errors.New("station is already associated with this access point")
	ErrNotAssociated     = errors.New("station is not associated with this access point")
)

// FrequencyWidth identifies a channel by center frequency and width in MHz.
type FrequencyWidth struct {
	Frequency uint16
	Width     uint16
}

type apSet map[string]struct{}

type stationSet map[wifiext.MAC]struct{}

type NetworkStatus struct {
	frequencyUsed   map[FrequencyWidth]apSet
	frequencyOfAp   map[string]FrequencyWidth
	frequencyUnused map[FrequencyWidth]struct{}

	// station -> observing ap -> report
	channelQuality map[wifiext.MAC]map[string]wifiext.QualityReport
	// observing ap -> observed ap -> report
	apsInterference map[string]map[string]wifiext.QualityReport

	associations map[string]stationSet
	stationAp    map[wifiext.MAC]string
}

// NewNetworkStatus returns an empty tracker whose unused frequency pool is
// seeded from plan, or from wifiext.ChannelPlan when plan is nil.
func NewNetworkStatus(plan []wifiext.ChannelInfo) *NetworkStatus {
	if plan == nil {
		plan = wifiext.ChannelPlan
	}

	ns := &NetworkStatus{
		frequencyUsed:   make(map[FrequencyWidth]apSet),
		frequencyOfAp:   make(map[string]FrequencyWidth),
		frequencyUnused: make(map[FrequencyWidth]struct{}),
		channelQuality:  make(map[wifiext.MAC]map[string]wifiext.QualityReport),
		apsInterference: make(map[string]map[string]wifiext.QualityReport),
		associations:    make(map[string]stationSet),
		stationAp:       make(map[wifiext.MAC]string),
	}

	for _, ch := range plan {
		ns.frequencyUnused[FrequencyWidth{ch.Frequency, ch.Width}] = struct{}{}
	}
	return ns
}

// UpdateFrequencyUsed records that ap now operates on (frequency, width). An
// ap is listed under one frequency at a time; a frequency with no users goes
// back to the unused pool.
func (ns *NetworkStatus) UpdateFrequencyUsed(ap string, frequency, width uint16) {
	pair := FrequencyWidth{frequency, width}

	if old, ok := ns.frequencyOfAp[ap]; ok && old != pair {
		ns.releaseFrequency(ap)
	}

	users, ok := ns.frequencyUsed[pair]
	if !ok {
		users = make(apSet)
		ns.frequencyUsed[pair] = users
	}
	users[ap] = struct{}{}
	ns.frequencyOfAp[ap] = pair
	delete(ns.frequencyUnused, pair)
}

func (ns *NetworkStatus) releaseFrequency(ap string) {
	pair, ok := ns.frequencyOfAp[ap]
	if !ok {
		return
	}
	delete(ns.frequencyOfAp, ap)

	users := ns.frequencyUsed[pair]
	delete(users, ap)
	if len(users) == 0 {
		delete(ns.frequencyUsed, pair)
		ns.frequencyUnused[pair] = struct{}{}
	}
}

// RemoveAp forgets ap: its frequency, its stations and every quality report
// it sent or is the subject of.
func (ns *NetworkStatus) RemoveAp(ap string) {
	ns.releaseFrequency(ap)
	ns.SetAssociations(ap, nil)

	for sta, observers := range ns.channelQuality {
		delete(observers, ap)
		if len(observers) == 0 {
			delete(ns.channelQuality, sta)
		}
	}

	delete(ns.apsInterference, ap)
	for observer, heard := range ns.apsInterference {
		delete(heard, ap)
		if len(heard) == 0 {
			delete(ns.apsInterference, observer)
		}
	}
}

// FrequencyUsers returns the access points using (frequency, width), sorted.
func (ns *NetworkStatus) FrequencyUsers(frequency, width uint16) []string {
	users := ns.frequencyUsed[FrequencyWidth{frequency, width}]
	aps := make([]string, 0, len(users))
	for ap := range users {
		aps = append(aps, ap)
	}
	sort.Strings(aps)
	return aps
}

// FrequencyUnused returns the channels nobody operates on, ordered by
// frequency then width.
func (ns *NetworkStatus) FrequencyUnused() []FrequencyWidth {
	unused := make([]FrequencyWidth, 0, len(ns.frequencyUnused))
	for pair := range ns.frequencyUnused {
		unused = append(unused, pair)
	}
	sort.Slice(unused, func(i, j int) bool {
		if unused[i].Frequency != unused[j].Frequency {
			return unused[i].Frequency < unused[j].Frequency
		}
		return unused[i].Width < unused[j].Width
	})
	return unused
}

// UpdateChannelQuality stores how well ap hears report.Address, replacing any
// earlier report for the same pair.
func (ns *NetworkStatus) UpdateChannelQuality(ap string, report wifiext.QualityReport) {
	observers, ok := ns.channelQuality[report.Address]
	if !ok {
		observers = make(map[string]wifiext.QualityReport)
		ns.channelQuality[report.Address] = observers
	}
	observers[ap] = report
}

// RemoveStation forgets every quality report held for sta and returns them
// keyed by observing ap.
func (ns *NetworkStatus) RemoveStation(sta wifiext.MAC) map[string]wifiext.QualityReport {
	observers := ns.channelQuality[sta]
	delete(ns.channelQuality, sta)
	return observers
}

// UpdateApsInterference stores how well observer hears observed.
func (ns *NetworkStatus) UpdateApsInterference(observer, observed string, report wifiext.QualityReport) {
	heard, ok := ns.apsInterference[observer]
	if !ok {
		heard = make(map[string]wifiext.QualityReport)
		ns.apsInterference[observer] = heard
	}
	heard[observed] = report
}

// ChannelQuality returns a copy of the station -> observing ap -> report map.
func (ns *NetworkStatus) ChannelQuality() map[wifiext.MAC]map[string]wifiext.QualityReport {
	out := make(map[wifiext.MAC]map[string]wifiext.QualityReport, len(ns.channelQuality))
	for sta, observers := range ns.channelQuality {
		out[sta] = copyReports(observers)
	}
	return out
}

// StationQuality returns the reports every ap holds for sta.
func (ns *NetworkStatus) StationQuality(sta wifiext.MAC) map[string]wifiext.QualityReport {
	return copyReports(ns.channelQuality[sta])
}

// ApsInterference returns a copy of the observer -> observed ap -> report map.
func (ns *NetworkStatus) ApsInterference() map[string]map[string]wifiext.QualityReport {
	out := make(map[string]map[string]wifiext.QualityReport, len(ns.apsInterference))
	for observer, heard := range ns.apsInterference {
		out[observer] = copyReports(heard)
	}
	return out
}

func copyReports(in map[string]wifiext.QualityReport) map[string]wifiext.QualityReport {
	out := make(map[string]wifiext.QualityReport, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// GetOneSTA picks a station with at least one quality report and the ap that
// hears it best. The lowest station address wins so repeated calls agree.
func (ns *NetworkStatus) GetOneSTA() (string, wifiext.MAC, bool) {
	stations := make([]wifiext.MAC, 0, len(ns.channelQuality))
	for sta, observers := range ns.channelQuality {
		if len(observers) > 0 {
			stations = append(stations, sta)
		}
	}
	if len(stations) == 0 {
		return "", wifiext.MAC{}, false
	}
	sortMACs(stations)
	sta := stations[0]

	best := ""
	var bestReport wifiext.QualityReport
	for ap, report := range ns.channelQuality[sta] {
		if best == "" || report.RxPowerAvg > bestReport.RxPowerAvg ||
			(report.RxPowerAvg == bestReport.RxPowerAvg && ap < best) {
			best, bestReport = ap, report
		}
	}
	return best, sta, true
}

// SetAssociations replaces the station set of ap with stations, as reported
// by an association status reply.
func (ns *NetworkStatus) SetAssociations(ap string, stations []wifiext.MAC) {
	for sta := range ns.associations[ap] {
		delete(ns.stationAp, sta)
	}
	delete(ns.associations, ap)

	for _, sta := range stations {
		if err := ns.AddAssociation(ap, sta); err != nil {
			klog.Warningf("duplicate station %s in association list of %s", sta, ap)
		}
	}
}

// AddAssociation records that sta joined ap. A station is associated with at
// most one ap, so it is removed from any previous one.
func (ns *NetworkStatus) AddAssociation(ap string, sta wifiext.MAC) error {
	if current, ok := ns.stationAp[sta]; ok {
		if current == ap {
			return ErrAlreadyAssociated
		}
		klog.Infof("station %s moved from %s to %s", sta, current, ap)
		delete(ns.associations[current], sta)
	}

	stations, ok := ns.associations[ap]
	if !ok {
		stations = make(stationSet)
		ns.associations[ap] = stations
	}
	stations[sta] = struct{}{}
	ns.stationAp[sta] = ap
	return nil
}

// RemoveAssociation records that sta left ap.
func (ns *NetworkStatus) RemoveAssociation(ap string, sta wifiext.MAC) error {
	stations := ns.associations[ap]
	if _, ok := stations[sta]; !ok {
		return ErrNotAssociated
	}

	delete(stations, sta)
	delete(ns.stationAp, sta)
	return nil
}

// AssociatedAP returns the ap sta is associated with.
func (ns *NetworkStatus) AssociatedAP(sta wifiext.MAC) (string, bool) {
	ap, ok := ns.stationAp[sta]
	return ap, ok
}

// Stations returns the stations associated with ap, sorted by address.
func (ns *NetworkStatus) Stations(ap string) []wifiext.MAC {
	stations := make([]wifiext.MAC, 0, len(ns.associations[ap]))
	for sta := range ns.associations[ap] {
		stations = append(stations, sta)
	}
	sortMACs(stations)
	return stations
}

func sortMACs(macs []wifiext.MAC) {
	sort.Slice(macs, func(i, j int) bool {
		return bytes.Compare(macs[i][:], macs[j][:]) < 0
	})
}

// PrintChannelQuality logs every station and inter-ap quality report.
func (ns *NetworkStatus) PrintChannelQuality() {
	stations := make([]wifiext.MAC, 0, len(ns.channelQuality))
	for sta := range ns.channelQuality {
		stations = append(stations, sta)
	}
	sortMACs(stations)

	for _, sta := range stations {
		for _, ap := range sortedKeys(ns.channelQuality[sta]) {
			klog.Infof("channel quality: station %s seen by %s: %s", sta, ap, ns.channelQuality[sta][ap])
		}
	}

	observers := make([]string, 0, len(ns.apsInterference))
	for observer := range ns.apsInterference {
		observers = append(observers, observer)
	}
	sort.Strings(observers)

	for _, observer := range observers {
		for _, observed := range sortedKeys(ns.apsInterference[observer]) {
			klog.Infof("ap interference: %s seen by %s: %s", observed, observer, ns.apsInterference[observer][observed])
		}
	}
}

// PrintAssocStatus logs the stations associated with every ap.
func (ns *NetworkStatus) PrintAssocStatus() {
	aps := make([]string, 0, len(ns.associations))
	for ap := range ns.associations {
		aps = append(aps, ap)
	}
	sort.Strings(aps)

	for _, ap := range aps {
		klog.Infof("association status: %s has %d stations %v", ap, len(ns.associations[ap]), ns.Stations(ap))
	}
}

func sortedKeys(m map[string]wifiext.QualityReport) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
