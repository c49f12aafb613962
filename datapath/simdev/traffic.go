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
	"math"
	"math/rand/v2"
	"time"

	"github.com/k-vswitch/ofwifi/datapath"
	"github.com/k-vswitch/ofwifi/wifiext"
	"gonum.org/v1/gonum/stat/distuv"
	"k8s.io/klog"
)

// Station is a simulated transmitter. The signal it is received at is
// normally distributed.
type Station struct {
	Address    wifiext.MAC
	RxPowerAvg float64 // dBm
	RxPowerStd float64 // dB
}

// Traffic feeds probe requests from simulated stations to a monitor, as a
// capture on a real radio would.
type Traffic struct {
	monitor  *datapath.Monitor
	interval time.Duration
	stations []Station
	signals  []distuv.Normal
}

// NewTraffic samples signals from a generator seeded with seed, so runs
// with the same seed observe the same frames.
func NewTraffic(monitor *datapath.Monitor, interval time.Duration, seed uint64, stations ...Station) *Traffic {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)

	t := &Traffic{
		monitor:  monitor,
		interval: interval,
		stations: stations,
	}
	for _, sta := range stations {
		t.signals = append(t.signals, distuv.Normal{
			Mu:    sta.RxPowerAvg,
			Sigma: sta.RxPowerStd,
			Src:   src,
		})
	}
	return t
}

// Step delivers one frame from every station.
func (t *Traffic) Step() error {
	for i, sta := range t.stations {
		frame, err := ProbeRequestFrame(sta.Address, dBm(t.signals[i].Rand()))
		if err != nil {
			return err
		}
		if !t.monitor.ObservePacket(frame) {
			klog.Warningf("simulated frame from %s was not observed", sta.Address)
		}
	}
	return nil
}

// Run steps once per interval until stopCh is closed.
func (t *Traffic) Run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := t.Step(); err != nil {
				klog.Errorf("error generating traffic: %v", err)
			}
		case <-stopCh:
			return
		}
	}
}

func dBm(signal float64) int8 {
	signal = math.Round(signal)
	if signal < math.MinInt8 {
		return math.MinInt8
	}
	if signal > math.MaxInt8 {
		return math.MaxInt8
	}
	return int8(signal)
}
