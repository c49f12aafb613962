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

package main

import (
	"github.com/k-vswitch/ofwifi/config"
	"github.com/k-vswitch/ofwifi/datapath"
	"github.com/k-vswitch/ofwifi/datapath/simdev"
	"github.com/k-vswitch/ofwifi/wifiext"

	"k8s.io/klog"
)

type accessPoint interface {
	datapath.AccessPoint
	OnChange(fn func(sta wifiext.MAC, associated bool))
}

// device is the wireless hardware, real or simulated, behind a datapath.
type device struct {
	radio datapath.Radio
	ap    accessPoint

	// start begins feeding signal samples to monitor.
	start func(monitor *datapath.Monitor, stopCh <-chan struct{}) error
	close func()
}

func openSimDevice(cfg *config.AgentConfig) (*device, error) {
	hwAddr, err := wifiext.ParseMAC(cfg.Sim.HardwareAddr)
	if err != nil {
		return nil, err
	}

	radio := simdev.NewRadio(hwAddr, cfg.Sim.Channel.Info())
	ap := simdev.NewAccessPoint(hwAddr)

	var stations []simdev.Station
	var associated []wifiext.MAC
	for _, s := range cfg.Sim.Stations {
		addr, err := wifiext.ParseMAC(s.Address)
		if err != nil {
			return nil, err
		}
		stations = append(stations, simdev.Station{Address: addr, RxPowerAvg: s.RxPowerAvg, RxPowerStd: s.RxPowerStd})
		if s.Associated {
			associated = append(associated, addr)
		}
	}

	start := func(monitor *datapath.Monitor, stopCh <-chan struct{}) error {
		for _, sta := range associated {
			frame, err := simdev.AssocRequestFrame(sta, hwAddr, cfg.Sim.SSID)
			if err != nil {
				return err
			}
			if err := ap.Associate(sta, frame); err != nil {
				return err
			}
		}

		if len(stations) > 0 {
			traffic := simdev.NewTraffic(monitor, cfg.Sim.Interval, cfg.Sim.Seed, stations...)
			go traffic.Run(stopCh)
		}
		klog.Infof("simulated access point %s with %d stations, %d associated", hwAddr, len(stations), len(associated))
		return nil
	}

	return &device{
		radio: radio,
		ap:    ap,
		start: start,
		close: func() {},
	}, nil
}
