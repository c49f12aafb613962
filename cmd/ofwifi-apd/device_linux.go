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

package main

import (
	"github.com/k-vswitch/ofwifi/config"
	"github.com/k-vswitch/ofwifi/datapath"
	"github.com/k-vswitch/ofwifi/datapath/linuxdev"

	"k8s.io/klog"
)

func openLinuxDevice(cfg *config.AgentConfig) (*device, error) {
	dev, err := linuxdev.Open(cfg.Interface)
	if err != nil {
		return nil, err
	}

	start := func(monitor *datapath.Monitor, stopCh <-chan struct{}) error {
		go dev.Watch(cfg.StationPollInterval, stopCh)

		if cfg.MonitorInterface == "" {
			klog.Warningf("no monitor interface configured, channel quality comes from capture replay only")
			return nil
		}

		source, closeCapture, err := linuxdev.Capture(cfg.MonitorInterface)
		if err != nil {
			return err
		}
		go func() {
			defer closeCapture()
			monitor.Run(source, stopCh)
		}()
		return nil
	}

	return &device{
		radio: dev,
		ap:    dev,
		start: start,
		close: func() {
			if err := dev.Close(); err != nil {
				klog.Errorf("error closing %s: %v", cfg.Interface, err)
			}
		},
	}, nil
}
