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
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k-vswitch/ofwifi/config"
	"github.com/k-vswitch/ofwifi/connection"
	"github.com/k-vswitch/ofwifi/datapath"
	"github.com/k-vswitch/ofwifi/flows"
	"github.com/k-vswitch/ofwifi/wifiext"

	"k8s.io/klog"
)

func main() {
	var configFile string
	var controllerAddr string
	var datapathID uint64

	flag.StringVar(&configFile, "config", "", "Path to the access point YAML configuration.")
	flag.StringVar(&controllerAddr, "controller-addr", "", "Controller address, overrides the configuration.")
	flag.Uint64Var(&datapathID, "datapath-id", 0, "Datapath id reported to the controller, overrides the configuration.")

	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	klog.Info("starting ofwifi-apd")

	cfg, err := config.LoadAgentConfig(configFile)
	if err != nil {
		klog.Errorf("error loading configuration: %v", err)
		os.Exit(1)
	}
	if controllerAddr != "" {
		cfg.ControllerAddr = controllerAddr
	}
	if datapathID != 0 {
		cfg.DatapathID = datapathID
	}

	stopCh := make(chan struct{})

	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-term
		close(stopCh)
	}()

	var dev *device
	switch cfg.Device {
	case config.DeviceSim:
		dev, err = openSimDevice(cfg)
	case config.DeviceLinux:
		dev, err = openLinuxDevice(cfg)
	}
	if err != nil {
		klog.Errorf("failed to open %s device: %v", cfg.Device, err)
		os.Exit(1)
	}
	defer dev.close()

	dp := datapath.NewDatapath(cfg.DatapathID, dev.radio, dev.ap)
	onChange := []func(sta wifiext.MAC, associated bool){dp.AssociationChanged}

	if cfg.Bridge != "" {
		steering, err := setupSteering(cfg, dev.radio.HardwareAddr())
		if err != nil {
			klog.Errorf("failed to setup station steering: %v", err)
			os.Exit(1)
		}
		onChange = append(onChange, steering.StationChanged)
	}

	dev.ap.OnChange(func(sta wifiext.MAC, associated bool) {
		for _, fn := range onChange {
			fn(sta, associated)
		}
	})

	registry := datapath.NewRegistry()
	registry.Add(dp)

	monitor := datapath.NewMonitor(dp)
	if err := dev.start(monitor, stopCh); err != nil {
		klog.Errorf("failed to start %s device: %v", cfg.Device, err)
		os.Exit(1)
	}

	if cfg.CaptureFile != "" {
		source, closer, err := datapath.OpenCaptureFile(cfg.CaptureFile)
		if err != nil {
			klog.Errorf("failed to open capture: %v", err)
			os.Exit(1)
		}
		go func() {
			defer closer.Close()
			monitor.Run(source, stopCh)
		}()
	}

	agent := datapath.NewAgent(cfg.DatapathID, registry, datapath.NewDispatcher(registry))
	runAgent(agent, cfg.ControllerAddr, cfg.ReconnectInterval, stopCh)

	klog.Info("ofwifi-apd stopped")
}

// runAgent keeps a control channel to the controller open until stopCh is
// closed, reconnecting every interval.
func runAgent(agent *datapath.Agent, addr string, interval time.Duration, stopCh <-chan struct{}) {
	for {
		conn, err := connection.Dial(addr)
		if err != nil {
			klog.Errorf("%v, retrying in %s", err, interval)
		} else {
			klog.Infof("connected to controller %s", conn.RemoteAddr())
			if err := agent.Run(conn, stopCh); err != nil {
				klog.Errorf("%v, reconnecting in %s", err, interval)
			} else {
				klog.Infof("disconnected from controller %s", addr)
			}
		}

		select {
		case <-stopCh:
			return
		case <-time.After(interval):
		}
	}
}

func setupSteering(cfg *config.AgentConfig, hwAddr wifiext.MAC) (*flows.Steering, error) {
	wlanPort, err := flows.OFPortFromName(cfg.WlanPort)
	if err != nil {
		return nil, err
	}

	if portMAC, err := flows.MACAddrFromPort(cfg.WlanPort); err != nil {
		klog.Warningf("could not verify address of port %s: %v", cfg.WlanPort, err)
	} else if portMAC != hwAddr {
		klog.Warningf("port %s has address %s but the radio is %s", cfg.WlanPort, portMAC, hwAddr)
	}

	steering := flows.NewSteering(cfg.Bridge, wlanPort)
	if err := steering.Sync(); err != nil {
		return nil, err
	}
	klog.Infof("steering stations from port %s (ofport %d) on bridge %s", cfg.WlanPort, wlanPort, cfg.Bridge)
	return steering, nil
}
