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

// Package config loads the YAML configuration of the controller and of the
// access point daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/k-vswitch/ofwifi/wifiext"
	"gopkg.in/yaml.v3"
)

const (
	DeviceSim   = "sim"
	DeviceLinux = "linux"
)

// Channel is a radio channel as written in configuration files.
type Channel struct {
	Number    uint8  `yaml:"number"`
	Frequency uint16 `yaml:"frequency"`
	Width     uint16 `yaml:"width"`
}

func (c Channel) Info() wifiext.ChannelInfo {
	return wifiext.ChannelInfo{Number: c.Number, Frequency: c.Frequency, Width: c.Width}
}

func (c Channel) validate() error {
	known, ok := wifiext.ChannelByFrequency(c.Frequency, c.Width)
	if !ok {
		return fmt.Errorf("frequency %d MHz with width %d MHz is not in the channel plan", c.Frequency, c.Width)
	}
	if c.Number != known.Number {
		return fmt.Errorf("frequency %d MHz is channel %d, not %d", c.Frequency, known.Number, c.Number)
	}
	return nil
}

// Trigger holds channel quality trigger thresholds.
type Trigger struct {
	Packets    uint64  `yaml:"packets"`
	RxPowerAvg float64 `yaml:"rxPowerAvg"`
	RxPowerStd float64 `yaml:"rxPowerStd"`
}

func (t Trigger) Report() wifiext.QualityReport {
	return wifiext.QualityReport{Packets: t.Packets, RxPowerAvg: t.RxPowerAvg, RxPowerStd: t.RxPowerStd}
}

// Strategies holds the period of every controller strategy. A zero period
// disables the strategy.
type Strategies struct {
	ConfigChannel         time.Duration `yaml:"configChannel"`
	ChannelQualityReport  time.Duration `yaml:"channelQualityReport"`
	ChannelQualityTrigger time.Duration `yaml:"channelQualityTrigger"`
	AssocStatus           time.Duration `yaml:"assocStatus"`
	ConfigAssoc           time.Duration `yaml:"configAssoc"`
	LogNetworkStatus      time.Duration `yaml:"logNetworkStatus"`
}

// Placement pins a station to the access point with the given radio address.
type Placement struct {
	Station string `yaml:"station"`
	AP      string `yaml:"ap"`
}

func (p Placement) Parse() (sta, ap wifiext.MAC, err error) {
	if sta, err = wifiext.ParseMAC(p.Station); err != nil {
		return sta, ap, fmt.Errorf("invalid station address: %v", err)
	}
	if ap, err = wifiext.ParseMAC(p.AP); err != nil {
		return sta, ap, fmt.Errorf("invalid access point address: %v", err)
	}
	return sta, ap, nil
}

type ControllerConfig struct {
	ListenAddr string      `yaml:"listenAddr"`
	Channel    Channel     `yaml:"channel"`
	Trigger    Trigger     `yaml:"trigger"`
	Strategies Strategies  `yaml:"strategies"`
	Placements []Placement `yaml:"placements"`
}

func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		ListenAddr: ":6653",
		Channel:    Channel{Number: 13, Frequency: 2472, Width: 20},
		Trigger:    Trigger{Packets: 10, RxPowerAvg: 10, RxPowerStd: 10},
		Strategies: Strategies{
			ConfigChannel:         10 * time.Second,
			ChannelQualityReport:  5 * time.Second,
			ChannelQualityTrigger: 30 * time.Second,
			AssocStatus:           10 * time.Second,
			LogNetworkStatus:      30 * time.Second,
		},
	}
}

// LoadControllerConfig reads the YAML file filename over the defaults. An
// empty filename yields the defaults.
func LoadControllerConfig(filename string) (*ControllerConfig, error) {
	dict, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseControllerConfig(dict)
}

func ParseControllerConfig(dict []byte) (*ControllerConfig, error) {
	cfg := DefaultControllerConfig()
	if err := yaml.Unmarshal(dict, cfg); err != nil {
		return nil, fmt.Errorf("error parsing controller config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ControllerConfig) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr is required")
	}

	if err := c.Channel.validate(); err != nil {
		return fmt.Errorf("invalid channel: %v", err)
	}

	for _, interval := range []time.Duration{
		c.Strategies.ConfigChannel,
		c.Strategies.ChannelQualityReport,
		c.Strategies.ChannelQualityTrigger,
		c.Strategies.AssocStatus,
		c.Strategies.ConfigAssoc,
		c.Strategies.LogNetworkStatus,
	} {
		if interval < 0 {
			return fmt.Errorf("strategy interval %s is negative", interval)
		}
	}

	for i, placement := range c.Placements {
		if _, _, err := placement.Parse(); err != nil {
			return fmt.Errorf("placement %d: %v", i, err)
		}
	}
	return nil
}

// SimStation is a station of the simulated access point.
type SimStation struct {
	Address    string  `yaml:"address"`
	RxPowerAvg float64 `yaml:"rxPowerAvg"`
	RxPowerStd float64 `yaml:"rxPowerStd"`
	Associated bool    `yaml:"associated"`
}

type Sim struct {
	HardwareAddr string        `yaml:"hardwareAddr"`
	Channel      Channel       `yaml:"channel"`
	SSID         string        `yaml:"ssid"`
	Seed         uint64        `yaml:"seed"`
	Interval     time.Duration `yaml:"interval"`
	Stations     []SimStation  `yaml:"stations"`
}

type AgentConfig struct {
	ControllerAddr    string        `yaml:"controllerAddr"`
	DatapathID        uint64        `yaml:"datapathID"`
	ReconnectInterval time.Duration `yaml:"reconnectInterval"`

	Device string `yaml:"device"`
	// Interface is the wireless interface of a linux device.
	Interface string `yaml:"interface"`
	// MonitorInterface is captured for signal samples when set.
	MonitorInterface    string        `yaml:"monitorInterface"`
	StationPollInterval time.Duration `yaml:"stationPollInterval"`
	// CaptureFile is a radiotap pcap replayed into the quality table.
	CaptureFile string `yaml:"captureFile"`

	// Bridge enables station steering flows on this OVS bridge.
	Bridge   string `yaml:"bridge"`
	WlanPort string `yaml:"wlanPort"`

	Sim Sim `yaml:"sim"`
}

func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		ControllerAddr:      "127.0.0.1:6653",
		DatapathID:          1,
		ReconnectInterval:   5 * time.Second,
		Device:              DeviceSim,
		StationPollInterval: time.Second,
		Sim: Sim{
			HardwareAddr: "02:00:00:00:01:00",
			Channel:      Channel{Number: 1, Frequency: 2412, Width: 20},
			SSID:         "ofwifi",
			Seed:         1,
			Interval:     100 * time.Millisecond,
		},
	}
}

func LoadAgentConfig(filename string) (*AgentConfig, error) {
	dict, err := readFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseAgentConfig(dict)
}

func ParseAgentConfig(dict []byte) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()
	if err := yaml.Unmarshal(dict, cfg); err != nil {
		return nil, fmt.Errorf("error parsing agent config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AgentConfig) Validate() error {
	if c.ControllerAddr == "" {
		return fmt.Errorf("controllerAddr is required")
	}
	if c.ReconnectInterval <= 0 {
		return fmt.Errorf("reconnectInterval must be positive")
	}
	if c.Bridge != "" && c.WlanPort == "" {
		return fmt.Errorf("wlanPort is required with bridge %q", c.Bridge)
	}

	switch c.Device {
	case DeviceSim:
		return c.Sim.validate()
	case DeviceLinux:
		if c.Interface == "" {
			return fmt.Errorf("interface is required for a linux device")
		}
		if c.StationPollInterval <= 0 {
			return fmt.Errorf("stationPollInterval must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unknown device %q, expected %q or %q", c.Device, DeviceSim, DeviceLinux)
	}
}

func (s *Sim) validate() error {
	if _, err := wifiext.ParseMAC(s.HardwareAddr); err != nil {
		return fmt.Errorf("invalid sim hardwareAddr: %v", err)
	}
	if err := s.Channel.validate(); err != nil {
		return fmt.Errorf("invalid sim channel: %v", err)
	}
	if len(s.Stations) > 0 && s.Interval <= 0 {
		return fmt.Errorf("sim interval must be positive")
	}
	for i, sta := range s.Stations {
		if _, err := wifiext.ParseMAC(sta.Address); err != nil {
			return fmt.Errorf("sim station %d: %v", i, err)
		}
		if sta.RxPowerStd < 0 {
			return fmt.Errorf("sim station %d: negative rxPowerStd", i)
		}
	}
	return nil
}

func readFile(filename string) ([]byte, error) {
	if filename == "" {
		return nil, nil
	}
	dict, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config %s: %v", filename, err)
	}
	return dict, nil
}
