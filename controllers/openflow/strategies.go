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

package openflow

import (
	"time"

	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

// Strategy is a controller action repeated every Interval on the Run
// goroutine.
type Strategy struct {
	Name     string
	Interval time.Duration
	Apply    func(c *Controller)
}

// DefaultChannel is where ConfigChannelStrategy moves every access point.
var DefaultChannel = wifiext.ChannelInfo{Number: 13, Frequency: 2472, Width: 20}

// DefaultTrigger is the quality trigger ChannelQualityTriggerStrategy arms.
var DefaultTrigger = wifiext.QualityReport{Packets: 10, RxPowerAvg: 10, RxPowerStd: 10}

// ConfigChannelStrategy moves every access point not yet on ch to ch.
func ConfigChannelStrategy(interval time.Duration, ch wifiext.ChannelInfo) Strategy {
	return Strategy{
		Name:     "config-channel",
		Interval: interval,
		Apply: func(c *Controller) {
			for _, remote := range c.APs() {
				if ap := c.aps[remote]; ap.Channel() == ch {
					continue
				}
				if err := c.ConfigChannel(remote, ch); err != nil {
					klog.Errorf("error configuring channel of %s: %v", remote, err)
				}
			}
		},
	}
}

// ChannelQualityReportStrategy asks every access point for all of its
// quality records.
func ChannelQualityReportStrategy(interval time.Duration) Strategy {
	return Strategy{
		Name:     "channel-quality-report",
		Interval: interval,
		Apply: func(c *Controller) {
			for _, remote := range c.APs() {
				if err := c.RequestChannelQuality(remote, wifiext.Broadcast); err != nil {
					klog.Errorf("error requesting channel quality from %s: %v", remote, err)
				}
			}
		},
	}
}

// ChannelQualityTriggerStrategy arms trigger for one known station on the
// access point hearing it best.
func ChannelQualityTriggerStrategy(interval time.Duration, trigger wifiext.QualityReport) Strategy {
	return Strategy{
		Name:     "channel-quality-trigger",
		Interval: interval,
		Apply: func(c *Controller) {
			remote, sta, ok := c.status.GetOneSTA()
			if !ok {
				klog.V(2).Info("no station quality known yet, no trigger to set")
				return
			}

			trigger.Address = sta
			if err := c.SetChannelQualityTrigger(remote, []wifiext.QualityReport{trigger}); err != nil {
				klog.Errorf("error setting quality trigger on %s: %v", remote, err)
			}
		},
	}
}

// AssocStatusStrategy asks every access point for its stations.
func AssocStatusStrategy(interval time.Duration) Strategy {
	return Strategy{
		Name:     "assoc-status",
		Interval: interval,
		Apply: func(c *Controller) {
			for _, remote := range c.APs() {
				if err := c.RequestAssocStatus(remote); err != nil {
					klog.Errorf("error requesting association status from %s: %v", remote, err)
				}
			}
		},
	}
}

// StationPlacement pins a station to the access point with radio address AP.
type StationPlacement struct {
	Station wifiext.MAC
	AP      wifiext.MAC
}

// ConfigAssocStrategy hands off every placed station that is associated
// somewhere else.
func ConfigAssocStrategy(interval time.Duration, placements []StationPlacement) Strategy {
	return Strategy{
		Name:     "config-assoc",
		Interval: interval,
		Apply: func(c *Controller) {
			for _, placement := range placements {
				target, ok := c.APByHardwareAddr(placement.AP)
				if !ok {
					continue
				}
				current, ok := c.status.AssociatedAP(placement.Station)
				if !ok || current == target {
					continue
				}
				if _, busy := c.PendingHandoff(placement.Station); busy {
					continue
				}
				if err := c.Handoff(placement.Station, current, target); err != nil {
					klog.Errorf("error handing off %s: %v", placement.Station, err)
				}
			}
		},
	}
}

// LogNetworkStatusStrategy logs what the controller knows.
func LogNetworkStatusStrategy(interval time.Duration) Strategy {
	return Strategy{
		Name:     "log-network-status",
		Interval: interval,
		Apply: func(c *Controller) {
			for _, remote := range c.APs() {
				klog.Infof("access point %s", c.aps[remote])
			}
			c.status.PrintChannelQuality()
			c.status.PrintAssocStatus()
		},
	}
}
