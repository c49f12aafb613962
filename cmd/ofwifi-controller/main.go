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
	"github.com/k-vswitch/ofwifi/controllers/openflow"

	"k8s.io/klog"
)

func main() {
	var configFile string
	var listenAddr string

	flag.StringVar(&configFile, "config", "", "Path to the controller YAML configuration.")
	flag.StringVar(&listenAddr, "listen-addr", "", "Address to accept OpenFlow connections on, overrides the configuration.")

	klog.InitFlags(flag.CommandLine)
	flag.Parse()

	klog.Info("starting ofwifi-controller")

	cfg, err := config.LoadControllerConfig(configFile)
	if err != nil {
		klog.Errorf("error loading configuration: %v", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	strategies, err := buildStrategies(cfg)
	if err != nil {
		klog.Errorf("invalid strategy configuration: %v", err)
		os.Exit(1)
	}

	ofConnect, err := connection.NewOFConnect(cfg.ListenAddr)
	if err != nil {
		klog.Errorf("error creating OpenFlow listener: %v", err)
		os.Exit(1)
	}
	klog.Infof("accepting access points on %s", ofConnect.Addr())

	stopCh := make(chan struct{})

	term := make(chan os.Signal, 1)
	signal.Notify(term, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-term
		close(stopCh)
	}()

	go ofConnect.Serve(stopCh)

	controller := openflow.NewController(ofConnect, nil, strategies...)
	controller.Run(stopCh)

	klog.Info("ofwifi-controller stopped")
}

func buildStrategies(cfg *config.ControllerConfig) ([]openflow.Strategy, error) {
	var strategies []openflow.Strategy
	add := func(interval time.Duration, strategy func(time.Duration) openflow.Strategy) {
		if interval > 0 {
			strategies = append(strategies, strategy(interval))
		}
	}

	add(cfg.Strategies.ConfigChannel, func(interval time.Duration) openflow.Strategy {
		return openflow.ConfigChannelStrategy(interval, cfg.Channel.Info())
	})
	add(cfg.Strategies.ChannelQualityReport, openflow.ChannelQualityReportStrategy)
	add(cfg.Strategies.ChannelQualityTrigger, func(interval time.Duration) openflow.Strategy {
		return openflow.ChannelQualityTriggerStrategy(interval, cfg.Trigger.Report())
	})
	add(cfg.Strategies.AssocStatus, openflow.AssocStatusStrategy)
	add(cfg.Strategies.LogNetworkStatus, openflow.LogNetworkStatusStrategy)

	if cfg.Strategies.ConfigAssoc > 0 {
		placements := make([]openflow.StationPlacement, 0, len(cfg.Placements))
		for _, p := range cfg.Placements {
			sta, ap, err := p.Parse()
			if err != nil {
				return nil, err
			}
			placements = append(placements, openflow.StationPlacement{Station: sta, AP: ap})
		}
		strategies = append(strategies, openflow.ConfigAssocStrategy(cfg.Strategies.ConfigAssoc, placements))
	}

	for _, strategy := range strategies {
		klog.Infof("strategy %s runs every %s", strategy.Name, strategy.Interval)
	}
	return strategies, nil
}
