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
	"testing"
	"time"

	"github.com/k-vswitch/ofwifi/config"
	"github.com/k-vswitch/ofwifi/datapath"
	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_OpenSimDevice(t *testing.T) {
	cfg := config.DefaultAgentConfig()
	cfg.Sim.Interval = time.Millisecond
	cfg.Sim.Stations = []config.SimStation{
		{Address: "00:00:00:00:00:01", RxPowerAvg: -40, Associated: true},
		{Address: "00:00:00:00:00:02", RxPowerAvg: -70},
	}

	dev, err := openSimDevice(cfg)
	require.NoError(t, err)
	defer dev.close()

	sta1 := wifiext.MAC{0, 0, 0, 0, 0, 1}
	sta2 := wifiext.MAC{0, 0, 0, 0, 0, 2}
	hwAddr := wifiext.MAC{0x02, 0, 0, 0, 0x01, 0}
	assert.Equal(t, hwAddr, dev.radio.HardwareAddr())

	ch, err := dev.radio.Channel()
	require.NoError(t, err)
	assert.Equal(t, cfg.Sim.Channel.Info(), ch)

	var changes []wifiext.MAC
	dev.ap.OnChange(func(sta wifiext.MAC, associated bool) {
		assert.True(t, associated)
		changes = append(changes, sta)
	})

	dp := datapath.NewDatapath(cfg.DatapathID, dev.radio, dev.ap)
	monitor := datapath.NewMonitor(dp)

	stopCh := make(chan struct{})
	defer close(stopCh)
	require.NoError(t, dev.start(monitor, stopCh))

	assert.Equal(t, []wifiext.MAC{sta1}, changes)
	stations, err := dev.ap.Stations()
	require.NoError(t, err)
	assert.Equal(t, []wifiext.MAC{sta1}, stations)

	frame, err := dev.ap.ManagementFrame(sta1)
	require.NoError(t, err)
	assert.NotEmpty(t, frame)

	assert.Eventually(t, func() bool {
		_, ok1 := dp.Quality.Report(sta1)
		_, ok2 := dp.Quality.Report(sta2)
		return ok1 && ok2
	}, 5*time.Second, 10*time.Millisecond)
}

func Test_OpenSimDeviceInvalidAddress(t *testing.T) {
	cfg := config.DefaultAgentConfig()
	cfg.Sim.HardwareAddr = "nope"

	_, err := openSimDevice(cfg)
	assert.Error(t, err)
}
