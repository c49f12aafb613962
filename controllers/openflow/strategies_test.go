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
	"testing"
	"time"

	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoAPs(t *testing.T) (*Controller, *fakeConnManager) {
	f := newFakeConnManager()
	c := NewController(f, nil)
	connectAP(t, c, f, remoteA, 1, hwA, channel1)
	connectAP(t, c, f, remoteB, 2, hwB, channel13)
	return c, f
}

func Test_ConfigChannelStrategy(t *testing.T) {
	c, f := twoAPs(t)

	ConfigChannelStrategy(time.Second, DefaultChannel).Apply(c)

	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultChannel, msgs[0].(*wifiext.ChannelSetMsg).Channel)
	assert.Empty(t, f.take(remoteB))
	assert.Equal(t, []string{remoteA, remoteB}, c.Status().FrequencyUsers(2472, 20))

	// everyone is on the channel now
	ConfigChannelStrategy(time.Second, DefaultChannel).Apply(c)
	assert.Empty(t, f.take(remoteA))
}

func Test_ChannelQualityReportStrategy(t *testing.T) {
	c, f := twoAPs(t)

	ChannelQualityReportStrategy(time.Second).Apply(c)

	for _, remote := range []string{remoteA, remoteB} {
		msgs := f.takeWifi(t, remote)
		require.Len(t, msgs, 1)
		assert.Equal(t, wifiext.Broadcast, msgs[0].(*wifiext.ChannelQualityRequestMsg).Address)
	}
}

func Test_ChannelQualityTriggerStrategy(t *testing.T) {
	c, f := twoAPs(t)
	strategy := ChannelQualityTriggerStrategy(time.Second, DefaultTrigger)

	strategy.Apply(c)
	assert.Empty(t, f.take(remoteA))
	assert.Empty(t, f.take(remoteB))

	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.ChannelQualityReplyMsg{
		Reports: []wifiext.QualityReport{{Address: sta1, Packets: 5, RxPowerAvg: -50}},
	}))
	require.NoError(t, c.HandleExperimenter(remoteB, &wifiext.ChannelQualityReplyMsg{
		Reports: []wifiext.QualityReport{{Address: sta1, Packets: 5, RxPowerAvg: -40}},
	}))

	strategy.Apply(c)
	assert.Empty(t, f.take(remoteA))
	msgs := f.takeWifi(t, remoteB)
	require.Len(t, msgs, 1)

	expected := DefaultTrigger
	expected.Address = sta1
	assert.Equal(t, []wifiext.QualityReport{expected}, msgs[0].(*wifiext.ChannelQualityTriggerSetMsg).Triggers)
}

func Test_AssocStatusStrategy(t *testing.T) {
	c, f := twoAPs(t)

	AssocStatusStrategy(time.Second).Apply(c)

	for _, remote := range []string{remoteA, remoteB} {
		msgs := f.takeWifi(t, remote)
		require.Len(t, msgs, 1)
		assert.IsType(t, &wifiext.AssocStatusRequestMsg{}, msgs[0])
	}
}

func Test_ConfigAssocStrategy(t *testing.T) {
	c, f := twoAPs(t)
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.AssocStatusReplyMsg{Stations: []wifiext.MAC{sta1, sta2}}))

	strategy := ConfigAssocStrategy(time.Second, []StationPlacement{
		{Station: sta1, AP: hwB},
		{Station: sta2, AP: hwA},
		{Station: wifiext.MAC{0x02, 0, 0, 0, 0, 0x09}, AP: hwB},
		{Station: sta2, AP: wifiext.MAC{0x02, 0, 0, 0, 0, 0x10}},
	})

	strategy.Apply(c)
	msgs := f.takeWifi(t, remoteA)
	require.Len(t, msgs, 1)
	assert.Equal(t, sta1, msgs[0].(*wifiext.DisassocConfigMsg).Station)

	// the handoff in flight is not restarted
	strategy.Apply(c)
	assert.Empty(t, f.take(remoteA))
}

func Test_LogNetworkStatusStrategy(t *testing.T) {
	c, f := twoAPs(t)
	require.NoError(t, c.HandleExperimenter(remoteA, &wifiext.ChannelQualityReplyMsg{
		Reports: []wifiext.QualityReport{{Address: sta1, Packets: 5}, {Address: hwB, Packets: 2}},
	}))

	LogNetworkStatusStrategy(time.Second).Apply(c)
	assert.Empty(t, f.take(remoteA))
}

func Test_Run(t *testing.T) {
	t.Run("strategies run until stopped", func(t *testing.T) {
		f := newFakeConnManager()
		applied := make(chan struct{}, 1)
		c := NewController(f, nil, Strategy{
			Name:     "probe",
			Interval: time.Millisecond,
			Apply: func(*Controller) {
				select {
				case applied <- struct{}{}:
				default:
				}
			},
		})

		stopCh := make(chan struct{})
		done := make(chan struct{})
		go func() {
			c.Run(stopCh)
			close(done)
		}()

		select {
		case <-applied:
		case <-time.After(5 * time.Second):
			t.Fatal("strategy never ran")
		}

		close(stopCh)
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("controller did not stop")
		}
	})

	t.Run("closed event channel", func(t *testing.T) {
		f := newFakeConnManager()
		c := NewController(f, nil)

		done := make(chan struct{})
		go func() {
			c.Run(make(chan struct{}))
			close(done)
		}()

		close(f.events)
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("controller did not stop")
		}
	})
}
