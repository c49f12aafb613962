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

package datapath

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

func Test_QualityTableRunningStats(t *testing.T) {
	table := NewQualityTable()
	samples := []float64{-40, -42, -44, -46, -48}
	for _, sample := range samples {
		_, fired := table.Update(sta1, sample)
		assert.False(t, fired)
	}

	report, ok := table.Report(sta1)
	require.True(t, ok)
	assert.Equal(t, sta1, report.Address)
	assert.Equal(t, uint64(5), report.Packets)
	assert.InDelta(t, -44, report.RxPowerAvg, 1e-9)
	// population standard deviation of the samples
	assert.InDelta(t, math.Sqrt(8), report.RxPowerStd, 1e-9)

	_, ok = table.Report(sta2)
	assert.False(t, ok)
}

func Test_QualityTableMatchesBatchStats(t *testing.T) {
	signal := distuv.Normal{Mu: -65, Sigma: 6, Src: rand.NewPCG(1, 2)}
	samples := make([]float64, 10000)
	for i := range samples {
		samples[i] = signal.Rand()
	}

	table := NewQualityTable()
	for _, sample := range samples {
		table.Update(sta1, sample)
	}

	mean, std := stat.PopMeanStdDev(samples, nil)
	report, ok := table.Report(sta1)
	require.True(t, ok)
	assert.InDelta(t, mean, report.RxPowerAvg, 1e-6)
	assert.InDelta(t, std, report.RxPowerStd, 1e-6)
}

func Test_QualityTableSingleSample(t *testing.T) {
	table := NewQualityTable()
	table.Update(sta1, -60)

	report, ok := table.Report(sta1)
	require.True(t, ok)
	assert.Equal(t, -60.0, report.RxPowerAvg)
	assert.Zero(t, report.RxPowerStd)
}

func Test_QualityTableTriggers(t *testing.T) {
	testcases := []struct {
		name      string
		trigger   wifiext.QualityReport
		samples   []float64
		firesAt   int
		wantFired bool
	}{
		{
			name:      "mean below threshold after enough packets",
			trigger:   wifiext.QualityReport{Packets: 3, RxPowerAvg: -50, RxPowerStd: 100},
			samples:   []float64{-60, -60, -60, -60},
			firesAt:   2,
			wantFired: true,
		},
		{
			name:      "std above threshold",
			trigger:   wifiext.QualityReport{Packets: 2, RxPowerAvg: -100, RxPowerStd: 1},
			samples:   []float64{-40, -50},
			firesAt:   1,
			wantFired: true,
		},
		{
			name:    "healthy link never fires",
			trigger: wifiext.QualityReport{Packets: 1, RxPowerAvg: -70, RxPowerStd: 5},
			samples: []float64{-41, -40, -41, -40},
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			table := NewQualityTable()
			table.Update(sta1, -40)

			trigger := testcase.trigger
			trigger.Address = sta1
			require.NoError(t, table.SetTriggers([]wifiext.QualityReport{trigger}))
			armed, ok := table.Armed(sta1)
			require.True(t, ok)
			assert.Equal(t, trigger, armed)

			fired := -1
			for i, sample := range testcase.samples {
				report, ok := table.Update(sta1, sample)
				if ok {
					assert.Equal(t, -1, fired, "trigger fired twice")
					assert.Equal(t, sta1, report.Address)
					fired = i
				}
			}

			if !testcase.wantFired {
				assert.Equal(t, -1, fired)
				_, ok := table.Armed(sta1)
				assert.True(t, ok)
				return
			}
			assert.Equal(t, testcase.firesAt, fired)
			_, ok = table.Armed(sta1)
			assert.False(t, ok)
		})
	}
}

func Test_QualityTableTriggerAllOrNothing(t *testing.T) {
	table := NewQualityTable()
	table.Update(sta1, -40)
	table.Update(sta2, -50)

	err := table.SetTriggers([]wifiext.QualityReport{
		{Address: sta1, Packets: 1},
		{Address: sta3, Packets: 1},
		{Address: sta2, Packets: 1},
	})
	assert.Equal(t, ErrUnknownStation, errors.Cause(err))

	_, armed := table.Armed(sta1)
	assert.False(t, armed)
	_, armed = table.Armed(sta2)
	assert.False(t, armed)
	assert.Equal(t, 2, table.Len())
}

func Test_QualityTableReportsSorted(t *testing.T) {
	table := NewQualityTable()
	for _, sta := range []wifiext.MAC{sta3, sta1, sta2} {
		table.Update(sta, -40)
	}

	reports := table.Reports()
	require.Len(t, reports, 3)
	assert.Equal(t, sta1, reports[0].Address)
	assert.Equal(t, sta2, reports[1].Address)
	assert.Equal(t, sta3, reports[2].Address)
}
