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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildStrategies(t *testing.T) {
	testcases := []struct {
		name     string
		modify   func(cfg *config.ControllerConfig)
		expected []string
		wantErr  bool
	}{
		{
			name:     "defaults",
			modify:   func(cfg *config.ControllerConfig) {},
			expected: []string{"config-channel", "channel-quality-report", "channel-quality-trigger", "assoc-status", "log-network-status"},
		},
		{
			name: "disabled strategies are skipped",
			modify: func(cfg *config.ControllerConfig) {
				cfg.Strategies = config.Strategies{AssocStatus: time.Second}
			},
			expected: []string{"assoc-status"},
		},
		{
			name: "placements",
			modify: func(cfg *config.ControllerConfig) {
				cfg.Strategies = config.Strategies{ConfigAssoc: time.Second}
				cfg.Placements = []config.Placement{{Station: "00:00:00:00:00:01", AP: "aa:bb:cc:dd:ee:ff"}}
			},
			expected: []string{"config-assoc"},
		},
		{
			name: "invalid placement",
			modify: func(cfg *config.ControllerConfig) {
				cfg.Strategies = config.Strategies{ConfigAssoc: time.Second}
				cfg.Placements = []config.Placement{{Station: "bad", AP: "aa:bb:cc:dd:ee:ff"}}
			},
			wantErr: true,
		},
	}

	for _, testcase := range testcases {
		t.Run(testcase.name, func(t *testing.T) {
			cfg := config.DefaultControllerConfig()
			testcase.modify(cfg)

			strategies, err := buildStrategies(cfg)
			if testcase.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var names []string
			for _, strategy := range strategies {
				names = append(names, strategy.Name)
				assert.Greater(t, int64(strategy.Interval), int64(0))
			}
			assert.Equal(t, testcase.expected, names)
		})
	}
}
