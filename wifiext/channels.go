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

package wifiext

import "sort"

// ChannelPlan lists every (channel, frequency, width) combination a radio may
// be configured with, ordered by frequency then width.
var ChannelPlan = buildChannelPlan()

func buildChannelPlan() []ChannelInfo {
	plan := make([]ChannelInfo, 0, 64)

	// 2.4 GHz
	for n := uint8(1); n <= 13; n++ {
		plan = append(plan, ChannelInfo{Number: n, Frequency: 2407 + 5*uint16(n), Width: 20})
	}
	plan = append(plan, ChannelInfo{Number: 14, Frequency: 2484, Width: 20})
	for n := uint8(3); n <= 11; n++ {
		plan = append(plan, ChannelInfo{Number: n, Frequency: 2407 + 5*uint16(n), Width: 40})
	}

	// 5 GHz
	add5 := func(width uint16, numbers ...uint8) {
		for _, n := range numbers {
			plan = append(plan, ChannelInfo{Number: n, Frequency: 5000 + 5*uint16(n), Width: width})
		}
	}
	add5(20, 36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108, 112, 116, 120, 124, 128,
		132, 136, 140, 144, 149, 153, 157, 161, 165)
	add5(40, 38, 46, 54, 62, 102, 110, 118, 126, 134, 142, 151, 159)
	add5(80, 42, 58, 106, 122, 138, 155)
	add5(160, 50, 114)

	sort.Slice(plan, func(i, j int) bool {
		if plan[i].Frequency != plan[j].Frequency {
			return plan[i].Frequency < plan[j].Frequency
		}
		return plan[i].Width < plan[j].Width
	})
	return plan
}

// ChannelByFrequency returns the plan entry for a center frequency and width.
func ChannelByFrequency(frequency, width uint16) (ChannelInfo, bool) {
	for _, ch := range ChannelPlan {
		if ch.Frequency == frequency && ch.Width == width {
			return ch, true
		}
	}
	return ChannelInfo{}, false
}

// Is24GHz reports whether the channel is in the 2.4 GHz band.
func (c ChannelInfo) Is24GHz() bool {
	return c.Frequency >= 2400 && c.Frequency < 2500
}
