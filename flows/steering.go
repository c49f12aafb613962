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

package flows

import (
	"bytes"
	"sort"
	"sync"

	"github.com/k-vswitch/ofwifi/wifiext"
	"k8s.io/klog"
)

const (
	stationPriority  = 100
	wlanDropPriority = 10
	defaultPriority  = 0
)

// Steering keeps the flow table of an access point bridge in step with the
// stations associated on its wireless port. Traffic to an associated
// station leaves on the wireless port, traffic from it is switched normally
// and anything else arriving on the wireless port is dropped.
type Steering struct {
	bridge   string
	wlanPort int

	mu       sync.Mutex
	stations map[wifiext.MAC]struct{}
	sync     func(bridge string, buffer *FlowsBuffer) error
}

func NewSteering(bridge string, wlanPort int) *Steering {
	return &Steering{
		bridge:   bridge,
		wlanPort: wlanPort,
		stations: make(map[wifiext.MAC]struct{}),
		sync: func(bridge string, buffer *FlowsBuffer) error {
			return buffer.SyncFlows(bridge)
		},
	}
}

// StationChanged updates the flows after sta joined or left. It can be
// chained into an access point's association callback.
func (s *Steering) StationChanged(sta wifiext.MAC, associated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if associated {
		s.stations[sta] = struct{}{}
	} else {
		delete(s.stations, sta)
	}

	if err := s.syncLocked(); err != nil {
		klog.Errorf("error syncing flows after %s changed: %v", sta, err)
	}
}

// Sync replaces the bridge flows with the flows of the current stations.
func (s *Steering) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.syncLocked()
}

func (s *Steering) syncLocked() error {
	buffer := s.buildFlows()
	klog.V(2).Infof("syncing %d flows to bridge %s", buffer.Len(), s.bridge)
	return s.sync(s.bridge, buffer)
}

func (s *Steering) buildFlows() *FlowsBuffer {
	stations := make([]wifiext.MAC, 0, len(s.stations))
	for sta := range s.stations {
		stations = append(stations, sta)
	}
	sort.Slice(stations, func(i, j int) bool {
		return bytes.Compare(stations[i][:], stations[j][:]) < 0
	})

	buffer := NewFlowsBuffer()
	for _, sta := range stations {
		buffer.AddFlow(NewFlow().WithTable(0).WithPriority(stationPriority).
			WithDlDest(sta.String()).WithActionOutputPort(s.wlanPort))
		buffer.AddFlow(NewFlow().WithTable(0).WithPriority(stationPriority).
			WithInPort(s.wlanPort).WithDlSrc(sta.String()).WithActionNormal())
	}

	buffer.AddFlow(NewFlow().WithTable(0).WithPriority(wlanDropPriority).
		WithInPort(s.wlanPort).WithActionDrop())
	buffer.AddFlow(NewFlow().WithTable(0).WithPriority(defaultPriority).WithActionNormal())
	return buffer
}
