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
	"bytes"
	"math"
	"sort"
	"sync"

	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
)

type qualityRecord struct {
	packets uint64
	mean    float64
	m2      float64

	trigger    *wifiext.QualityReport
	sinceArmed uint64
}

func (r *qualityRecord) std() float64 {
	if r.packets < 2 {
		return 0
	}
	return math.Sqrt(r.m2 / float64(r.packets))
}

func (r *qualityRecord) report(addr wifiext.MAC) wifiext.QualityReport {
	return wifiext.QualityReport{
		Address:    addr,
		Packets:    r.packets,
		RxPowerAvg: r.mean,
		RxPowerStd: r.std(),
	}
}

// fired reports whether the armed trigger's conditions hold.
func (r *qualityRecord) fired() bool {
	t := r.trigger
	if t == nil || r.sinceArmed < t.Packets {
		return false
	}
	return r.mean < t.RxPowerAvg || r.std() > t.RxPowerStd
}

// QualityTable holds one running received power record per transmitter
// heard by a radio.
type QualityTable struct {
	mu      sync.Mutex
	records map[wifiext.MAC]*qualityRecord
}

func NewQualityTable() *QualityTable {
	return &QualityTable{
		records: make(map[wifiext.MAC]*qualityRecord),
	}
}

// Update folds one received power sample, in dBm, into the record of src.
// When an armed trigger fires, the record at that moment is returned with
// true and the trigger is disarmed.
func (q *QualityTable) Update(src wifiext.MAC, rxPower float64) (wifiext.QualityReport, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.records[src]
	if !ok {
		r = &qualityRecord{}
		q.records[src] = r
	}

	r.packets++
	delta := rxPower - r.mean
	r.mean += delta / float64(r.packets)
	r.m2 += delta * (rxPower - r.mean)

	if r.trigger == nil {
		return wifiext.QualityReport{}, false
	}
	r.sinceArmed++
	if !r.fired() {
		return wifiext.QualityReport{}, false
	}

	r.trigger = nil
	r.sinceArmed = 0
	return r.report(src), true
}

// Report returns the record of addr.
func (q *QualityTable) Report(addr wifiext.MAC) (wifiext.QualityReport, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.records[addr]
	if !ok {
		return wifiext.QualityReport{}, false
	}
	return r.report(addr), true
}

// Reports returns every record ordered by address.
func (q *QualityTable) Reports() []wifiext.QualityReport {
	q.mu.Lock()
	defer q.mu.Unlock()

	reports := make([]wifiext.QualityReport, 0, len(q.records))
	for addr, r := range q.records {
		reports = append(reports, r.report(addr))
	}
	sort.Slice(reports, func(i, j int) bool {
		return bytes.Compare(reports[i].Address[:], reports[j].Address[:]) < 0
	})
	return reports
}

func (q *QualityTable) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.records)
}

// SetTriggers arms one trigger per entry. Every address must already have a
// record; otherwise nothing is armed and ErrUnknownStation is returned.
func (q *QualityTable) SetTriggers(triggers []wifiext.QualityReport) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, t := range triggers {
		if _, ok := q.records[t.Address]; !ok {
			return errors.Wrapf(ErrUnknownStation, "cannot set trigger for %s", t.Address)
		}
	}

	for _, t := range triggers {
		t := t
		r := q.records[t.Address]
		r.trigger = &t
		r.sinceArmed = 0
	}
	return nil
}

// Armed returns the trigger armed for addr, if any.
func (q *QualityTable) Armed(addr wifiext.MAC) (wifiext.QualityReport, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.records[addr]
	if !ok || r.trigger == nil {
		return wifiext.QualityReport{}, false
	}
	return *r.trigger, true
}
