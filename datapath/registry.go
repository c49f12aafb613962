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
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Registry maps datapath ids to their wifi devices.
type Registry struct {
	sync.Mutex

	store map[uint64]*Datapath
}

func NewRegistry() *Registry {
	return &Registry{
		store: make(map[uint64]*Datapath),
	}
}

func (r *Registry) Add(dp *Datapath) {
	r.Lock()
	defer r.Unlock()

	r.store[dp.ID] = dp
}

// Get returns the datapath with the given id, or ErrNoDevice.
func (r *Registry) Get(id uint64) (*Datapath, error) {
	r.Lock()
	defer r.Unlock()

	dp, exists := r.store[id]
	if !exists {
		return nil, errors.Wrapf(ErrNoDevice, "datapath %016x is not registered", id)
	}
	return dp, nil
}

func (r *Registry) Delete(id uint64) {
	r.Lock()
	defer r.Unlock()

	delete(r.store, id)
}

// IDs returns the registered datapath ids in ascending order.
func (r *Registry) IDs() []uint64 {
	r.Lock()
	defer r.Unlock()

	ids := make([]uint64, 0, len(r.store))
	for id := range r.store {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
