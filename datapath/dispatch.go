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
	"sync"

	"github.com/k-vswitch/ofwifi/wifiext"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

// HandlerFunc handles one decoded experimenter message addressed to dp.
// Replies are queued on s.
type HandlerFunc func(dp *Datapath, msg wifiext.Message, s Sender) error

// Dispatcher routes experimenter messages to the handler registered for their
// subtype, resolving the target datapath through a Registry.
type Dispatcher struct {
	registry *Registry

	mu       sync.RWMutex
	handlers map[wifiext.Subtype]HandlerFunc
}

// NewDispatcher returns a dispatcher with a handler for every request a
// controller sends.
func NewDispatcher(registry *Registry) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		handlers: make(map[wifiext.Subtype]HandlerFunc),
	}

	d.Register(wifiext.ChannelConfigRequest, HandleChannelConfigRequest)
	d.Register(wifiext.ChannelSet, HandleChannelSet)
	d.Register(wifiext.ChannelQualityRequest, HandleChannelQualityRequest)
	d.Register(wifiext.ChannelQualityTriggerSet, HandleChannelQualityTriggerSet)
	d.Register(wifiext.AssocStatusRequest, HandleAssocStatusRequest)
	d.Register(wifiext.DisassocConfig, HandleDisassocConfig)
	d.Register(wifiext.AssocConfig, HandleAssocConfig)
	return d
}

// Register replaces the handler for subtype. A nil handler removes it.
func (d *Dispatcher) Register(subtype wifiext.Subtype, handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if handler == nil {
		delete(d.handlers, subtype)
		return
	}
	d.handlers[subtype] = handler
}

// Dispatch runs the handler for msg against datapath id.
func (d *Dispatcher) Dispatch(id uint64, msg wifiext.Message, s Sender) error {
	d.mu.RLock()
	handler, ok := d.handlers[msg.Subtype()]
	d.mu.RUnlock()

	if !ok {
		return errors.Wrapf(ErrUnsupported, "no handler for %s", msg.Subtype())
	}

	dp, err := d.registry.Get(id)
	if err != nil {
		return err
	}

	klog.V(2).Infof("datapath %016x: handling %s", id, msg)
	return handler(dp, msg, s)
}
