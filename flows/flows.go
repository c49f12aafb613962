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

// Package flows renders ovs-ofctl flow text for the bridge of an access
// point and replaces the bridge's flow table with it.
package flows

import (
	"fmt"
	"strings"
)

type Flow struct {
	table    int
	priority int
	inPort   int
	output   int

	dlDest string
	dlSrc  string

	normal bool
	drop   bool
}

func NewFlow() *Flow {
	return &Flow{}
}

func (f *Flow) String() string {
	flow := fmt.Sprintf("table=%d priority=%d", f.table, f.priority)

	if f.inPort != 0 {
		flow = fmt.Sprintf("%s in_port=%d", flow, f.inPort)
	}

	if f.dlDest != "" {
		flow = fmt.Sprintf("%s dl_dst=%s", flow, f.dlDest)
	}

	if f.dlSrc != "" {
		flow = fmt.Sprintf("%s dl_src=%s", flow, f.dlSrc)
	}

	var actionSet []string
	if f.output != 0 {
		actionSet = append(actionSet, fmt.Sprintf("output:%d", f.output))
	}

	if f.normal {
		actionSet = append(actionSet, "normal")
	}

	if f.drop {
		actionSet = append(actionSet, "drop")
	}

	actions := fmt.Sprintf("actions=%s", strings.Join(actionSet, ","))
	return fmt.Sprintf("%s %s", flow, actions)
}

// Flow Matchers
func (f *Flow) WithTable(table int) *Flow {
	f.table = table
	return f
}

func (f *Flow) WithPriority(priority int) *Flow {
	f.priority = priority
	return f
}

func (f *Flow) WithInPort(port int) *Flow {
	f.inPort = port
	return f
}

func (f *Flow) WithDlDest(dstMac string) *Flow {
	f.dlDest = dstMac
	return f
}

func (f *Flow) WithDlSrc(srcMac string) *Flow {
	f.dlSrc = srcMac
	return f
}

// Actions
func (f *Flow) WithActionOutputPort(output int) *Flow {
	f.output = output
	return f
}

func (f *Flow) WithActionNormal() *Flow {
	f.normal = true
	return f
}

func (f *Flow) WithActionDrop() *Flow {
	f.drop = true
	return f
}
