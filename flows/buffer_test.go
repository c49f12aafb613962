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
	"testing"
)

func Test_AddFlow(t *testing.T) {
	flows := []*Flow{
		{
			table:    0,
			priority: 100,
			dlDest:   "02:00:00:00:00:01",
			output:   3,
		},
		{
			table:    0,
			priority: 100,
			inPort:   3,
			dlSrc:    "02:00:00:00:00:01",
			normal:   true,
		},
		{
			table:    0,
			priority: 10,
			inPort:   3,
			drop:     true,
		},
		{
			table:    0,
			priority: 0,
			normal:   true,
		},
	}

	expectedBufferString := `table=0 priority=100 dl_dst=02:00:00:00:00:01 actions=output:3
table=0 priority=100 in_port=3 dl_src=02:00:00:00:00:01 actions=normal
table=0 priority=10 in_port=3 actions=drop
table=0 priority=0 actions=normal
`

	flowsBuffer := NewFlowsBuffer()
	for _, flow := range flows {
		flowsBuffer.AddFlow(flow)
	}

	actualBufferString := flowsBuffer.String()
	if actualBufferString != expectedBufferString {
		t.Logf("actual buffer string: %q", actualBufferString)
		t.Logf("expected buffer string: %q", expectedBufferString)
		t.Errorf("unexpected buffer string")
	}

	if flowsBuffer.Len() != len(flows) {
		t.Errorf("expected %d flows, got %d", len(flows), flowsBuffer.Len())
	}

	flowsBuffer.Reset()
	if flowsBuffer.Len() != 0 || flowsBuffer.String() != "" {
		t.Errorf("buffer not empty after reset: %q", flowsBuffer.String())
	}
}
