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
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
)

// OpenCaptureFile opens a pcap file of radiotap encapsulated 802.11 frames,
// so a recorded capture can be replayed through Monitor.Run.
func OpenCaptureFile(path string) (*gopacket.PacketSource, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error opening capture file")
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "error reading capture file %s", path)
	}

	if r.LinkType() != layers.LinkTypeIEEE80211Radio {
		f.Close()
		return nil, nil, errors.Errorf("capture file %s has link type %s, expected radiotap", path, r.LinkType())
	}

	return gopacket.NewPacketSource(r, r.LinkType()), f, nil
}
