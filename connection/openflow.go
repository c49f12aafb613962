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

package connection

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/k-vswitch/ofwifi/wifiext"
)

const (
	// headerLen is the size of the OpenFlow header every message starts with.
	headerLen = 8
	// featuresReplyLen is the size of an OpenFlow 1.3 OFPT_FEATURES_REPLY.
	featuresReplyLen = 32
)

func SerializeMessage(msg ofp13.OFMessage) []byte {
	return msg.Serialize()
}

// ParseMessage decodes one framed OpenFlow message. Wifi experimenter
// messages come back as a *wifiext.Frame, messages that carry nothing past
// the header as a *ofp13.OfpHeader, everything else is left to ofp13.Parse.
func ParseMessage(buf []byte) (ofp13.OFMessage, error) {
	if len(buf) < headerLen {
		return nil, fmt.Errorf("message is %d bytes, shorter than an OpenFlow header", len(buf))
	}

	switch buf[1] {
	case ofp13.OFPT_EXPERIMENTER:
		frame := &wifiext.Frame{}
		frame.Parse(buf)
		if frame.Err != nil {
			return nil, frame.Err
		}
		return frame, nil

	case ofp13.OFPT_HELLO, ofp13.OFPT_ECHO_REQUEST, ofp13.OFPT_ECHO_REPLY,
		ofp13.OFPT_FEATURES_REQUEST, ofp13.OFPT_BARRIER_REQUEST, ofp13.OFPT_BARRIER_REPLY:
		// hello elements are not needed for version negotiation with a
		// single supported version
		header := &ofp13.OfpHeader{}
		header.Parse(buf)
		return header, nil

	case ofp13.OFPT_FEATURES_REPLY:
		if len(buf) < featuresReplyLen {
			return nil, fmt.Errorf("features reply is %d bytes, want %d", len(buf), featuresReplyLen)
		}

	case ofp13.OFPT_ERROR:
		if len(buf) < headerLen+4 {
			return nil, fmt.Errorf("error message is %d bytes, want at least %d", len(buf), headerLen+4)
		}
	}

	msg := ofp13.Parse(buf)
	if msg == nil {
		return nil, fmt.Errorf("unsupported OpenFlow message type %d", buf[1])
	}
	return msg, nil
}

// MessageLength returns the length declared in an OpenFlow header.
func MessageLength(buf []byte) (int, error) {
	if len(buf) < headerLen {
		return 0, fmt.Errorf("header is %d bytes, want %d", len(buf), headerLen)
	}

	// Length attribute in OFP header is uint16 read in BigEndian
	// buf[2:] because first byte is version, second byte is type and
	// length is next
	length := int(binary.BigEndian.Uint16(buf[2:]))
	if length < headerLen {
		return 0, fmt.Errorf("declared message length %d is shorter than the header", length)
	}

	return length, nil
}

// ReadMessage reads exactly one OpenFlow message from r.
func ReadMessage(r io.Reader) ([]byte, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length, err := MessageLength(header)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, length)
	copy(buf, header)
	if _, err := io.ReadFull(r, buf[headerLen:]); err != nil {
		return nil, err
	}

	return buf, nil
}

// FeaturesReply is an OFPT_FEATURES_REPLY that serializes its body
// correctly; only the header serialization of ofp13.OfpSwitchFeatures is used.
type FeaturesReply struct {
	*ofp13.OfpSwitchFeatures
}

func NewFeaturesReply(xid uint32, datapathID uint64) *FeaturesReply {
	m := ofp13.NewOfpFeaturesReply()
	m.Header.Xid = xid
	m.Header.Length = featuresReplyLen
	m.DatapathId = datapathID
	m.NTables = 1
	return &FeaturesReply{m}
}

func (m *FeaturesReply) Serialize() []byte {
	packet := make([]byte, featuresReplyLen)
	copy(packet, m.Header.Serialize())
	binary.BigEndian.PutUint64(packet[8:], m.DatapathId)
	binary.BigEndian.PutUint32(packet[16:], m.NBuffers)
	packet[20] = m.NTables
	packet[21] = m.AuxiliaryId
	binary.BigEndian.PutUint32(packet[24:], m.Capabilities)
	binary.BigEndian.PutUint32(packet[28:], m.Reserved)
	return packet
}

func (m *FeaturesReply) Size() int {
	return featuresReplyLen
}
