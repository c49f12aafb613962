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

import (
	"encoding/binary"

	"github.com/Kmotiko/gofc/ofprotocol/ofp13"
	"github.com/pkg/errors"
	"k8s.io/klog"
)

// ofpVersion is OpenFlow 1.3.
const ofpVersion = 4

// Pack encodes m into a newly allocated buffer of exactly its wire size.
// The caller owns the returned buffer.
func Pack(m Message) ([]byte, error) {
	if m == nil {
		return nil, errors.New("cannot pack a nil message")
	}

	subtype := m.Subtype()
	if !subtype.Valid() {
		return nil, errors.Wrapf(ErrBadSubtype, "cannot pack subtype %d", uint32(subtype))
	}

	size := ExtHeaderLen + m.bodyLen()
	if size > maxMessageLen {
		return nil, errors.Wrapf(ErrTooLarge, "%s is %d bytes, limit is %d", subtype, size, maxMessageLen)
	}

	buf := make([]byte, size)
	buf[0] = ofpVersion
	buf[1] = ofp13.OFPT_EXPERIMENTER
	binary.BigEndian.PutUint16(buf[2:], uint16(size))
	binary.BigEndian.PutUint32(buf[4:], m.GetXid())
	binary.BigEndian.PutUint32(buf[8:], VendorID)
	binary.BigEndian.PutUint32(buf[12:], uint32(subtype))
	m.packBody(buf[ExtHeaderLen:])

	return buf, nil
}

// Unpack decodes the experimenter message at the start of buf and returns it
// with the number of bytes consumed. Every size is validated before the
// bytes it covers are read, and all variable length members of the result are
// copied out of buf.
func Unpack(buf []byte) (Message, int, error) {
	if len(buf) < ofpHeaderLen {
		return nil, 0, errors.Wrapf(ErrBadLength, "buffer is %d bytes, shorter than an OpenFlow header", len(buf))
	}

	if buf[1] != ofp13.OFPT_EXPERIMENTER {
		return nil, 0, errors.Wrapf(ErrBadType, "message type %d", buf[1])
	}

	declared := int(binary.BigEndian.Uint16(buf[2:]))
	if declared < ExtHeaderLen {
		return nil, 0, errors.Wrapf(ErrBadLength, "declared length %d is shorter than the experimenter header", declared)
	}
	if declared > len(buf) {
		return nil, 0, errors.Wrapf(ErrBadLength, "declared length %d, only %d bytes received", declared, len(buf))
	}
	msg := buf[:declared]

	vendor := binary.BigEndian.Uint32(msg[8:])
	if vendor != VendorID {
		return nil, 0, errors.Wrapf(ErrBadExperimenter, "experimenter id 0x%08x", vendor)
	}

	subtype := Subtype(binary.BigEndian.Uint32(msg[12:]))
	m := newMessage(subtype)
	if m == nil {
		return nil, 0, errors.Wrapf(ErrBadSubtype, "subtype %d", uint32(subtype))
	}

	if err := m.unpackBody(msg[ExtHeaderLen:]); err != nil {
		return nil, 0, err
	}
	m.SetXid(binary.BigEndian.Uint32(msg[4:]))

	return m, declared, nil
}

// Frame carries a Message through code written against gofc's ofp13.OFMessage,
// so experimenter messages share send queues with core OpenFlow messages.
type Frame struct {
	Msg Message
	// Err is set by Parse when the packet could not be decoded.
	Err error
}

func NewFrame(m Message) *Frame {
	return &Frame{Msg: m}
}

// Serialize returns nil if the message cannot be packed.
func (f *Frame) Serialize() []byte {
	buf, err := Pack(f.Msg)
	if err != nil {
		klog.Errorf("error packing wifi experimenter message: %v", err)
		return nil
	}
	return buf
}

func (f *Frame) Parse(packet []byte) {
	f.Msg, _, f.Err = Unpack(packet)
}

func (f *Frame) Size() int {
	if f.Msg == nil {
		return 0
	}
	return ExtHeaderLen + f.Msg.bodyLen()
}
