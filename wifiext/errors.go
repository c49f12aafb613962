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
)

var (
	// ErrBadLength reports a buffer shorter or longer than its declared layout.
	ErrBadLength = errors.New("bad length")
	// ErrBadExperimenter reports an experimenter message of another vendor.
	ErrBadExperimenter = errors.New("bad experimenter")
	// ErrBadSubtype reports an unknown wifi experimenter subtype.
	ErrBadSubtype = errors.New("bad experimenter subtype")
	// ErrBadType reports a buffer that is not an OFPT_EXPERIMENTER message.
	ErrBadType = errors.New("not an experimenter message")
	// ErrTooLarge reports a message that does not fit the OpenFlow length field.
	ErrTooLarge = errors.New("message too large")
)

// maxErrorData is how much of an offending request an OFPT_ERROR echoes back.
const maxErrorData = 64

// ErrorCode maps a codec error to the OpenFlow error type and code a datapath
// answers with. Errors not produced by the codec map to OFPBRC_EPERM.
func ErrorCode(err error) (uint16, uint16) {
	switch errors.Cause(err) {
	case ErrBadLength, ErrTooLarge:
		return ofp13.OFPET_BAD_REQUEST, ofp13.OFPBRC_BAD_LEN
	case ErrBadExperimenter:
		return ofp13.OFPET_BAD_REQUEST, ofp13.OFPBRC_BAD_EXPERIMENTER
	case ErrBadSubtype:
		return ofp13.OFPET_BAD_REQUEST, ofp13.OFPBRC_BAD_EXP_TYPE
	case ErrBadType:
		return ofp13.OFPET_BAD_REQUEST, ofp13.OFPBRC_BAD_TYPE
	}
	return ofp13.OFPET_BAD_REQUEST, ofp13.OFPBRC_EPERM
}

// errorMsgLen is the fixed part of ofp_error_msg: header, type and code.
const errorMsgLen = ofpHeaderLen + 4

// ErrorMsg is an OFPT_ERROR that serializes to its wire length.
// ofp13.OfpErrorMsg sizes itself four bytes longer and pads the data with
// zeros, so only its fields and header serialization are used.
type ErrorMsg struct {
	*ofp13.OfpErrorMsg
}

// NewErrorMsg builds the OFPT_ERROR sent in response to request.
func NewErrorMsg(xid uint32, err error, request []byte) *ErrorMsg {
	m := &ErrorMsg{ofp13.NewOfpErrorMsg()}
	m.Header.Xid = xid
	m.Type, m.Code = ErrorCode(err)

	n := len(request)
	if n > maxErrorData {
		n = maxErrorData
	}
	m.Data = append([]uint8(nil), request[:n]...)
	m.Header.Length = uint16(m.Size())
	return m
}

func (m *ErrorMsg) Serialize() []byte {
	packet := make([]byte, m.Size())
	copy(packet, m.Header.Serialize())
	binary.BigEndian.PutUint16(packet[ofpHeaderLen:], m.Type)
	binary.BigEndian.PutUint16(packet[ofpHeaderLen+2:], m.Code)
	copy(packet[errorMsgLen:], m.Data)
	return packet
}

func (m *ErrorMsg) Size() int {
	return errorMsgLen + len(m.Data)
}
