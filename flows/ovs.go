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
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/k-vswitch/ofwifi/wifiext"
)

// OFPortFromName returns the OpenFlow port number OVS assigned to portName.
func OFPortFromName(portName string) (int, error) {
	command := []string{
		"get", "Interface", portName, "ofport",
	}

	out, err := exec.Command("ovs-vsctl", command...).CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("failed to get ofport for port %q, err: %v, out: %q", portName, err, out)
	}

	return parseOFPort(string(out))
}

func parseOFPort(out string) (int, error) {
	ofport, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("error converting ofport output %q to int: %v", out, err)
	}

	if ofport <= 0 {
		return 0, fmt.Errorf("port has no valid ofport: %d", ofport)
	}

	return ofport, nil
}

// MACAddrFromPort returns the hardware address OVS reports for portName.
func MACAddrFromPort(portName string) (wifiext.MAC, error) {
	commands := []string{
		"get", "Interface", portName, "mac_in_use",
	}

	out, err := exec.Command("ovs-vsctl", commands...).Output()
	if err != nil {
		return wifiext.MAC{}, fmt.Errorf("failed to get MAC address from OVS port for %q, err: %v, out: %q",
			portName, err, string(out))
	}

	return parseMAC(string(out))
}

func parseMAC(out string) (wifiext.MAC, error) {
	macAddr := strings.Trim(strings.TrimSpace(out), `"`)
	mac, err := wifiext.ParseMAC(macAddr)
	if err != nil {
		return wifiext.MAC{}, fmt.Errorf("invalid MAC address %q from OVS: %v", out, err)
	}
	return mac, nil
}
