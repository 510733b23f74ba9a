// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The dominobus Authors
//
// dominobus - Domino home-automation bus tool
//
// A CLI for reading and driving Domino bus modules and bridging them to
// MQTT / Home Assistant.

package main

import (
	"os"

	"github.com/dominohub/dominobus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
