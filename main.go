// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/myndy/locintel/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
