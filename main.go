// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/podstrap/podstrap/cmd/podstrap"

func main() {
	cmd.Execute()
}
