// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/calcpack/calcpack/cmd/calcpack"

func main() {
	cmd.Execute()
}
