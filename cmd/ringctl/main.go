// Command ringctl is an operator CLI for inspecting and exercising the
// ring metadata engine outside of an embedding process: hashing keys
// to tokens, validating topology configuration, and reporting the
// build's module version.
package main

import "github.com/devrev/pairdb/ringmeta/cmd/ringctl/cmd"

func main() {
	cmd.Execute()
}
