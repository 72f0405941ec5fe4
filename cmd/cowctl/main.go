// Command cowctl drives a cowtarget device from the command line: it can
// lay out a fresh cow device, activate a target against a pair of files for
// inspection, or serve a simple line-oriented read/write protocol against
// one for manual testing.
package main

import "github.com/dmcow/cowtarget/cmd/cowctl/cmd"

func main() {
	cmd.Execute()
}
