// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/rackham/cmd/rackham/cmd"
)

func main() {
	cmd.Execute()
}
