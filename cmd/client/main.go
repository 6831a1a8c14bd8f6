package main

import "savesync/cmd/client/cmd"

func main() {
	cmd.Execute()
}
