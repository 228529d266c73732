package main

import "github.com/mosquedir/mosqueadmin/cmd"

func main() {
	cmd.Execute()
}
