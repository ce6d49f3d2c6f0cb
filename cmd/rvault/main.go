// Command rvault is the interactive front-end for the vault core: it
// wires cobra/viper configuration and a devlog-backed logger around the
// library in the parent package.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
