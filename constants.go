package main

import (
	"fmt"

	"pimine.team/miner/config"
)

// Print a figlet "pimine" banner.
// figlet -f small pimine | sed -e 's/\\/\\\\/g' -e 's/.*/fmt.Println("&")/'
func printBanner() {
	fmt.Println("         _       _          ")
	fmt.Println("  _ __  (_)_ __ (_)_ _  ___ ")
	fmt.Println(" | '_ \\ | | '  \\| | ' \\/ -_)")
	fmt.Println(" | .__/ |_|_|_|_|_|_||_\\___|")
	fmt.Println(" |_|                        ")
	fmt.Println()
}

func printVersion() {
	fmt.Printf("   %s (%s) %s\n", config.Version.Package, config.Version.Revision, config.Version.GoVersion)
	fmt.Println()
}
