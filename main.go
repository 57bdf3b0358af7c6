// Command birdwall collects bird wallpapers and records them in a manifest.
package main

import "github.com/JakeFAU/birdwall/cmd"

func main() {
	cmd.Execute()
}
