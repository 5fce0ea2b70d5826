// Command waychat runs the WayChat assistant as a one-shot CLI, a terminal
// chat panel or a web widget server.
package main

import "github.com/diogo/waychat/internal/commands"

func main() {
	commands.Execute()
}
