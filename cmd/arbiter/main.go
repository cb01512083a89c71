// Command arbiter is the compliance verification CLI.
package main

import "github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/cli"

func main() {
	cli.Execute()
}
