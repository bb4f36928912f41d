// Command timecard is the operator CLI for the rules engine: apply rules
// to time cards and inspect the derived lines without the HTTP server.
package main

func main() {
	Execute()
}
