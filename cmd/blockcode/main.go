// Command blockcode renders and runs block programs.
package main

func main() {
	Execute()
}
