// Package main provides the traybadge CLI.
package main

func main() {
	Execute()
}
