// Command furrow submits instructions to a furrow ledger and inspects its records.
package main

func main() {
	Execute()
}
