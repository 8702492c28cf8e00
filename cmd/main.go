package main

import (
	tachireader "github.com/kerbaras/tachireader/cmd/tachireader"
)

func main() {
	tachireader.Execute()
}
