package main

import (
	"fmt"
	"os"
)

func main() {
	defer func() {
		os.Exit(2) // want "вызов os.Exit в функции main запрещён"
	}()
	fmt.Println("start")
	os.Exit(1) // want "вызов os.Exit в функции main запрещён"
}

func fail() {
	os.Exit(3)
}
