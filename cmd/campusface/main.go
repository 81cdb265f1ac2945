package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/xela07ax/campusface-client/internal/cli"
)

func main() {
	// .env опционален
	_ = godotenv.Load()

	if err := cli.NewRoot(os.Stdin, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
