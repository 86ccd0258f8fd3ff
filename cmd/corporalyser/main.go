package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/corpus-analyser/internal/cli"
)

func main() {
	if err := cli.New().Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
