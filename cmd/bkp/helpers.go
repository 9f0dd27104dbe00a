package main

import (
	"fmt"
	"os"

	"github.com/raczzoli/bkp/pkg/bkp"
)

// openRepository opens the store rooted at the current working directory,
// creating it on first use.
func openRepository() (*bkp.Repository, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return bkp.Open(cwd)
}
