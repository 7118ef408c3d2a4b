package main

import (
	"testing"

	_ "github.com/procureflow/procureflow/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	main()
}
