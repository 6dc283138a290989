// Command migrations prints the postgres DDL of the ledger, for atlas:
//
//	atlas migrate diff --env gorm
package main

import (
	"fmt"
	"io"
	"os"

	"ariga.io/atlas-provider-gorm/gormschema"
	"github.com/satoshifaucet/faucetd/database/models"
)

func main() {
	stmts, err := gormschema.New("postgres").Load(&models.Claim{}, &models.Balance{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load gorm schema: %v\n", err)
		os.Exit(1)
	}

	// Enum types must exist before the tables that use them
	stmts = models.ClaimStatusEnumSQL() + "\n" + stmts

	if _, err := io.WriteString(os.Stdout, stmts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to stdout: %v\n", err)
		os.Exit(1)
	}
}
