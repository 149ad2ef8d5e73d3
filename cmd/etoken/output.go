package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bitfsorg/libetoken-go/ledger"
	"github.com/bitfsorg/libetoken-go/token"
	"github.com/bitfsorg/libetoken-go/tx"
)

// EnvPassword supplies the wallet password non-interactively.
const EnvPassword = "ETOKEN_PASSWORD"

// readPassword reads a password without echo, or from EnvPassword.
func readPassword(prompt string) (string, error) {
	if pw := os.Getenv(EnvPassword); pw != "" {
		return pw, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for password prompt; set %s", EnvPassword)
	}
	fmt.Fprint(os.Stderr, prompt+": ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// printResult writes v as JSON in --json mode and calls text otherwise.
func printResult(v any, text func()) error {
	if globalFlags.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func staleNote(v ledger.View) {
	if v.Freshness == ledger.FreshnessStale {
		fmt.Fprintf(os.Stderr, "warning: showing data from %s, refresh failed: %v\n",
			v.LastRefreshed.Format("15:04:05"), v.LastError)
	}
}

type draftResult struct {
	Kind  string `json:"kind"`
	TxID  string `json:"txid"`
	State string `json:"state"`
	Fee   uint64 `json:"fee"`
}

// reportDraft prints the outcome of a submitted draft. A submit error is
// returned after printing so the txid is visible for a later retry.
func reportDraft(d *tx.Draft, submitErr error) error {
	if d == nil {
		return submitErr
	}
	r := draftResult{Kind: string(d.Kind), TxID: d.TxID(), State: d.State().String(), Fee: d.Fee}
	if err := printResult(r, func() {
		fmt.Printf("%s %s (%s, fee %s XEC)\n", r.Kind, r.TxID, r.State, xec(r.Fee))
	}); err != nil {
		return err
	}
	return submitErr
}

func xec(sats uint64) string { return token.FormatAmount(sats, 2) }

func parseXec(s string) (uint64, error) { return token.ParseAmount(strings.TrimSpace(s), 2) }
