// Command sonate-receipts is a small operator tool around the trust-receipt
// library: generate signing keys and verify receipt chains offline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sonate-labs/trust-receipts-go/pkg/keyfile"
	"github.com/sonate-labs/trust-receipts-go/pkg/receipt"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches subcommands; split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "keygen":
		return runKeygen(args[2:], stdout, stderr)
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: sonate-receipts <keygen|verify> [flags]")
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("keygen", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var out string
	cmd.StringVar(&out, "out", "sonate-key.yaml", "Path to write the key file")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	f, err := keyfile.Generate()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: key generation failed: %v\n", err)
		return 2
	}
	if err := keyfile.Save(out, f); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	_, _ = fmt.Fprintf(stdout, "Key file written to %s\n", out)
	_, _ = fmt.Fprintf(stdout, "Public key: %s\n", f.PublicKey)
	return 0
}

// runVerify validates a JSON chain file (an ordered array of signed
// receipts) against a public key.
//
// Exit codes:
//
//	0 = chain verified
//	1 = chain invalid
//	2 = runtime error
func runVerify(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		chainPath  string
		keyPath    string
		pubKey     string
		jsonOutput bool
	)

	cmd.StringVar(&chainPath, "chain", "", "Path to JSON file holding an ordered array of signed receipts (REQUIRED)")
	cmd.StringVar(&keyPath, "key", "", "Path to a YAML key file holding the verifying public key")
	cmd.StringVar(&pubKey, "pub", "", "Hex public key (alternative to --key)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the verification report as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if chainPath == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --chain is required")
		return 2
	}
	if pubKey == "" {
		if keyPath == "" {
			_, _ = fmt.Fprintln(stderr, "Error: one of --key or --pub is required")
			return 2
		}
		f, err := keyfile.Load(keyPath)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		pubKey = f.PublicKey
	}

	receipts, err := loadChain(chainPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	report := receipt.VerifyChain(receipts, pubKey)

	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		if report.Valid {
			_, _ = fmt.Fprintf(stdout, "OK: %d receipts, chain intact\n", len(receipts))
		} else {
			_, _ = fmt.Fprintf(stdout, "FAIL: %d receipts, %d errors\n", len(receipts), len(report.Errors))
			for _, e := range report.Errors {
				_, _ = fmt.Fprintf(stdout, "  - %s\n", e.Error())
			}
		}
	}

	if !report.Valid {
		return 1
	}
	return 0
}

// loadChain decodes each entry through DecodeSigned so schema violations are
// reported with their index before any signature check runs.
func loadChain(path string) ([]*receipt.SignedReceipt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain file: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("chain file must be a JSON array of receipts: %w", err)
	}

	receipts := make([]*receipt.SignedReceipt, 0, len(raw))
	for i, entry := range raw {
		sr, err := receipt.DecodeSigned(entry)
		if err != nil {
			return nil, fmt.Errorf("receipt %d: %w", i, err)
		}
		receipts = append(receipts, sr)
	}
	return receipts, nil
}
