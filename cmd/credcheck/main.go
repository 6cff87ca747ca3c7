// Package main decodes a claim credential offline and, given the master seed,
// checks its signature. It never touches the ledger.
package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"solmeet/internal/credential"
	dErrors "solmeet/pkg/domain-errors"
)

type report struct {
	EventID     string `json:"event_id"`
	Nonce       string `json:"nonce"`
	ExpiresAt   string `json:"expires_at"`
	Expired     bool   `json:"expired"`
	SubjectHint string `json:"subject_hint,omitempty"`
	IssuerKey   string `json:"issuer_key,omitempty"`
	Signature   string `json:"signature"`
}

func main() {
	seedHex := flag.String("seed", os.Getenv("SOLMEET_MASTER_SEED"), "Hex master seed. Signature is not checked if empty.")
	jsonOut := flag.Bool("json", false, "Output as JSON")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: credcheck [-seed HEX] [-json] <credential text or solmeet:// URI>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cred, err := credential.DecodeText(flag.Arg(0))
	if err != nil {
		fail(err)
	}

	out := report{
		EventID:   cred.EventID.String(),
		Nonce:     cred.Nonce.String(),
		ExpiresAt: cred.ExpiresAt.Format(time.RFC3339),
		Expired:   !time.Now().Before(cred.ExpiresAt),
		Signature: "unchecked",
	}
	if cred.HasSubjectHint() {
		out.SubjectHint = cred.SubjectHint.Key()
	}

	if *seedHex != "" {
		seed, err := hex.DecodeString(*seedHex)
		if err != nil {
			fail(fmt.Errorf("seed is not hex: %w", err))
		}
		keyring, err := credential.NewKeyring(seed)
		if err != nil {
			fail(err)
		}
		out.IssuerKey = hex.EncodeToString(keyring.PublicKey(cred.EventID))
		out.Signature = "valid"
		if err := keyring.Verify(cred); err != nil {
			out.Signature = "invalid"
		}
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	} else {
		fmt.Printf("Event:        %s\n", out.EventID)
		fmt.Printf("Nonce:        %s\n", out.Nonce)
		fmt.Printf("Expires At:   %s (expired: %t)\n", out.ExpiresAt, out.Expired)
		if out.SubjectHint != "" {
			fmt.Printf("Subject Hint: %s\n", out.SubjectHint)
		}
		if out.IssuerKey != "" {
			fmt.Printf("Issuer Key:   %s\n", out.IssuerKey)
		}
		fmt.Printf("Signature:    %s\n", out.Signature)
	}

	if out.Signature == "invalid" {
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", dErrors.CodeOf(err), err)
	os.Exit(1)
}
