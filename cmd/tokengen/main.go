// Package main provides a CLI tool for generating caller tokens for the
// solmeet API. These tokens use the dev signing key unless one is passed and
// will NOT work in production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "solmeet/internal/jwt_token"
	"solmeet/pkg/domain"
)

const (
	// Dev signing key - matches config.go when SOLMEET_JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "solmeet"
	defaultAudience = "solmeet-api"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Caller    string            `json:"caller"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	callerCmd := flag.NewFlagSet("caller", flag.ExitOnError)
	kind := callerCmd.String("kind", "anonymous", "Identity kind: wallet or anonymous")
	value := callerCmd.String("value", "", "Wallet public key (base58) or anonymous token")
	signingKey := callerCmd.String("signing-key", "", "HMAC signing key. Dev key if empty.")
	issuer := callerCmd.String("issuer", defaultIssuer, "Token issuer")
	audience := callerCmd.String("audience", defaultAudience, "Token audience")
	ttl := callerCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOut := callerCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "caller":
		_ = callerCmd.Parse(os.Args[2:])
		generateCallerToken(*kind, *value, *signingKey, *issuer, *audience, *ttl, *jsonOut)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate caller tokens for the solmeet API

WARNING: Without -signing-key the dev key is used. Only use for local development.

Usage:
  tokengen caller [flags]

Examples:
  # Anonymous attendee
  tokengen caller -kind anonymous -value tg-user-42

  # Wallet organizer with a one-day token
  tokengen caller -kind wallet -value 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin -ttl 24h

  # Output as JSON
  tokengen caller -value tg-user-42 -json`)
}

func generateCallerToken(kindName, value, signingKey, issuer, audience string, ttl time.Duration, jsonOutput bool) {
	if value == "" {
		fmt.Fprintln(os.Stderr, "-value is required")
		os.Exit(1)
	}
	kind, err := domain.ParseIdentityKind(kindName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid kind: %v\n", err)
		os.Exit(1)
	}
	caller, err := domain.NewIdentity(kind, value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid identity: %v\n", err)
		os.Exit(1)
	}

	keyType := "custom"
	if signingKey == "" {
		signingKey = devSigningKey
		keyType = "dev"
	}

	svc := jwttoken.NewJWTService(signingKey, issuer, audience, ttl)
	token, err := svc.GenerateCallerToken(context.Background(), caller)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			Caller:    caller.Key(),
			ExpiresIn: ttl.String(),
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Caller Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Caller:      %s\n", caller.Key())
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/claims")
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
