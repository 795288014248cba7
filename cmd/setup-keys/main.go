package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/GoPolymarket/polymarket-go-sdk/pkg/auth"
)

func main() {
	pk := strings.TrimSpace(os.Getenv("POLYMARKET_PK"))
	if pk == "" {
		log.Fatal("set the POLYMARKET_PK environment variable (your wallet private key)")
	}

	signer, err := auth.NewPrivateKeySigner(pk, 137)
	if err != nil {
		log.Fatalf("invalid private key: %v", err)
	}

	sdkClient := polymarket.NewClient()
	clobClient := sdkClient.CLOB.WithAuth(signer, nil)

	resp, err := clobClient.CreateOrDeriveAPIKey(context.Background())
	if err != nil {
		log.Fatalf("create API key failed: %v", err)
	}

	fmt.Println("=== API credentials generated ===")
	fmt.Println()
	fmt.Printf("export POLY_API_KEY=\"%s\"\n", resp.APIKey)
	fmt.Printf("export POLY_API_SECRET=\"%s\"\n", resp.Secret)
	fmt.Printf("export POLY_API_PASSPHRASE=\"%s\"\n", resp.Passphrase)
	fmt.Println()
	fmt.Println("Add the three lines above, along with your private key as POLY_PRIVATE_KEY, to your shell profile.")
	fmt.Println("Then run: cd", os.Getenv("PWD"), "&& ./bot")
}
