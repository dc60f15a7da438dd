package main

import (
	"fmt"

	"github.com/cryptopuck/cryptopuck/internal/treecrypt"
)

// doInfo pretty-prints what can be learned about an encrypted directory
// without the private key.
// This is called for "cryptopuck info".
func doInfo(args *argContainer) error {
	di, err := treecrypt.Info(args.source)
	if err != nil {
		return err
	}
	marker := di.Marker
	if marker == "" {
		marker = "-"
	}
	fmt.Printf("Directory:         %s\n", di.Dir)
	fmt.Printf("Marker:            %s\n", marker)
	if di.SecretLen > 0 {
		fmt.Printf("Wrapped secret:    %dB (RSA-%d)\n", di.SecretLen, di.SecretLen*8)
	} else {
		fmt.Printf("Wrapped secret:    missing\n")
	}
	fmt.Printf("Filename record:   %v\n", di.HasMap)
	fmt.Printf("Envelopes:         %d\n", di.Envelopes)
	if di.Truncated > 0 {
		fmt.Printf("Truncated:         %d\n", di.Truncated)
	}
	fmt.Printf("Plaintext size:    %dB\n", di.PlainBytes)
	fmt.Printf("Ciphertext size:   %dB\n", di.CipherBytes)
	fmt.Printf("Other files:       %d\n", di.Other)
	return nil
}
