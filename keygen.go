package main

import (
	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/readpassword"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// doKeygen handles "cryptopuck keygen". Existing key files are never
// overwritten.
func doKeygen(args *argContainer) error {
	var passphrase []byte
	if args.passphrase {
		tlog.Info.Printf("Choose a passphrase for the private key.")
		pw, err := readpassword.Twice(args.extpass, args.passfile)
		if err != nil {
			return err
		}
		if len(pw) == 0 {
			return exitcodes.NewErr("Empty passphrase", exitcodes.ReadPassword)
		}
		passphrase = pw
		defer func() {
			for i := range passphrase {
				passphrase[i] = 0
			}
		}()
	}
	tlog.Info.Printf("Generating %d-bit RSA key pair", args.bits)
	priv, err := keywrap.GenerateKeyPair(args.bits)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Other)
	}
	pubPath, privPath, err := keywrap.WriteKeyPair(args.destination, priv, passphrase, args.scryptn)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Config)
	}
	tlog.Info.Printf("Public key:  %s", pubPath)
	if keywrap.IsSealed(privPath) {
		tlog.Info.Printf("Private key: %s (sealed)", privPath)
	} else {
		tlog.Info.Printf("Private key: %s", privPath)
	}
	tlog.Info.Printf("%s", tlog.ColorYellow+
		"Copy the private key off this machine. Only the public key is needed for encryption."+
		tlog.ColorReset)
	return nil
}
