package main

import (
	"github.com/cryptopuck/cryptopuck/internal/readpassword"
	"github.com/cryptopuck/cryptopuck/internal/syscallcompat"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
	"github.com/cryptopuck/cryptopuck/internal/treecrypt"
)

// doEncrypt handles "cryptopuck encrypt".
func doEncrypt(args *argContainer) error {
	rep, err := treecrypt.EncryptTree(treecrypt.EncryptArgs{
		Source:      args.source,
		Destination: args.destination,
		PublicKey:   args.publicKey,
		Exclude:     args.exclude,
		ExcludeFrom: args.excludeFrom,
	})
	if err != nil {
		return err
	}
	flush(args.destination)
	tlog.Info.Printf(tlog.ColorGreen+"Encrypted %s: %s"+tlog.ColorReset, args.source, rep)
	return nil
}

// flush writes the destination to disk before we report success. It is
// usually a USB stick that gets pulled right after.
func flush(dir string) {
	if err := syscallcompat.Syncfs(dir); err != nil {
		tlog.Warn.Printf("Flushing %s: %v", dir, err)
	}
}

// doDecrypt handles "cryptopuck decrypt". The passphrase is only asked for
// when the private key turns out to be sealed.
func doDecrypt(args *argContainer) error {
	rep, err := treecrypt.DecryptTree(treecrypt.DecryptArgs{
		Source:      args.source,
		Destination: args.destination,
		Secret:      args.secret,
		PrivateKey:  args.privateKey,
		Password: func() ([]byte, error) {
			return readpassword.Once(args.extpass, args.passfile, "Passphrase for "+args.privateKey)
		},
		RestoreStructure: !args.noRestoreStructure,
	})
	if err != nil {
		return err
	}
	flush(args.destination)
	tlog.Info.Printf(tlog.ColorGreen+"Decrypted %s: %s"+tlog.ColorReset, args.source, rep)
	return nil
}
