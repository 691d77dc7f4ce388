package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	var blockKey bool

	c := &cobra.Command{
		Use:   "keys",
		Short: "Generate COOKIE_HASH_KEY (and optionally COOKIE_BLOCK_KEY) values as base64",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			hash, err := randomKey(32)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "export COOKIE_HASH_KEY=%s\n", hash)
			if blockKey {
				block, err := randomKey(32)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "export COOKIE_BLOCK_KEY=%s\n", block)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&blockKey, "block", true, "also print an AES key for cookie encryption")
	return c
}

func randomKey(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
