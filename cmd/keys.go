package cmd

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/pandodao/blst"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "generate a key pair; blst keys register as price feed signers",
	Run: func(cmd *cobra.Command, args []string) {
		cipher, err := cmd.Flags().GetString("cipher")
		if err != nil {
			panic(err)
		}

		switch cipher {
		case "blst":
			private := blst.GenerateKey()
			cmd.Println("private key:", private.String())
			cmd.Println("public key:", private.PublicKey().String())
		default:
			private := mixin.GenerateEd25519Key()
			public := private.Public().(ed25519.PublicKey)
			cmd.Println("private key:", base64.StdEncoding.EncodeToString(private))
			cmd.Println("public key:", base64.StdEncoding.EncodeToString(public))
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.Flags().String("cipher", "ed25519", "ed25519 or blst")
}
