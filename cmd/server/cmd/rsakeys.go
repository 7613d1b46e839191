package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/rbac_auth/internal/rsakeys"
)

var rsakeysBits int

var rsakeysCmd = &cobra.Command{
	Use:   "rsakeys",
	Short: "RSA login key commands",
}

var rsakeysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print a new RSA key pair",
	Long: `Generates an RSA key pair for encrypted login in debug environments and prints
the private key (for RSA_PRIVATE_KEY or RSA_PRIVATE_KEY_FILE) followed by the public key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		kp, err := rsakeys.Generate(rsakeysBits)
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		pub, err := kp.PublicPEM()
		if err != nil {
			return fmt.Errorf("failed to encode public key: %w", err)
		}
		out := cmd.OutOrStdout()
		if _, err := out.Write(kp.PrivatePEM()); err != nil {
			return err
		}
		_, err = out.Write(pub)
		return err
	},
}

func init() {
	rsakeysGenerateCmd.Flags().IntVar(&rsakeysBits, "bits", rsakeys.DefaultBits, "Key size in bits")
	rsakeysCmd.AddCommand(rsakeysGenerateCmd)
}
