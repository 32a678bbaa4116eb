// Command totp-setup generates a TOTP secret for the admin account and
// writes a provisioning QR code for authenticator apps.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/BradenHooton/offeradmin/internal/auth"
)

func main() {
	issuer := flag.String("issuer", "offeradmin", "issuer shown in the authenticator app")
	account := flag.String("account", "admin", "account name shown in the authenticator app")
	out := flag.String("qr", "totp.png", "path of the QR code PNG; empty skips it")
	size := flag.Int("size", 256, "QR code size in pixels")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	key, err := auth.GenerateTOTPKey(*issuer, *account)
	if err != nil {
		logger.Error("failed to generate key", slog.Any("error", err))
		os.Exit(1)
	}

	if *out != "" {
		png, err := auth.ProvisioningQR(key, *size)
		if err != nil {
			logger.Error("failed to render QR code", slog.Any("error", err))
			os.Exit(1)
		}
		if err := os.WriteFile(*out, png, 0o600); err != nil {
			logger.Error("failed to write QR code", slog.String("path", *out), slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("QR code written", slog.String("path", *out))
	}

	fmt.Printf("ADMIN_TOTP_SECRET=%s\n", key.Secret())
	fmt.Printf("# %s\n", key.URL())
}
