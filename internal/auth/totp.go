package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

const totpPeriod = 30

var totpOpts = totp.ValidateOpts{
	Period:    totpPeriod,
	Skew:      1, // one step either side for clock drift
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// ErrTOTPReplay is returned when a code for an already used time step is presented again
var ErrTOTPReplay = errors.New("totp code already used")

// TOTPVerifier checks second-factor codes for the single admin account.
// The secret is the base32 string printed by totp-setup.
type TOTPVerifier struct {
	secret string

	mu       sync.Mutex
	lastStep int64
}

func NewTOTPVerifier(secret string) (*TOTPVerifier, error) {
	secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	if secret == "" {
		return nil, errors.New("totp secret is empty")
	}
	// fail fast on a malformed secret instead of at first login
	if _, err := totp.GenerateCodeCustom(secret, time.Now(), totpOpts); err != nil {
		return nil, fmt.Errorf("invalid totp secret: %w", err)
	}
	return &TOTPVerifier{secret: secret}, nil
}

// Verify accepts code if it matches a step within the skew window that is
// newer than the last accepted step.
func (v *TOTPVerifier) Verify(code string, now time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != int(otp.DigitsSix) {
		return false, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	current := now.Unix() / totpPeriod
	for offset := int64(-1); offset <= 1; offset++ {
		step := current + offset
		at := time.Unix(step*totpPeriod, 0)

		want, err := totp.GenerateCodeCustom(v.secret, at, totpOpts)
		if err != nil {
			return false, fmt.Errorf("failed to compute totp code: %w", err)
		}
		if want != code {
			continue
		}
		if step <= v.lastStep {
			return false, ErrTOTPReplay
		}
		v.lastStep = step
		return true, nil
	}
	return false, nil
}

// GenerateTOTPKey creates a new secret for the admin account
func GenerateTOTPKey(issuer, account string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      totpPeriod,
		SecretSize:  20,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}
	return key, nil
}

// ProvisioningQR renders the key's otpauth:// URL as a PNG
func ProvisioningQR(key *otp.Key, size int) ([]byte, error) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return png, nil
}
