// Package mfa generates one-time login codes for state portals that require
// multi-factor authentication.
package mfa

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/wotcsync/internal/clock"
	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Type is the MFA mechanism configured for a portal.
type Type string

const (
	TypeTOTP          Type = "totp"
	TypeAuthenticator Type = "authenticator"
	TypeSMS           Type = "sms"
	TypeEmail         Type = "email"
	TypeBackupCode    Type = "backup_code"
	TypeNone          Type = ""
)

const (
	Period             = 30
	Digits             = otp.DigitsSix
	BackupCodeLength   = 8
	DefaultBackupCodes = 10
	issuer             = "wotcsync"
)

// Provider generates and validates RFC 6238 codes (SHA-1, 6 digits, 30s).
type Provider struct {
	clock  clock.Clock
	logger logging.Logger
}

func NewProvider(c clock.Clock, logger logging.Logger) *Provider {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Provider{clock: c, logger: logger.With("module", "mfa")}
}

func opts(skew uint) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      skew,
		Digits:    Digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Generate returns the current code for a base32 secret.
func (p *Provider) Generate(secret string) (string, error) {
	code, err := totp.GenerateCodeCustom(normalizeSecret(secret), p.clock.Now(), opts(0))
	if err != nil {
		return "", fmt.Errorf("generate totp: %w", err)
	}
	return code, nil
}

// Validate checks code against secret allowing window adjacent time steps
// on either side for clock drift.
func (p *Provider) Validate(code, secret string, window uint) bool {
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), normalizeSecret(secret), p.clock.Now(), opts(window))
	return err == nil && ok
}

// GenerateSecret creates a new random base32 secret for account.
func (p *Provider) GenerateSecret(account string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      Period,
		Digits:      Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

// GenerateBackupCodes returns n random 8-character alphanumeric codes.
func GenerateBackupCodes(n int) ([]string, error) {
	if n <= 0 {
		n = DefaultBackupCodes
	}
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		c, err := common.RandomAlphanumeric(BackupCodeLength)
		if err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, nil
}

// GetToken returns a login code for the portal's MFA type. SMS and email codes
// are delivered out of band, so nil is returned and the caller must wait for
// an operator. For backup codes the first remaining code is returned; the
// caller is responsible for retiring it.
func (p *Provider) GetToken(ctx context.Context, mfaType Type, secret string, backupCodes []string) (*string, error) {
	switch mfaType {
	case TypeTOTP, TypeAuthenticator:
		if secret == "" {
			return nil, fmt.Errorf("mfa secret missing: %w", common.ErrConfiguration)
		}
		code, err := p.Generate(secret)
		if err != nil {
			return nil, err
		}
		return &code, nil
	case TypeSMS, TypeEmail:
		p.logger.Warn(ctx, "mfa type requires manual token entry", "mfa_type", string(mfaType))
		return nil, nil
	case TypeBackupCode:
		if len(backupCodes) == 0 {
			return nil, fmt.Errorf("no backup codes left: %w", common.ErrConfiguration)
		}
		code := backupCodes[0]
		return &code, nil
	case TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mfa type %q: %w", mfaType, common.ErrConfiguration)
	}
}

func normalizeSecret(s string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}
