package submission

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/dmitrijs2005/wotcsync/internal/cryptox"
	"github.com/dmitrijs2005/wotcsync/internal/mfa"
	"github.com/dmitrijs2005/wotcsync/internal/server/models"
)

// Secrets are the plaintext portal secrets. On a PortalConfig they are
// stored field by field as vault ciphertext: credentials and challenges as
// JSON with encrypted members, backup codes as a JSON array of ciphertexts.
type Secrets struct {
	Credentials cryptox.Credentials `json:"credentials"`
	MFAType     mfa.Type            `json:"mfa_type"`
	MFASecret   string              `json:"mfa_secret"`
	Challenges  []cryptox.Challenge `json:"challenges"`
	BackupCodes []string            `json:"backup_codes"`
}

func seal(v *cryptox.Vault, p *models.PortalConfig, s Secrets) error {
	creds, err := v.EncryptCredentials(s.Credentials)
	if err != nil {
		return err
	}
	if p.EncryptedCredentials, err = marshal(creds); err != nil {
		return err
	}

	p.EncryptedMFASecret = ""
	if s.MFASecret != "" {
		if p.EncryptedMFASecret, err = v.Encrypt(s.MFASecret); err != nil {
			return err
		}
	}
	p.MFAType = string(s.MFAType)

	p.EncryptedChallenges = ""
	if len(s.Challenges) > 0 {
		ch, err := v.EncryptChallenges(s.Challenges)
		if err != nil {
			return err
		}
		if p.EncryptedChallenges, err = marshal(ch); err != nil {
			return err
		}
	}

	p.EncryptedBackupCodes = ""
	if len(s.BackupCodes) > 0 {
		codes := make([]string, 0, len(s.BackupCodes))
		for _, c := range s.BackupCodes {
			enc, err := v.Encrypt(c)
			if err != nil {
				return err
			}
			codes = append(codes, enc)
		}
		if p.EncryptedBackupCodes, err = marshal(codes); err != nil {
			return err
		}
	}
	return nil
}

func open(v *cryptox.Vault, p *models.PortalConfig) (Secrets, error) {
	s := Secrets{MFAType: mfa.Type(p.MFAType)}

	if p.EncryptedCredentials != "" {
		var creds cryptox.Credentials
		if err := unmarshal(p.EncryptedCredentials, &creds); err != nil {
			return s, fmt.Errorf("portal %s credentials: %w", p.Jurisdiction, err)
		}
		plain, err := v.DecryptCredentials(creds)
		if err != nil {
			return s, sealedErr(p, "credentials", err)
		}
		s.Credentials = plain
	}
	if s.Credentials.Username == "" {
		s.Credentials.Username = p.Username
	}
	if p.EncryptedMFASecret != "" {
		secret, err := v.DecryptStrict(p.EncryptedMFASecret)
		if err != nil {
			return s, sealedErr(p, "mfa secret", err)
		}
		s.MFASecret = secret
	}
	if p.EncryptedChallenges != "" {
		var ch []cryptox.Challenge
		if err := unmarshal(p.EncryptedChallenges, &ch); err != nil {
			return s, fmt.Errorf("portal %s challenges: %w", p.Jurisdiction, err)
		}
		plain, err := v.DecryptChallenges(ch)
		if err != nil {
			return s, sealedErr(p, "challenges", err)
		}
		s.Challenges = plain
	}
	if p.EncryptedBackupCodes != "" {
		var codes []string
		if err := unmarshal(p.EncryptedBackupCodes, &codes); err != nil {
			return s, fmt.Errorf("portal %s backup codes: %w", p.Jurisdiction, err)
		}
		for _, c := range codes {
			code, err := v.DecryptStrict(c)
			if err != nil {
				return s, sealedErr(p, "backup codes", err)
			}
			s.BackupCodes = append(s.BackupCodes, code)
		}
	}
	return s, nil
}

// sealedErr marks a secret that is stored but does not open under the
// current vault key. Retrying cannot fix it.
func sealedErr(p *models.PortalConfig, field string, err error) error {
	return fmt.Errorf("portal %s %s: %w: %w", p.Jurisdiction, field, common.ErrConfiguration, err)
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshal(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("%v: %w", err, common.ErrConfiguration)
	}
	return nil
}
