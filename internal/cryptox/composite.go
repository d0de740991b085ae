package cryptox

import "fmt"

// Credentials is a portal or provider login pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Challenge is a security question asked by some portals after login.
type Challenge struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// EncryptCredentials encrypts each field of c independently.
func (v *Vault) EncryptCredentials(c Credentials) (Credentials, error) {
	user, err := v.Encrypt(c.Username)
	if err != nil {
		return Credentials{}, err
	}
	pass, err := v.Encrypt(c.Password)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Username: user, Password: pass}, nil
}

// DecryptCredentials is the inverse of EncryptCredentials. It fails with
// ErrDecryption when either field does not decrypt.
func (v *Vault) DecryptCredentials(c Credentials) (Credentials, error) {
	user, err := v.DecryptStrict(c.Username)
	if err != nil {
		return Credentials{}, fmt.Errorf("username: %w", err)
	}
	pass, err := v.DecryptStrict(c.Password)
	if err != nil {
		return Credentials{}, fmt.Errorf("password: %w", err)
	}
	return Credentials{Username: user, Password: pass}, nil
}

// EncryptChallenges encrypts question and answer of every challenge.
func (v *Vault) EncryptChallenges(in []Challenge) ([]Challenge, error) {
	out := make([]Challenge, 0, len(in))
	for _, ch := range in {
		q, err := v.Encrypt(ch.Question)
		if err != nil {
			return nil, err
		}
		a, err := v.Encrypt(ch.Answer)
		if err != nil {
			return nil, err
		}
		out = append(out, Challenge{Question: q, Answer: a})
	}
	return out, nil
}

// DecryptChallenges is the inverse of EncryptChallenges, failing on the
// first member that does not decrypt.
func (v *Vault) DecryptChallenges(in []Challenge) ([]Challenge, error) {
	out := make([]Challenge, 0, len(in))
	for i, ch := range in {
		q, err := v.DecryptStrict(ch.Question)
		if err != nil {
			return nil, fmt.Errorf("challenge %d: %w", i, err)
		}
		a, err := v.DecryptStrict(ch.Answer)
		if err != nil {
			return nil, fmt.Errorf("challenge %d: %w", i, err)
		}
		out = append(out, Challenge{Question: q, Answer: a})
	}
	return out, nil
}
