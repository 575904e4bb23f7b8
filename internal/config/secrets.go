package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = appName

// SMTPPassword returns smtp_pass (or XENGAGE_SMTP_PASS) when set, otherwise
// the password stored in the system keychain for smtp_user.
func (e EmailConfig) SMTPPassword() (string, error) {
	if e.SMTPPass != "" {
		return e.SMTPPass, nil
	}
	if e.SMTPUser == "" {
		return "", nil
	}

	pass, err := keyring.Get(keyringService, smtpKey(e.SMTPUser))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read keychain: %w", err)
	}
	return pass, nil
}

// StoreSMTPPassword saves the SMTP password for user in the system keychain
func StoreSMTPPassword(user, pass string) error {
	if user == "" {
		return errors.New("smtp user is required")
	}
	if err := keyring.Set(keyringService, smtpKey(user), pass); err != nil {
		return fmt.Errorf("failed to store in keychain: %w", err)
	}
	return nil
}

// DeleteSMTPPassword removes the stored SMTP password, if any
func DeleteSMTPPassword(user string) error {
	err := keyring.Delete(keyringService, smtpKey(user))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete from keychain: %w", err)
	}
	return nil
}

func smtpKey(user string) string {
	return "smtp_" + user
}
