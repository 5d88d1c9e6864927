package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Settings identifies the remote collection and the credential used to reach it.
type Settings struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Token string `json:"token"`
}

// Validate validates the connection settings.
func (s *Settings) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Owner, validation.Required, validation.By(noSlash)),
		validation.Field(&s.Repo, validation.Required, validation.By(noSlash)),
		validation.Field(&s.Token, validation.Required),
	)
}

// Masked returns a copy with the credential reduced to its last four characters.
func (s Settings) Masked() Settings {
	if n := len(s.Token); n > 4 {
		s.Token = strings.Repeat("*", n-4) + s.Token[n-4:]
	} else if n > 0 {
		s.Token = strings.Repeat("*", n)
	}
	return s
}

func noSlash(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) {
		return validation.NewError("validation_no_slash", "must not contain a slash")
	}
	return nil
}
