package models

import (
	"strings"
)

// CredentialPrefixes lists the accepted integration token formats
var CredentialPrefixes = []string{"ntn_", "secret_"}

// ContainerIdLength is the length of a container id once hyphens are removed
const ContainerIdLength = 32

// Source is one configured content database
type Source struct {
	Id          string `json:"id" toml:"id"`
	Label       string `json:"label,omitempty" toml:"label,omitempty"`
	ContainerId string `json:"containerId" toml:"container_id"`
	Credential  string `json:"-" toml:"credential,omitempty"`
}

// Key is the identifier posts are tagged with
func (s Source) Key() string {
	if s.Id != "" {
		return s.Id
	}
	return s.ContainerId
}

// DisplayLabel is the caller visible name of the source
func (s Source) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Key()
}

// Validate checks credential and container id, normalizing the latter
func (s Source) Validate() (Source, error) {
	if err := ValidateCredential(s.Credential); err != nil {
		return s, err
	}
	id, err := NormalizeContainerId(s.ContainerId)
	if err != nil {
		return s, err
	}
	s.ContainerId = id
	return s, nil
}

// ValidateCredential checks that the token is present and carries an accepted prefix
func ValidateCredential(credential string) error {
	if strings.TrimSpace(credential) == "" {
		return &ValidationError{Field: "credential", Message: "credential is required"}
	}
	for _, prefix := range CredentialPrefixes {
		if strings.HasPrefix(credential, prefix) {
			return nil
		}
	}
	return &ValidationError{
		Field:   "credential",
		Message: "invalid credential format, expected " + strings.Join(CredentialPrefixes, " or ") + "...",
	}
}

// NormalizeContainerId strips hyphens and checks the id length
func NormalizeContainerId(id string) (string, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	if trimmed == "" {
		return "", &ValidationError{Field: "containerId", Message: "container id is required"}
	}
	if len(trimmed) != ContainerIdLength {
		return "", &ValidationError{Field: "containerId", Message: "invalid container id format"}
	}
	return trimmed, nil
}
