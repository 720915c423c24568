package node

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/backkem/triaka/pkg/aka"
	"github.com/sauerbraten/jsonfile"
)

// credentialsFile is the on-disk form of aka.Credentials. Every value is
// ASCII text and stored as is.
type credentialsFile struct {
	ID       string `json:"id"`
	Nonce    string `json:"nonce"`
	Verifier string `json:"verifier"`
}

// LoadCredentials reads credentials saved by SaveCredentials. A missing
// file returns nil credentials and no error.
func LoadCredentials(path string) (*aka.Credentials, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var f credentialsFile
	if err := jsonfile.ParseFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse credentials %s: %w", path, err)
	}
	creds := &aka.Credentials{
		ID:       []byte(f.ID),
		Nonce:    []byte(f.Nonce),
		Verifier: []byte(f.Verifier),
	}
	if len(creds.ID) == 0 || len(creds.Nonce) == 0 || !creds.Registered() {
		return nil, fmt.Errorf("%w: incomplete credentials in %s", ErrInvalidConfig, path)
	}
	return creds, nil
}

// SaveCredentials writes creds to path, replacing the file atomically.
func SaveCredentials(path string, creds *aka.Credentials) error {
	if !creds.Registered() {
		return ErrNotRegistered
	}
	data, err := json.MarshalIndent(credentialsFile{
		ID:       string(creds.ID),
		Nonce:    string(creds.Nonce),
		Verifier: string(creds.Verifier),
	}, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
