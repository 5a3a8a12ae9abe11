package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "keys", "node.keystore")

	if err := SaveToKeystore(path, key, "open sesame"); err != nil {
		t.Fatalf("save keystore: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat keystore: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("keystore mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromKeystore(path, "open sesame")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	if !bytes.Equal(loaded.Bytes(), key.Bytes()) {
		t.Fatalf("loaded key differs from saved key")
	}

	if _, err := LoadFromKeystore(path, "wrong"); err == nil {
		t.Fatalf("wrong passphrase must fail decryption")
	}
}

func TestKeystoreRejectsBadArguments(t *testing.T) {
	if err := SaveToKeystore(filepath.Join(t.TempDir(), "k"), nil, "pw"); err == nil {
		t.Fatalf("nil key must be rejected")
	}
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := SaveToKeystore("", key, "pw"); err == nil {
		t.Fatalf("empty path must be rejected")
	}
	if _, err := LoadFromKeystore("", "pw"); err == nil {
		t.Fatalf("empty path must be rejected on load")
	}
	if _, err := LoadFromKeystore(filepath.Join(t.TempDir(), "absent"), "pw"); err == nil {
		t.Fatalf("missing file must be reported")
	}
}
