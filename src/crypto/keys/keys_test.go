package keys

import (
	"path/filepath"
	"testing"
)

func TestSignVerify(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("the quick brown fox")

	r, s, err := Sign(key, data)
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(&key.PublicKey, data, r, s) {
		t.Fatalf("signature should verify")
	}

	if Verify(&key.PublicKey, []byte("tampered"), r, s) {
		t.Fatalf("signature of different data should not verify")
	}
}

func TestSignatureEncoding(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	r, s, err := Sign(key, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}

	sig := EncodeSignature(r, s)

	r2, s2, err := DecodeSignature(sig)
	if err != nil {
		t.Fatal(err)
	}

	if r.Cmp(r2) != 0 || s.Cmp(s2) != 0 {
		t.Fatalf("decoded signature does not match")
	}

	if _, _, err := DecodeSignature("garbage"); err == nil {
		t.Fatalf("decoding garbage should fail")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	dump := DumpPrivateKey(key)

	parsed, err := ParsePrivateKey(dump)
	if err != nil {
		t.Fatal(err)
	}

	if parsed.D.Cmp(key.D) != 0 {
		t.Fatalf("parsed key does not match original")
	}

	if PublicKeyHex(&parsed.PublicKey) != PublicKeyHex(&key.PublicKey) {
		t.Fatalf("public keys do not match")
	}
}

func TestSimpleKeyfile(t *testing.T) {
	keyfile := filepath.Join(t.TempDir(), "priv_key")

	key, err := GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}

	kf := NewSimpleKeyfile(keyfile)
	if err := kf.WriteKey(key); err != nil {
		t.Fatal(err)
	}

	read, err := kf.ReadKey()
	if err != nil {
		t.Fatal(err)
	}

	if read.D.Cmp(key.D) != 0 {
		t.Fatalf("key read from file does not match")
	}
}
