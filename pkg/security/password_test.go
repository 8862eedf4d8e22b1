package security_test

import (
	"regexp"
	"strings"
	"testing"

	"github.com/iwanyu/marketplace-backend/pkg/config"
	"github.com/iwanyu/marketplace-backend/pkg/security"
)

func testHasher() *security.Hasher {
	return security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("very-secure-password")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash format %q", hash)
	}

	ok, err := h.Verify("very-secure-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for valid hash: %v", err)
	}
	if !ok {
		t.Fatal("Verify failed for the correct password")
	}

	ok, err = h.Verify("bogus-password", hash)
	if err != nil {
		t.Fatalf("Verify returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	h := testHasher()
	for _, bad := range []string{"not-a-hash", "$argon2id$v=19$m=x$abc$def", "$bcrypt$v=19$m=1,t=1,p=1$YQ$YQ"} {
		if _, err := h.Verify("irrelevant", bad); err == nil {
			t.Fatalf("expected error for malformed hash %q", bad)
		}
	}
	if _, err := h.Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestRandomBase36(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-Z]{9}$`)
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		v, err := security.RandomBase36(9)
		if err != nil {
			t.Fatalf("RandomBase36: %v", err)
		}
		if !pattern.MatchString(v) {
			t.Fatalf("unexpected value %q", v)
		}
		seen[v] = struct{}{}
	}
	if len(seen) < 45 {
		t.Fatalf("values look non-random: %d unique of 50", len(seen))
	}
	if _, err := security.RandomBase36(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestHMACSignature(t *testing.T) {
	body := []byte(`{"event":"charge.completed"}`)
	sig := security.SignHMACSHA256("whsec", body)

	if !security.VerifyHMACSHA256("whsec", body, sig) {
		t.Fatal("expected signature to verify")
	}
	if !security.VerifyHMACSHA256("whsec", body, strings.ToUpper(sig)) {
		t.Fatal("hex case should not matter")
	}
	if security.VerifyHMACSHA256("other", body, sig) {
		t.Fatal("wrong secret must not verify")
	}
	if security.VerifyHMACSHA256("whsec", append(body, ' '), sig) {
		t.Fatal("modified body must not verify")
	}
	if security.VerifyHMACSHA256("", body, sig) {
		t.Fatal("empty secret must not verify")
	}
	if security.VerifyHMACSHA256("whsec", body, "zz") {
		t.Fatal("non-hex signature must not verify")
	}
}
