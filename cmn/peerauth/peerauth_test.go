package peerauth

import (
	"testing"
	"time"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	v := NewVerifier("cluster-secret")
	token, err := v.Issue("node-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	peerID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if peerID != "node-1" {
		t.Fatalf("want peer ID node-1, got %q", peerID)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("cluster-secret")
	token, err := v.Issue("node-1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatal("want an error for an expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewVerifier("secret-a")
	verifier := NewVerifier("secret-b")

	token, err := issuer.Issue("node-1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("want an error verifying against a different secret")
	}
}

func TestEmptySecretDisablesVerification(t *testing.T) {
	v := NewVerifier("")
	peerID, err := v.Verify("anything-goes")
	if err != nil {
		t.Fatalf("empty-secret verifier should accept any token: %v", err)
	}
	if peerID != "" {
		t.Fatalf("want empty peer ID from a disabled verifier, got %q", peerID)
	}
}
