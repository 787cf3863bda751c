package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
)

func TestClassify_ExplicitKind(t *testing.T) {
	err := NewOracleError(KindAuthFailure, errors.New("401"))
	if got := Classify(err); got != KindAuthFailure {
		t.Errorf("expected %s, got %s", KindAuthFailure, got)
	}
}

func TestClassify_WrappedKindSurvives(t *testing.T) {
	inner := NewOracleError(KindRateLimited, errors.New("429"))
	wrapped := errors.Join(errors.New("outer"), inner)
	if got := Classify(wrapped); got != KindRateLimited {
		t.Errorf("expected %s, got %s", KindRateLimited, got)
	}
}

func TestClassify_DeadlineExceeded(t *testing.T) {
	if got := Classify(context.DeadlineExceeded); got != KindTimeout {
		t.Errorf("expected %s, got %s", KindTimeout, got)
	}
}

func TestClassify_Syscall(t *testing.T) {
	if got := Classify(syscall.ECONNRESET); got != KindConnection {
		t.Errorf("expected %s, got %s", KindConnection, got)
	}
}

func TestClassify_StringPatterns(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"dial tcp: connection refused", KindConnection},
		{"read: connection reset by peer", KindConnection},
		{"lookup api.example.com: no such host", KindConnection},
		{"request timed out after 30s", KindTimeout},
		{"something unexpected", KindOracle},
	}
	for _, tc := range cases {
		if got := Classify(errors.New(tc.msg)); got != tc.want {
			t.Errorf("%q: expected %s, got %s", tc.msg, tc.want, got)
		}
	}
}

func TestIsRateLimited(t *testing.T) {
	if !IsRateLimited(NewOracleError(KindRateLimited, errors.New("429"))) {
		t.Error("expected rate limited")
	}
	if IsRateLimited(NewOracleError(KindTimeout, errors.New("slow"))) {
		t.Error("timeout must not count as rate limited")
	}
	if IsRateLimited(errors.New("connection refused")) {
		t.Error("connection error must not count as rate limited")
	}
}

func TestIsTransient(t *testing.T) {
	transient := []error{
		NewOracleError(KindRateLimited, errors.New("429")),
		NewOracleError(KindTimeout, errors.New("slow")),
		syscall.ECONNREFUSED,
	}
	for _, err := range transient {
		if !IsTransient(err) {
			t.Errorf("expected transient: %v", err)
		}
	}

	permanent := []error{
		NewOracleError(KindAuthFailure, errors.New("401")),
		NewOracleError(KindMalformed, errors.New("bad json")),
		errors.New("something unexpected"),
	}
	for _, err := range permanent {
		if IsTransient(err) {
			t.Errorf("expected permanent: %v", err)
		}
	}
}
