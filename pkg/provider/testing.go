package provider

import (
	"context"
	"testing"
)

// ContractTest defines a standard test suite that all providers must pass
type ContractTest struct {
	// CreateProvider creates a new instance of the provider to test
	CreateProvider func(t *testing.T) Provider

	// Accepted are references the provider must claim
	Accepted []string

	// Rejected are references the provider must leave to the next provider
	Rejected []string

	// Request is passed to Resolve after every Accepted reference was claimed.
	// The backend behind it must know every accepted reference.
	Request func(t *testing.T) Request
}

// RunContractTests runs the standard provider contract test suite
func RunContractTests(t *testing.T, contract ContractTest) {
	t.Run("Contract", func(t *testing.T) {
		t.Run("Name", func(t *testing.T) {
			testProviderName(t, contract)
		})

		t.Run("Accept", func(t *testing.T) {
			testProviderAccept(t, contract)
		})

		t.Run("ResolveEmpty", func(t *testing.T) {
			testProviderResolveEmpty(t, contract)
		})

		if contract.Request != nil && len(contract.Accepted) > 0 {
			t.Run("ResolveTotal", func(t *testing.T) {
				testProviderResolveTotal(t, contract)
			})
		}
	})
}

func testProviderName(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	if p.Name() == "" {
		t.Error("provider name must not be empty")
	}
}

func testProviderAccept(t *testing.T, contract ContractTest) {
	for _, ref := range contract.Accepted {
		p := contract.CreateProvider(t)
		if !p.Accept(ref) {
			t.Errorf("%s should accept %q", p.Name(), ref)
		}
	}
	for _, ref := range contract.Rejected {
		p := contract.CreateProvider(t)
		if p.Accept(ref) {
			t.Errorf("%s should reject %q", p.Name(), ref)
		}
	}
}

// A provider that claimed nothing must not call its backend.
func testProviderResolveEmpty(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	hydration, err := p.Resolve(context.Background(), Request{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("resolve with no references failed: %v", err)
	}
	if len(hydration) != 0 {
		t.Errorf("expected empty hydration, got %d entries", len(hydration))
	}
}

// Every accepted reference must come back under its original spelling.
func testProviderResolveTotal(t *testing.T, contract ContractTest) {
	p := contract.CreateProvider(t)
	for _, ref := range contract.Accepted {
		if !p.Accept(ref) {
			t.Fatalf("%s should accept %q", p.Name(), ref)
		}
	}

	hydration, err := p.Resolve(context.Background(), contract.Request(t))
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	for _, ref := range contract.Accepted {
		if _, ok := hydration[ref]; !ok {
			t.Errorf("hydration is missing %q", ref)
		}
	}
	if len(hydration) != len(contract.Accepted) {
		t.Errorf("expected %d entries, got %d", len(contract.Accepted), len(hydration))
	}
}
