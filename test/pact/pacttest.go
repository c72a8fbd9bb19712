//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "medstore-checkout-api"
	ConsumerName = "medstore-storefront"

	StateCartReady   = "user 42 has product 101 in the cart"
	StateCartEmpty   = "user 42 has an empty cart"
	StateOrderAbsent = "no order ORD-42-missing exists"
)

const (
	BuyerID        int64 = 42
	ProductID      int64 = 101
	ProductPrice         = "650.00"
	ProductStock   int64 = 5
	MissingOrderNo       = "ORD-42-missing"
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleShipping is the delivery address the storefront submits.
func ExampleShipping() map[string]any {
	return map[string]any{
		"firstName": "Pact",
		"lastName":  "Buyer",
		"email":     "pact.buyer@example.com",
		"phone":     "9800000042",
		"address":   "42 Contract Lane",
		"city":      "Bengaluru",
		"state":     "KA",
		"pincode":   "560001",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
