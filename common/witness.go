package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
)

const (
	// ErrOwnerWitnessFailed appears when the method must be called
	// by an account owner but was not.
	ErrOwnerWitnessFailed = "owner witness check failed"
	// ErrInvalidOwner appears when the owner argument is not a valid
	// 20-byte script hash.
	ErrInvalidOwner = "invalid owner"
)

// CheckOwner checks that owner is a valid script hash.
// It panics with ErrInvalidOwner message on fail.
func CheckOwner(owner interop.Hash160) {
	if len(owner) != interop.Hash160Len {
		panic(ErrInvalidOwner)
	}
}

// CheckOwnerWitness checks witness of the passed owner.
// It panics with ErrOwnerWitnessFailed message on fail.
func CheckOwnerWitness(owner interop.Hash160) {
	if !runtime.CheckWitness(owner) {
		panic(ErrOwnerWitnessFailed)
	}
}
