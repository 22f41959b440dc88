package socialwallet

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/socialwallet/socialwallet-contract/common"
)

type (
	// Account is an identity record of the owner.
	Account struct {
		Owner         interop.Hash160
		AuthMethods   map[string]string
		IsInitialized bool
		// CreatedAt is a timestamp (in milliseconds) of the block the
		// account was created in.
		CreatedAt int
	}

	// AuthMethod is an external authentication method of the account.
	AuthMethod struct {
		Type       string
		Identifier string
	}

	accountHeader struct {
		Owner         interop.Hash160
		IsInitialized bool
		CreatedAt     int
	}
)

const (
	accountPrefix = 'a'
	methodPrefix  = 'm'
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	runtime.Log("socialwallet contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	if !common.HasUpdateAccess() {
		panic(common.ErrUpdateAccessDenied)
	}

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("socialwallet contract updated")
}

// Initialize method creates an account for the owner with a single
// authentication method. It returns false and changes nothing if the owner
// already has an account.
//
// Initialize does not check the owner witness, so anyone can create an
// account for any owner.
//
// Produces AccountInitialized notification.
func Initialize(owner interop.Hash160, methodType, identifier string) bool {
	common.CheckOwner(owner)

	ctx := storage.GetContext()
	key := accountKey(owner)

	if storage.Get(ctx, key) != nil {
		return false
	}

	common.SetSerialized(ctx, key, accountHeader{
		Owner:         owner,
		IsInitialized: true,
		CreatedAt:     runtime.GetTime(),
	})
	putAuthMethod(ctx, owner, methodType, identifier)

	runtime.Notify("AccountInitialized", owner, methodType, identifier)

	return true
}

// AddAuthMethod method sets identifier of the authentication method of the
// owner's account. Identifier of an existing method is replaced. It returns
// false if the owner has no account.
//
// AddAuthMethod must be invoked with the owner witness.
//
// Produces AuthMethodAdded notification.
func AddAuthMethod(owner interop.Hash160, methodType, identifier string) bool {
	common.CheckOwner(owner)
	common.CheckOwnerWitness(owner)

	ctx := storage.GetContext()

	if storage.Get(ctx, accountKey(owner)) == nil {
		return false
	}

	putAuthMethod(ctx, owner, methodType, identifier)

	runtime.Notify("AuthMethodAdded", owner, methodType, identifier)

	return true
}

// GetAccount method returns the owner's account or nil if there is no one.
func GetAccount(owner interop.Hash160) *Account {
	common.CheckOwner(owner)

	ctx := storage.GetReadOnlyContext()

	hdr, ok := getAccountHeader(ctx, owner)
	if !ok {
		return nil
	}

	methods := map[string]string{}

	it := storage.Find(ctx, methodsPrefix(owner), storage.ValuesOnly|storage.DeserializeValues)
	for iterator.Next(it) {
		m := iterator.Value(it).(AuthMethod)
		methods[m.Type] = m.Identifier
	}

	return &Account{
		Owner:         hdr.Owner,
		AuthMethods:   methods,
		IsInitialized: hdr.IsInitialized,
		CreatedAt:     hdr.CreatedAt,
	}
}

// HasAuthMethod method returns true if the owner has an account with
// the given authentication method type.
func HasAuthMethod(owner interop.Hash160, methodType string) bool {
	common.CheckOwner(owner)

	ctx := storage.GetReadOnlyContext()

	return storage.Get(ctx, methodKey(owner, methodType)) != nil
}

// GetAuthMethods method returns the list of authentication method types of
// the owner's account. The list is empty if there is no account. Order of the
// types is not specified.
func GetAuthMethods(owner interop.Hash160) []string {
	common.CheckOwner(owner)

	ctx := storage.GetReadOnlyContext()
	types := []string{}

	it := storage.Find(ctx, methodsPrefix(owner), storage.ValuesOnly|storage.DeserializeValues)
	for iterator.Next(it) {
		m := iterator.Value(it).(AuthMethod)
		types = append(types, m.Type)
	}

	return types
}

// RemoveAuthMethod method removes the authentication method from the owner's
// account. It returns false if there is no account or the account has no
// such method. The last method of the account can be removed as well.
//
// RemoveAuthMethod must be invoked with the owner witness.
//
// Produces AuthMethodRemoved notification.
func RemoveAuthMethod(owner interop.Hash160, methodType string) bool {
	common.CheckOwner(owner)
	common.CheckOwnerWitness(owner)

	ctx := storage.GetContext()
	key := methodKey(owner, methodType)

	if storage.Get(ctx, key) == nil {
		return false
	}

	storage.Delete(ctx, key)

	runtime.Notify("AuthMethodRemoved", owner, methodType)

	return true
}

// TransferOwnership method moves the account of the current owner to the new
// owner. Account previously stored for the new owner is replaced without
// any checks. It returns false if the current owner has no account.
// Transfer to the same owner does nothing and returns true.
//
// TransferOwnership must be invoked with the current owner witness.
//
// Produces OwnershipTransferred notification.
func TransferOwnership(currentOwner, newOwner interop.Hash160) bool {
	common.CheckOwner(currentOwner)
	common.CheckOwner(newOwner)
	common.CheckOwnerWitness(currentOwner)

	ctx := storage.GetContext()

	hdr, ok := getAccountHeader(ctx, currentOwner)
	if !ok {
		return false
	}

	if currentOwner.Equals(newOwner) {
		return true
	}

	deleteAccount(ctx, newOwner)

	var (
		oldPrefix = methodsPrefix(currentOwner)
		newPrefix = methodsPrefix(newOwner)
		suffixes  [][]byte
		values    [][]byte
	)

	it := storage.Find(ctx, oldPrefix, storage.RemovePrefix)
	for iterator.Next(it) {
		kv := iterator.Value(it).(struct {
			key   []byte
			value []byte
		})
		suffixes = append(suffixes, kv.key)
		values = append(values, kv.value)
	}

	for i := range suffixes {
		storage.Delete(ctx, append(oldPrefix, suffixes[i]...))
		storage.Put(ctx, append(newPrefix, suffixes[i]...), values[i])
	}

	storage.Delete(ctx, accountKey(currentOwner))

	hdr.Owner = newOwner
	common.SetSerialized(ctx, accountKey(newOwner), hdr)

	runtime.Notify("OwnershipTransferred", currentOwner, newOwner)

	return true
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func putAuthMethod(ctx storage.Context, owner interop.Hash160, methodType, identifier string) {
	common.SetSerialized(ctx, methodKey(owner, methodType), AuthMethod{
		Type:       methodType,
		Identifier: identifier,
	})
}

func getAccountHeader(ctx storage.Context, owner interop.Hash160) (accountHeader, bool) {
	v := common.GetSerialized(ctx, accountKey(owner))
	if v == nil {
		return accountHeader{}, false
	}

	return v.(accountHeader), true
}

// deleteAccount removes account header and all authentication methods of
// the owner.
func deleteAccount(ctx storage.Context, owner interop.Hash160) {
	var keys [][]byte

	it := storage.Find(ctx, methodsPrefix(owner), storage.KeysOnly)
	for iterator.Next(it) {
		keys = append(keys, iterator.Value(it).([]byte))
	}

	for i := range keys {
		storage.Delete(ctx, keys[i])
	}

	storage.Delete(ctx, accountKey(owner))
}

func accountKey(owner interop.Hash160) []byte {
	return append([]byte{accountPrefix}, owner...)
}

func methodsPrefix(owner interop.Hash160) []byte {
	return append([]byte{methodPrefix}, owner...)
}

// methodKey hashes method type to keep storage key length fixed for
// arbitrary type strings.
func methodKey(owner interop.Hash160, methodType string) []byte {
	return append(methodsPrefix(owner), crypto.Sha256([]byte(methodType))...)
}
