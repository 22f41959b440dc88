// Package socialwallet contains RPC wrappers for SocialWallet contract.
package socialwallet

import (
	"errors"
	"fmt"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"math/big"
	"unicode/utf8"
)

// Account is a contract-specific socialwallet.Account type used by its methods.
type Account struct {
	Owner util.Uint160
	AuthMethods map[string]string
	IsInitialized bool
	CreatedAt *big.Int
}

// AccountInitializedEvent represents "AccountInitialized" event emitted by the contract.
type AccountInitializedEvent struct {
	Owner util.Uint160
	MethodType string
	Identifier string
}

// AuthMethodAddedEvent represents "AuthMethodAdded" event emitted by the contract.
type AuthMethodAddedEvent struct {
	Owner util.Uint160
	MethodType string
	Identifier string
}

// AuthMethodRemovedEvent represents "AuthMethodRemoved" event emitted by the contract.
type AuthMethodRemovedEvent struct {
	Owner util.Uint160
	MethodType string
}

// OwnershipTransferredEvent represents "OwnershipTransferred" event emitted by the contract.
type OwnershipTransferredEvent struct {
	PreviousOwner util.Uint160
	NewOwner util.Uint160
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// GetAccount invokes `getAccount` method of contract. Nil account is
// returned if the owner has no account.
func (c *ContractReader) GetAccount(owner util.Uint160) (*Account, error) {
	return itemToAccount(unwrap.Item(c.invoker.Call(c.hash, "getAccount", owner)))
}

// GetAuthMethods invokes `getAuthMethods` method of contract.
func (c *ContractReader) GetAuthMethods(owner util.Uint160) ([]string, error) {
	return unwrap.ArrayOfUTF8Strings(c.invoker.Call(c.hash, "getAuthMethods", owner))
}

// HasAuthMethod invokes `hasAuthMethod` method of contract.
func (c *ContractReader) HasAuthMethod(owner util.Uint160, methodType string) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "hasAuthMethod", owner, methodType))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// AddAuthMethod creates a transaction invoking `addAuthMethod` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AddAuthMethod(owner util.Uint160, methodType string, identifier string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "addAuthMethod", owner, methodType, identifier)
}

// AddAuthMethodTransaction creates a transaction invoking `addAuthMethod` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AddAuthMethodTransaction(owner util.Uint160, methodType string, identifier string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "addAuthMethod", owner, methodType, identifier)
}

// AddAuthMethodUnsigned creates a transaction invoking `addAuthMethod` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AddAuthMethodUnsigned(owner util.Uint160, methodType string, identifier string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "addAuthMethod", nil, owner, methodType, identifier)
}

// Initialize creates a transaction invoking `initialize` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Initialize(owner util.Uint160, methodType string, identifier string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "initialize", owner, methodType, identifier)
}

// InitializeTransaction creates a transaction invoking `initialize` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) InitializeTransaction(owner util.Uint160, methodType string, identifier string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "initialize", owner, methodType, identifier)
}

// InitializeUnsigned creates a transaction invoking `initialize` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) InitializeUnsigned(owner util.Uint160, methodType string, identifier string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "initialize", nil, owner, methodType, identifier)
}

// RemoveAuthMethod creates a transaction invoking `removeAuthMethod` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RemoveAuthMethod(owner util.Uint160, methodType string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "removeAuthMethod", owner, methodType)
}

// RemoveAuthMethodTransaction creates a transaction invoking `removeAuthMethod` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RemoveAuthMethodTransaction(owner util.Uint160, methodType string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "removeAuthMethod", owner, methodType)
}

// RemoveAuthMethodUnsigned creates a transaction invoking `removeAuthMethod` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RemoveAuthMethodUnsigned(owner util.Uint160, methodType string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "removeAuthMethod", nil, owner, methodType)
}

// TransferOwnership creates a transaction invoking `transferOwnership` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) TransferOwnership(currentOwner util.Uint160, newOwner util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "transferOwnership", currentOwner, newOwner)
}

// TransferOwnershipTransaction creates a transaction invoking `transferOwnership` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) TransferOwnershipTransaction(currentOwner util.Uint160, newOwner util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "transferOwnership", currentOwner, newOwner)
}

// TransferOwnershipUnsigned creates a transaction invoking `transferOwnership` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) TransferOwnershipUnsigned(currentOwner util.Uint160, newOwner util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "transferOwnership", nil, currentOwner, newOwner)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// itemToAccount converts stack item into *Account. Null item is converted
// into nil.
func itemToAccount(item stackitem.Item, err error) (*Account, error) {
	if err != nil {
		return nil, err
	}
	if _, ok := item.(stackitem.Null); ok {
		return nil, nil
	}
	var res = new(Account)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of Account from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *Account) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err error
	)
	index++
	res.Owner, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	index++
	res.AuthMethods, err = func (item stackitem.Item) (map[string]string, error) {
		m, ok := item.Value().([]stackitem.MapElement)
		if !ok {
			return nil, fmt.Errorf("%s is not a map", item.Type().String())
		}
		res := make(map[string]string)
		for i := range m {
			k, err := itemToUTF8String(m[i].Key)
			if err != nil {
				return nil, fmt.Errorf("key %d: %w", i, err)
			}
			v, err := itemToUTF8String(m[i].Value)
			if err != nil {
				return nil, fmt.Errorf("value %d: %w", i, err)
			}
			res[k] = v
		}
		return res, nil
	} (arr[index])
	if err != nil {
		return fmt.Errorf("field AuthMethods: %w", err)
	}

	index++
	res.IsInitialized, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field IsInitialized: %w", err)
	}

	index++
	res.CreatedAt, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field CreatedAt: %w", err)
	}

	return nil
}

// AccountInitializedEventsFromApplicationLog retrieves a set of all emitted events
// with "AccountInitialized" name from the provided [result.ApplicationLog].
func AccountInitializedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AccountInitializedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AccountInitializedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AccountInitialized" {
				continue
			}
			event := new(AccountInitializedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AccountInitializedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AccountInitializedEvent or
// returns an error if it's not possible to do to so.
func (e *AccountInitializedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.MethodType, err = itemToUTF8String(arr[1])
	if err != nil {
		return fmt.Errorf("field MethodType: %w", err)
	}

	e.Identifier, err = itemToUTF8String(arr[2])
	if err != nil {
		return fmt.Errorf("field Identifier: %w", err)
	}

	return nil
}

// AuthMethodAddedEventsFromApplicationLog retrieves a set of all emitted events
// with "AuthMethodAdded" name from the provided [result.ApplicationLog].
func AuthMethodAddedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AuthMethodAddedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AuthMethodAddedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AuthMethodAdded" {
				continue
			}
			event := new(AuthMethodAddedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AuthMethodAddedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AuthMethodAddedEvent or
// returns an error if it's not possible to do to so.
func (e *AuthMethodAddedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.MethodType, err = itemToUTF8String(arr[1])
	if err != nil {
		return fmt.Errorf("field MethodType: %w", err)
	}

	e.Identifier, err = itemToUTF8String(arr[2])
	if err != nil {
		return fmt.Errorf("field Identifier: %w", err)
	}

	return nil
}

// AuthMethodRemovedEventsFromApplicationLog retrieves a set of all emitted events
// with "AuthMethodRemoved" name from the provided [result.ApplicationLog].
func AuthMethodRemovedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AuthMethodRemovedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AuthMethodRemovedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AuthMethodRemoved" {
				continue
			}
			event := new(AuthMethodRemovedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AuthMethodRemovedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AuthMethodRemovedEvent or
// returns an error if it's not possible to do to so.
func (e *AuthMethodRemovedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.MethodType, err = itemToUTF8String(arr[1])
	if err != nil {
		return fmt.Errorf("field MethodType: %w", err)
	}

	return nil
}

// OwnershipTransferredEventsFromApplicationLog retrieves a set of all emitted events
// with "OwnershipTransferred" name from the provided [result.ApplicationLog].
func OwnershipTransferredEventsFromApplicationLog(log *result.ApplicationLog) ([]*OwnershipTransferredEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*OwnershipTransferredEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "OwnershipTransferred" {
				continue
			}
			event := new(OwnershipTransferredEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize OwnershipTransferredEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to OwnershipTransferredEvent or
// returns an error if it's not possible to do to so.
func (e *OwnershipTransferredEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.PreviousOwner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field PreviousOwner: %w", err)
	}

	e.NewOwner, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field NewOwner: %w", err)
	}

	return nil
}

func eventFields(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToUTF8String(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}
