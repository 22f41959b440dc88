/*
Package indexer maintains off-chain index of SocialWallet accounts in Redis.

Index is fed with contract notifications and answers two questions the
contract can not answer itself: which owners have the given identifier of the
authentication method and which methods the owner has without RPC node
round trip.

Redis layout:

	sw:acc:<owner>                             hash: method type -> identifier
	sw:rev:<type length>:<type>:<identifier>   set: owners
	sw:height                                  index of the last processed block
	sw:pos                                     position of the last applied notification

Owners are encoded as little-endian hex strings of the script hash. The same
identifier may belong to several accounts, so reverse entries are sets.
Accounts without authentication methods are not stored.
*/
package indexer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/redis/go-redis/v9"
	"github.com/socialwallet/socialwallet-contract/rpc/socialwallet"
	"go.uber.org/zap"
)

// Notification names of the SocialWallet contract.
const (
	AccountInitialized   = "AccountInitialized"
	AuthMethodAdded      = "AuthMethodAdded"
	AuthMethodRemoved    = "AuthMethodRemoved"
	OwnershipTransferred = "OwnershipTransferred"
)

const (
	accountKeyPrefix = "sw:acc:"
	reverseKeyPrefix = "sw:rev:"
	heightKey        = "sw:height"
	positionKey      = "sw:pos"
)

// ErrNotFound is returned when the requested record is missing in the index.
var ErrNotFound = errors.New("not found")

// Index is a Redis-backed index of SocialWallet accounts.
type Index struct {
	db  redis.Cmdable
	log *zap.Logger
}

// New returns Index working with the provided Redis client.
func New(db redis.Cmdable, log *zap.Logger) *Index {
	if log == nil {
		log = zap.NewNop()
	}

	return &Index{
		db:  db,
		log: log,
	}
}

// ApplyNotification decodes contract notification by its name and applies it
// to the index. Notifications of unknown names are skipped. Notifications
// that can not be decoded (e.g. method type is not a valid UTF-8 string) are
// logged and skipped too, so that such accounts are never indexed. Only
// storage errors are returned.
func (x *Index) ApplyNotification(ctx context.Context, name string, item *stackitem.Array) error {
	return x.applyNotification(ctx, name, item, "")
}

// applyNotification is ApplyNotification storing position of the
// notification together with the changes if pos is not empty.
func (x *Index) applyNotification(ctx context.Context, name string, item *stackitem.Array, pos string) error {
	var (
		ev  any
		err error
	)

	switch name {
	case AccountInitialized:
		e := new(socialwallet.AccountInitializedEvent)
		ev, err = e, e.FromStackItem(item)
	case AuthMethodAdded:
		e := new(socialwallet.AuthMethodAddedEvent)
		ev, err = e, e.FromStackItem(item)
	case AuthMethodRemoved:
		e := new(socialwallet.AuthMethodRemovedEvent)
		ev, err = e, e.FromStackItem(item)
	case OwnershipTransferred:
		e := new(socialwallet.OwnershipTransferredEvent)
		ev, err = e, e.FromStackItem(item)
	default:
		x.log.Debug("skip unknown notification", zap.String("name", name))
		return nil
	}

	if err != nil {
		x.log.Warn("skip undecodable notification",
			zap.String("name", name),
			zap.Error(err))
		return nil
	}

	return x.apply(ctx, ev, pos)
}

// Apply applies decoded contract event to the index. Supported events are
// pointers to the event types of rpc/socialwallet package.
func (x *Index) Apply(ctx context.Context, ev any) error {
	return x.apply(ctx, ev, "")
}

func (x *Index) apply(ctx context.Context, ev any, pos string) error {
	var err error

	switch e := ev.(type) {
	case *socialwallet.AccountInitializedEvent:
		err = x.putMethod(ctx, pos, e.Owner, e.MethodType, e.Identifier)
	case *socialwallet.AuthMethodAddedEvent:
		err = x.putMethod(ctx, pos, e.Owner, e.MethodType, e.Identifier)
	case *socialwallet.AuthMethodRemovedEvent:
		err = x.removeMethod(ctx, pos, e.Owner, e.MethodType)
	case *socialwallet.OwnershipTransferredEvent:
		err = x.transfer(ctx, pos, e.PreviousOwner, e.NewOwner)
	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}

	return err
}

// Owners returns owners of the accounts having the given authentication
// method sorted by script hash. Returns ErrNotFound if there is no such
// account in the index.
func (x *Index) Owners(ctx context.Context, methodType, identifier string) ([]util.Uint160, error) {
	members, err := x.db.SMembers(ctx, reverseKey(methodType, identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("get owners: %w", err)
	}

	if len(members) == 0 {
		return nil, ErrNotFound
	}

	res := make([]util.Uint160, 0, len(members))
	for i := range members {
		owner, err := util.Uint160DecodeStringLE(members[i])
		if err != nil {
			return nil, fmt.Errorf("invalid owner %q in the index: %w", members[i], err)
		}
		res = append(res, owner)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].Less(res[j]) })

	return res, nil
}

// Methods returns authentication methods of the owner as method type to
// identifier map. Returns ErrNotFound if the owner has no methods in the index.
func (x *Index) Methods(ctx context.Context, owner util.Uint160) (map[string]string, error) {
	res, err := x.db.HGetAll(ctx, accountKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("get methods of %s: %w", owner.StringLE(), err)
	}

	if len(res) == 0 {
		return nil, ErrNotFound
	}

	return res, nil
}

// Height returns index of the last block processed by the index. False is
// returned if no block has been processed yet.
func (x *Index) Height(ctx context.Context) (uint32, bool, error) {
	h, err := x.db.Get(ctx, heightKey).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get height: %w", err)
	}

	return uint32(h), true, nil
}

func (x *Index) setHeight(ctx context.Context, h uint32) error {
	err := x.db.Set(ctx, heightKey, h, 0).Err()
	if err != nil {
		return fmt.Errorf("set height: %w", err)
	}

	return nil
}

func (x *Index) putMethod(ctx context.Context, pos string, owner util.Uint160, methodType, identifier string) error {
	var (
		key      = accountKey(owner)
		ownerStr = owner.StringLE()
	)

	prev, err := x.db.HGet(ctx, key, methodType).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get previous identifier: %w", err)
	}
	overwrite := err == nil && prev != identifier

	_, err = x.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if overwrite {
			p.SRem(ctx, reverseKey(methodType, prev), ownerStr)
		}
		p.HSet(ctx, key, methodType, identifier)
		p.SAdd(ctx, reverseKey(methodType, identifier), ownerStr)
		markPosition(ctx, p, pos)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put method %s of %s: %w", methodType, ownerStr, err)
	}

	x.log.Debug("method indexed",
		zap.Stringer("owner", owner),
		zap.String("type", methodType))

	return nil
}

func (x *Index) removeMethod(ctx context.Context, pos string, owner util.Uint160, methodType string) error {
	key := accountKey(owner)

	identifier, err := x.db.HGet(ctx, key, methodType).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("get identifier: %w", err)
	}

	_, err = x.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, key, methodType)
		p.SRem(ctx, reverseKey(methodType, identifier), owner.StringLE())
		markPosition(ctx, p, pos)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove method %s of %s: %w", methodType, owner.StringLE(), err)
	}

	x.log.Debug("method removed from index",
		zap.Stringer("owner", owner),
		zap.String("type", methodType))

	return nil
}

// transfer moves all methods of the previous owner to the new one. Methods
// the new owner had before are dropped the same way the contract replaces
// its account.
func (x *Index) transfer(ctx context.Context, pos string, prevOwner, newOwner util.Uint160) error {
	if prevOwner.Equals(newOwner) {
		return nil
	}

	var (
		prevKey, newKey = accountKey(prevOwner), accountKey(newOwner)
		prevStr, newStr = prevOwner.StringLE(), newOwner.StringLE()
	)

	moved, err := x.db.HGetAll(ctx, prevKey).Result()
	if err != nil {
		return fmt.Errorf("get methods of %s: %w", prevStr, err)
	}

	replaced, err := x.db.HGetAll(ctx, newKey).Result()
	if err != nil {
		return fmt.Errorf("get methods of %s: %w", newStr, err)
	}

	_, err = x.db.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for methodType, identifier := range replaced {
			p.SRem(ctx, reverseKey(methodType, identifier), newStr)
		}
		p.Del(ctx, newKey, prevKey)

		for methodType, identifier := range moved {
			rev := reverseKey(methodType, identifier)

			p.HSet(ctx, newKey, methodType, identifier)
			p.SRem(ctx, rev, prevStr)
			p.SAdd(ctx, rev, newStr)
		}
		markPosition(ctx, p, pos)
		return nil
	})
	if err != nil {
		return fmt.Errorf("transfer %s to %s: %w", prevStr, newStr, err)
	}

	x.log.Debug("account ownership transferred in index",
		zap.Stringer("from", prevOwner),
		zap.Stringer("to", newOwner),
		zap.Int("methods", len(moved)))

	return nil
}

func markPosition(ctx context.Context, p redis.Pipeliner, pos string) {
	if pos != "" {
		p.Set(ctx, positionKey, pos, 0)
	}
}

func accountKey(owner util.Uint160) string {
	return accountKeyPrefix + owner.StringLE()
}

// reverseKey prefixes method type with its length, so any type and
// identifier pair maps to a distinct key.
func reverseKey(methodType, identifier string) string {
	return reverseKeyPrefix + strconv.Itoa(len(methodType)) + ":" + methodType + ":" + identifier
}
