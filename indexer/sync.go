package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/trigger"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Chain provides blocks and application logs of the Neo blockchain.
// Implemented by rpcclient.Client and rpcclient.WSClient.
type Chain interface {
	GetBlockCount() (uint32, error)
	GetBlockByIndex(index uint32) (*block.Block, error)
	GetApplicationLog(hash util.Uint256, trig *trigger.Type) (*result.ApplicationLog, error)
}

// NextBlock returns index of the block to be processed next. If from is not
// negative, it is returned as is. Otherwise, the block following the last
// processed one is returned, or the genesis block for an empty index.
func (x *Index) NextBlock(ctx context.Context, from int64) (uint32, error) {
	if from >= 0 {
		return uint32(from), nil
	}

	h, ok, err := x.Height(ctx)
	if err != nil {
		return 0, err
	}

	if !ok {
		return 0, nil
	}

	return h + 1, nil
}

// CatchUp processes all blocks of the chain starting from the given index
// and returns index of the block to be processed next.
func (x *Index) CatchUp(ctx context.Context, chain Chain, contract util.Uint160, from uint32) (uint32, error) {
	count, err := chain.GetBlockCount()
	if err != nil {
		return from, fmt.Errorf("get block count: %w", err)
	}

	err = x.processRange(ctx, chain, contract, from, count)
	if err != nil {
		return from, err
	}

	if count > from {
		x.log.Info("index caught up with the chain",
			zap.Uint32("from", from),
			zap.Uint32("height", count-1))
		return count, nil
	}

	return from, nil
}

// ProcessBlock applies notifications of the contract emitted by successful
// transactions of the block and stores block index as the index height.
// Missing blocks between next and the given one are requested from the chain
// first. Blocks below next are skipped. Returns index of the block to be
// processed next.
func (x *Index) ProcessBlock(ctx context.Context, chain Chain, contract util.Uint160, next uint32, b *block.Block) (uint32, error) {
	if b.Index < next {
		return next, nil
	}

	err := x.processRange(ctx, chain, contract, next, b.Index)
	if err != nil {
		return next, err
	}

	err = x.processBlock(ctx, chain, contract, b)
	if err != nil {
		return b.Index, err
	}

	return b.Index + 1, nil
}

// processRange processes blocks in [from, to) range.
func (x *Index) processRange(ctx context.Context, chain Chain, contract util.Uint160, from, to uint32) error {
	for i := from; i < to; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		b, err := chain.GetBlockByIndex(i)
		if err != nil {
			return fmt.Errorf("get block #%d: %w", i, err)
		}

		err = x.processBlock(ctx, chain, contract, b)
		if err != nil {
			return err
		}
	}

	return nil
}

func (x *Index) processBlock(ctx context.Context, chain Chain, contract util.Uint160, b *block.Block) error {
	trig := trigger.Application

	last, hasLast, err := x.lastPosition(ctx)
	if err != nil {
		return err
	}

	for i, tx := range b.Transactions {
		h := tx.Hash()

		appLog, err := chain.GetApplicationLog(h, &trig)
		if err != nil {
			return fmt.Errorf("get application log of tx %s: %w", h.StringLE(), err)
		}

		var n int // index of the contract notification within the transaction

		for _, exec := range appLog.Executions {
			if exec.VMState != vmstate.Halt {
				continue
			}

			for _, ev := range exec.Events {
				if !ev.ScriptHash.Equals(contract) {
					continue
				}

				pos := position{block: b.Index, tx: i, event: n}
				n++

				// already applied before the restart
				if hasLast && !pos.after(last) {
					continue
				}

				err = x.applyNotification(ctx, ev.Name, ev.Item, pos.String())
				if err != nil {
					return fmt.Errorf("apply %s notification from tx %s: %w", ev.Name, h.StringLE(), err)
				}
			}
		}
	}

	err = x.setHeight(ctx, b.Index)
	if err != nil {
		return err
	}

	x.log.Debug("block processed",
		zap.Uint32("index", b.Index),
		zap.Int("transactions", len(b.Transactions)))

	return nil
}

// position identifies contract notification in the chain.
type position struct {
	block uint32
	tx    int
	event int
}

func (p position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.block, p.tx, p.event)
}

func (p position) after(o position) bool {
	if p.block != o.block {
		return p.block > o.block
	}
	if p.tx != o.tx {
		return p.tx > o.tx
	}
	return p.event > o.event
}

func parsePosition(s string) (position, error) {
	var p position

	_, err := fmt.Sscanf(s, "%d:%d:%d", &p.block, &p.tx, &p.event)
	if err != nil {
		return p, fmt.Errorf("invalid position %q: %w", s, err)
	}

	return p, nil
}

// lastPosition returns position of the last notification applied during
// block processing.
func (x *Index) lastPosition(ctx context.Context) (position, bool, error) {
	s, err := x.db.Get(ctx, positionKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return position{}, false, nil
		}
		return position{}, false, fmt.Errorf("get position: %w", err)
	}

	p, err := parsePosition(s)
	if err != nil {
		return p, false, err
	}

	return p, true, nil
}
