package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/block"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/redis/go-redis/v9"
	"github.com/socialwallet/socialwallet-contract/indexer"
	"go.uber.org/zap"
)

func runIndex(ctx context.Context, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	wsEndpoint := fs.String("rpc", "", "WebSocket address of the Neo RPC server (ws://host:port/ws)")
	contractStr := fs.String("contract", "", "SocialWallet contract address or script hash (LE)")
	redisURL := fs.String("redis", "redis://localhost:6379/0", "Redis URL")
	from := fs.Int64("from", -1, "Index of the first block to process (default: block after the last indexed one)")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	switch {
	case *wsEndpoint == "":
		return errors.New("missing Neo RPC endpoint")
	case *contractStr == "":
		return errors.New("missing contract")
	}

	contract, err := parseUint160(*contractStr)
	if err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}

	db, err := newRedisClient(ctx, *redisURL)
	if err != nil {
		return err
	}
	defer db.Close()

	c, err := rpcclient.NewWS(ctx, *wsEndpoint, rpcclient.WSOptions{
		Options: rpcclient.Options{
			DialTimeout:    rpcTimeout,
			RequestTimeout: rpcTimeout,
		},
	})
	if err != nil {
		return fmt.Errorf("WS client dial: %w", err)
	}
	defer c.Close()

	err = c.Init()
	if err != nil {
		return fmt.Errorf("WS client init: %w", err)
	}

	idx := indexer.New(db, log)

	next, err := idx.NextBlock(ctx, *from)
	if err != nil {
		return err
	}

	next, err = idx.CatchUp(ctx, c, contract, next)
	if err != nil {
		return fmt.Errorf("catch up with the chain: %w", err)
	}

	return listenBlocks(ctx, c, contract, idx, next, log)
}

func runOwners(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("owners", flag.ContinueOnError)
	redisURL := fs.String("redis", "redis://localhost:6379/0", "Redis URL")
	methodType := fs.String("type", "", "Authentication method type (e.g. 'google')")
	identifier := fs.String("id", "", "Authentication method identifier")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	if *methodType == "" {
		return errors.New("missing method type")
	}

	db, err := newRedisClient(ctx, *redisURL)
	if err != nil {
		return err
	}
	defer db.Close()

	owners, err := indexer.New(db, nil).Owners(ctx, *methodType, *identifier)
	if err != nil {
		return fmt.Errorf("lookup owners: %w", err)
	}

	res := make([]string, 0, len(owners))
	for i := range owners {
		res = append(res, address.Uint160ToString(owners[i]))
	}

	return printJSON(res)
}

func newRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	db := redis.NewClient(opt)

	err = db.Ping(ctx).Err()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return db, nil
}

// listenBlocks subscribes to new blocks and applies notifications of the
// contract to the index until context is done or subscription is closed by
// the server. Blocks missed between catching up and subscription are
// requested separately.
func listenBlocks(ctx context.Context, c *rpcclient.WSClient, contract util.Uint160, idx *indexer.Index, next uint32, log *zap.Logger) error {
	ch := make(chan *block.Block, 64)

	id, err := c.ReceiveBlocks(nil, ch)
	if err != nil {
		return fmt.Errorf("subscribe to blocks: %w", err)
	}

	log.Info("listening new blocks",
		zap.Stringer("contract", contract),
		zap.Uint32("next", next),
		zap.String("subscription", id))

	for {
		select {
		case <-ctx.Done():
			err = c.Unsubscribe(id)
			if err != nil {
				log.Warn("failed to unsubscribe", zap.Error(err))
			}
			return nil
		case b, ok := <-ch:
			if !ok {
				return errors.New("block channel closed by the RPC client")
			}

			next, err = idx.ProcessBlock(ctx, c, contract, next, b)
			if err != nil {
				return fmt.Errorf("process block #%d: %w", b.Index, err)
			}
		}
	}
}
