package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/invoker"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/socialwallet/socialwallet-contract/rpc/socialwallet"
	"go.uber.org/zap"
)

const usage = `Usage: socialwallet <command> [flags]

Commands:
  account  print account of the owner
  methods  print authentication method types of the owner
  owners   print owners having the authentication method (from Redis index)
  index    index contract notifications into Redis
  deploy   deploy compiled contract

Run 'socialwallet <command> -h' for command flags.
`

const rpcTimeout = 15 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "account":
		err = runAccount(ctx, args)
	case "methods":
		err = runMethods(ctx, args)
	case "owners":
		err = runOwners(ctx, args)
	case "index":
		err = runIndex(ctx, log, args)
	case "deploy":
		err = runDeploy(ctx, log, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command '%s'\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		log.Fatal("command failed", zap.String("command", cmd), zap.Error(err))
	}
}

// readerFlags are flags of the commands reading single account.
type readerFlags struct {
	rpc      string
	contract string
	owner    string
}

func (x *readerFlags) parse(name string, args []string) (contract, owner util.Uint160, err error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&x.rpc, "rpc", "", "Network address of the Neo RPC server")
	fs.StringVar(&x.contract, "contract", "", "SocialWallet contract address or script hash (LE)")
	fs.StringVar(&x.owner, "owner", "", "Account owner address or script hash (LE)")

	err = fs.Parse(args)
	if err != nil {
		return
	}

	switch {
	case x.rpc == "":
		return contract, owner, errors.New("missing Neo RPC endpoint")
	case x.contract == "":
		return contract, owner, errors.New("missing contract")
	case x.owner == "":
		return contract, owner, errors.New("missing owner")
	}

	contract, err = parseUint160(x.contract)
	if err != nil {
		return contract, owner, fmt.Errorf("invalid contract: %w", err)
	}

	owner, err = parseUint160(x.owner)
	if err != nil {
		return contract, owner, fmt.Errorf("invalid owner: %w", err)
	}

	return contract, owner, nil
}

// newReader dials Neo RPC server and returns SocialWallet contract reader.
// Returned function closes the connection.
func newReader(ctx context.Context, endpoint string, contract util.Uint160) (*socialwallet.ContractReader, func(), error) {
	c, err := rpcclient.New(ctx, endpoint, rpcclient.Options{
		DialTimeout:    rpcTimeout,
		RequestTimeout: rpcTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("RPC client dial: %w", err)
	}

	err = c.Init()
	if err != nil {
		c.Close()
		return nil, nil, fmt.Errorf("RPC client init: %w", err)
	}

	return socialwallet.NewReader(invoker.New(c, nil), contract), c.Close, nil
}

// accountView is a JSON representation of the account.
type accountView struct {
	Owner         string            `json:"owner"`
	ScriptHash    string            `json:"scriptHash"`
	AuthMethods   map[string]string `json:"authMethods"`
	IsInitialized bool              `json:"isInitialized"`
	CreatedAt     time.Time         `json:"createdAt"`
}

func newAccountView(acc *socialwallet.Account) accountView {
	return accountView{
		Owner:         address.Uint160ToString(acc.Owner),
		ScriptHash:    acc.Owner.StringLE(),
		AuthMethods:   acc.AuthMethods,
		IsInitialized: acc.IsInitialized,
		CreatedAt:     time.UnixMilli(acc.CreatedAt.Int64()).UTC(),
	}
}

func runAccount(ctx context.Context, args []string) error {
	var fl readerFlags

	contract, owner, err := fl.parse("account", args)
	if err != nil {
		return err
	}

	r, closeFn, err := newReader(ctx, fl.rpc, contract)
	if err != nil {
		return err
	}
	defer closeFn()

	acc, err := r.GetAccount(owner)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if acc == nil {
		return fmt.Errorf("account of %s not found", address.Uint160ToString(owner))
	}

	return printJSON(newAccountView(acc))
}

func runMethods(ctx context.Context, args []string) error {
	var fl readerFlags

	contract, owner, err := fl.parse("methods", args)
	if err != nil {
		return err
	}

	r, closeFn, err := newReader(ctx, fl.rpc, contract)
	if err != nil {
		return err
	}
	defer closeFn()

	methods, err := r.GetAuthMethods(owner)
	if err != nil {
		return fmt.Errorf("get auth methods: %w", err)
	}

	return printJSON(methods)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseUint160 decodes script hash from N3 address or LE hex string with
// optional 0x prefix.
func parseUint160(s string) (util.Uint160, error) {
	u, err := address.StringToUint160(s)
	if err == nil {
		return u, nil
	}

	u, err = util.Uint160DecodeStringLE(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return u, fmt.Errorf("neither address nor script hash: %s", s)
	}

	return u, nil
}
