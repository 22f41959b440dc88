package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/nspcc-dev/neo-go/pkg/wallet"
	"github.com/socialwallet/socialwallet-contract/contracts"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func runDeploy(ctx context.Context, log *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	endpoint := fs.String("rpc", "", "Network address of the Neo RPC server")
	walletPath := fs.String("wallet", "", "Path to the NEP-6 wallet of the deployer")
	accountStr := fs.String("address", "", "Deployer account address (default: first wallet account)")
	dir := fs.String("dir", "", "Directory with compiled 'contract.nef' and 'manifest.json'")

	err := fs.Parse(args)
	if err != nil {
		return err
	}

	switch {
	case *endpoint == "":
		return errors.New("missing Neo RPC endpoint")
	case *walletPath == "":
		return errors.New("missing wallet")
	case *dir == "":
		return errors.New("missing contract directory")
	}

	ctr, err := contracts.ReadDir(*dir)
	if err != nil {
		return err
	}

	w, err := wallet.NewWalletFromFile(*walletPath)
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}

	acc, err := pickAccount(w, *accountStr)
	if err != nil {
		return err
	}

	pass, err := readPassword(fmt.Sprintf("Enter password for %s > ", acc.Address))
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	err = acc.Decrypt(pass, w.Scrypt)
	if err != nil {
		return fmt.Errorf("decrypt account %s: %w", acc.Address, err)
	}

	c, err := rpcclient.New(ctx, *endpoint, rpcclient.Options{
		DialTimeout:    rpcTimeout,
		RequestTimeout: rpcTimeout,
	})
	if err != nil {
		return fmt.Errorf("RPC client dial: %w", err)
	}
	defer c.Close()

	err = c.Init()
	if err != nil {
		return fmt.Errorf("RPC client init: %w", err)
	}

	act, err := actor.NewSimple(c, acc)
	if err != nil {
		return fmt.Errorf("init actor: %w", err)
	}

	h, vub, err := management.New(act).Deploy(&ctr.NEF, &ctr.Manifest, nil)
	res, err := act.Wait(h, vub, err)
	if err != nil {
		return fmt.Errorf("deploy transaction: %w", err)
	}

	if res.VMState != vmstate.Halt {
		return fmt.Errorf("deploy transaction %s failed: %s", h.StringLE(), res.FaultException)
	}

	contract := state.CreateContractHash(act.Sender(), ctr.NEF.Checksum, ctr.Manifest.Name)

	log.Info("contract deployed",
		zap.Stringer("tx", h),
		zap.String("contract", contract.StringLE()),
		zap.String("address", address.Uint160ToString(contract)))

	fmt.Fprintln(os.Stdout, contract.StringLE())

	return nil
}

// pickAccount returns wallet account with the given address or the first
// account if address is empty.
func pickAccount(w *wallet.Wallet, addr string) (*wallet.Account, error) {
	if addr == "" {
		if len(w.Accounts) == 0 {
			return nil, errors.New("wallet has no accounts")
		}
		return w.Accounts[0], nil
	}

	h, err := address.StringToUint160(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	acc := w.GetAccount(h)
	if acc == nil {
		return nil, fmt.Errorf("account %s not found in the wallet", addr)
	}

	return acc, nil
}

// readPassword reads password from the terminal without echo or a single
// line from the standard input if it is not a terminal.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	return string(pass), nil
}
