package tests

import (
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/socialwallet/socialwallet-contract/rpc/socialwallet"
	"github.com/stretchr/testify/require"
)

// getAccount reads account of the owner through 'getAccount' contract method.
// Nil is returned for missing accounts.
func getAccount(t testing.TB, c *neotest.ContractInvoker, owner util.Uint160) *socialwallet.Account {
	s, err := c.TestInvoke(t, "getAccount", owner)
	require.NoError(t, err)

	item := s.Pop().Item()
	if _, ok := item.(stackitem.Null); ok {
		return nil
	}

	var acc socialwallet.Account
	require.NoError(t, acc.FromStackItem(item))

	return &acc
}

func getAuthMethods(t testing.TB, c *neotest.ContractInvoker, owner util.Uint160) []string {
	s, err := c.TestInvoke(t, "getAuthMethods", owner)
	require.NoError(t, err)

	arr := s.Pop().Array()
	res := make([]string, 0, len(arr))
	for i := range arr {
		b, err := arr[i].TryBytes()
		require.NoError(t, err)
		res = append(res, string(b))
	}

	return res
}

func hasAuthMethod(t testing.TB, c *neotest.ContractInvoker, owner util.Uint160, methodType string) bool {
	s, err := c.TestInvoke(t, "hasAuthMethod", owner, methodType)
	require.NoError(t, err)

	return s.Pop().Bool()
}

// txLog wraps execution result of the persisted transaction into application log
// so that it can be parsed by the RPC bindings.
func txLog(t testing.TB, c *neotest.ContractInvoker, h util.Uint256) *result.ApplicationLog {
	res := c.GetTxExecResult(t, h)
	return &result.ApplicationLog{
		Container:  h,
		Executions: []state.Execution{res.Execution},
	}
}
