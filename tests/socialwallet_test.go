package tests

import (
	"path"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/neotest"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/socialwallet/socialwallet-contract/common"
	"github.com/socialwallet/socialwallet-contract/rpc/socialwallet"
	"github.com/stretchr/testify/require"
)

const socialWalletPath = "../socialwallet"

func deploySocialWalletContract(t *testing.T, e *neotest.Executor) util.Uint160 {
	c := neotest.CompileFile(t, e.CommitteeHash, socialWalletPath,
		path.Join(socialWalletPath, "config.yml"))

	e.DeployContract(t, c, nil)
	return c.Hash
}

func newSocialWalletInvoker(t *testing.T) *neotest.ContractInvoker {
	e := newExecutor(t)
	h := deploySocialWalletContract(t, e)
	return e.CommitteeInvoker(h)
}

func TestSocialWallet_Initialize(t *testing.T) {
	e := newSocialWalletInvoker(t)
	owner := e.NewAccount(t).ScriptHash()

	require.Nil(t, getAccount(t, e, owner))
	require.Empty(t, getAuthMethods(t, e, owner))

	// no owner witness is needed
	h := e.Invoke(t, stackitem.NewBool(true), "initialize", owner, "google", "user@gmail.com")
	createdAt := e.TopBlock(t).Timestamp

	acc := getAccount(t, e, owner)
	require.NotNil(t, acc)
	require.Equal(t, owner, acc.Owner)
	require.Equal(t, map[string]string{"google": "user@gmail.com"}, acc.AuthMethods)
	require.True(t, acc.IsInitialized)
	require.Equal(t, createdAt, acc.CreatedAt.Uint64())

	evs, err := socialwallet.AccountInitializedEventsFromApplicationLog(txLog(t, e, h))
	require.NoError(t, err)
	require.Equal(t, []*socialwallet.AccountInitializedEvent{{
		Owner:      owner,
		MethodType: "google",
		Identifier: "user@gmail.com",
	}}, evs)

	t.Run("second initialization", func(t *testing.T) {
		h := e.Invoke(t, stackitem.NewBool(false), "initialize", owner, "facebook", "x")
		require.Empty(t, e.GetTxExecResult(t, h).Events)

		require.Equal(t, acc, getAccount(t, e, owner))
		require.False(t, hasAuthMethod(t, e, owner, "facebook"))
	})

	t.Run("empty strings", func(t *testing.T) {
		other := e.NewAccount(t).ScriptHash()

		e.Invoke(t, stackitem.NewBool(true), "initialize", other, "", "")
		require.Equal(t, map[string]string{"": ""}, getAccount(t, e, other).AuthMethods)
		require.True(t, hasAuthMethod(t, e, other, ""))
	})

	t.Run("invalid owner", func(t *testing.T) {
		e.InvokeFail(t, common.ErrInvalidOwner, "initialize", []byte{1, 2, 3}, "google", "user@gmail.com")
	})
}

func TestSocialWallet_AddAuthMethod(t *testing.T) {
	e := newSocialWalletInvoker(t)
	acc := e.NewAccount(t)
	owner := acc.ScriptHash()
	ownerInv := e.WithSigners(acc)

	t.Run("missing account", func(t *testing.T) {
		ownerInv.Invoke(t, stackitem.NewBool(false), "addAuthMethod", owner, "phone", "+1555")
		require.Nil(t, getAccount(t, e, owner))
	})

	e.Invoke(t, stackitem.NewBool(true), "initialize", owner, "google", "user@gmail.com")

	h := ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, "phone", "+1555")
	require.True(t, hasAuthMethod(t, e, owner, "phone"))
	require.ElementsMatch(t, []string{"google", "phone"}, getAuthMethods(t, e, owner))

	evs, err := socialwallet.AuthMethodAddedEventsFromApplicationLog(txLog(t, e, h))
	require.NoError(t, err)
	require.Equal(t, []*socialwallet.AuthMethodAddedEvent{{
		Owner:      owner,
		MethodType: "phone",
		Identifier: "+1555",
	}}, evs)

	t.Run("overwrite", func(t *testing.T) {
		ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, "phone", "+1666")
		require.Equal(t, map[string]string{
			"google": "user@gmail.com",
			"phone":  "+1666",
		}, getAccount(t, e, owner).AuthMethods)
	})

	t.Run("long method type", func(t *testing.T) {
		methodType := string(make([]byte, 200))

		ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, methodType, "id")
		require.True(t, hasAuthMethod(t, e, owner, methodType))
		require.Equal(t, "id", getAccount(t, e, owner).AuthMethods[methodType])

		ownerInv.Invoke(t, stackitem.NewBool(true), "removeAuthMethod", owner, methodType)
	})

	t.Run("without owner witness", func(t *testing.T) {
		before := getAccount(t, e, owner)

		e.InvokeFail(t, common.ErrOwnerWitnessFailed, "addAuthMethod", owner, "facebook", "x")
		e.WithSigners(e.NewAccount(t)).InvokeFail(t, common.ErrOwnerWitnessFailed,
			"addAuthMethod", owner, "facebook", "x")

		require.Equal(t, before, getAccount(t, e, owner))
	})

	t.Run("multiple addAuthMethod per block", func(t *testing.T) {
		tx1 := ownerInv.PrepareInvoke(t, "addAuthMethod", owner, "facebook", "fb")
		tx2 := ownerInv.PrepareInvoke(t, "addAuthMethod", owner, "passkey", "pk")
		e.AddNewBlock(t, tx1, tx2)
		e.CheckHalt(t, tx1.Hash(), stackitem.NewBool(true))
		e.CheckHalt(t, tx2.Hash(), stackitem.NewBool(true))

		require.ElementsMatch(t, []string{"google", "phone", "facebook", "passkey"},
			getAuthMethods(t, e, owner))
	})
}

func TestSocialWallet_RemoveAuthMethod(t *testing.T) {
	e := newSocialWalletInvoker(t)
	acc := e.NewAccount(t)
	owner := acc.ScriptHash()
	ownerInv := e.WithSigners(acc)

	ownerInv.Invoke(t, stackitem.NewBool(false), "removeAuthMethod", owner, "google")

	e.Invoke(t, stackitem.NewBool(true), "initialize", owner, "google", "user@gmail.com")
	ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, "phone", "+1555")

	t.Run("without owner witness", func(t *testing.T) {
		e.InvokeFail(t, common.ErrOwnerWitnessFailed, "removeAuthMethod", owner, "google")
		require.True(t, hasAuthMethod(t, e, owner, "google"))
	})

	ownerInv.Invoke(t, stackitem.NewBool(false), "removeAuthMethod", owner, "facebook")

	h := ownerInv.Invoke(t, stackitem.NewBool(true), "removeAuthMethod", owner, "google")
	require.False(t, hasAuthMethod(t, e, owner, "google"))
	require.True(t, hasAuthMethod(t, e, owner, "phone"))
	require.Equal(t, []string{"phone"}, getAuthMethods(t, e, owner))

	evs, err := socialwallet.AuthMethodRemovedEventsFromApplicationLog(txLog(t, e, h))
	require.NoError(t, err)
	require.Equal(t, []*socialwallet.AuthMethodRemovedEvent{{
		Owner:      owner,
		MethodType: "google",
	}}, evs)

	ownerInv.Invoke(t, stackitem.NewBool(false), "removeAuthMethod", owner, "google")

	t.Run("last method", func(t *testing.T) {
		ownerInv.Invoke(t, stackitem.NewBool(true), "removeAuthMethod", owner, "phone")

		res := getAccount(t, e, owner)
		require.NotNil(t, res)
		require.Empty(t, res.AuthMethods)
		require.True(t, res.IsInitialized)
		require.Empty(t, getAuthMethods(t, e, owner))

		// account still exists, so it can be neither initialized again
		// nor lose the ability to get new methods
		e.Invoke(t, stackitem.NewBool(false), "initialize", owner, "google", "user@gmail.com")
		ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, "google", "other@gmail.com")
		require.Equal(t, map[string]string{"google": "other@gmail.com"}, getAccount(t, e, owner).AuthMethods)
	})
}

func TestSocialWallet_MethodCount(t *testing.T) {
	e := newSocialWalletInvoker(t)
	acc := e.NewAccount(t)
	owner := acc.ScriptHash()
	ownerInv := e.WithSigners(acc)

	model := map[string]string{"google": "user@gmail.com"}
	e.Invoke(t, stackitem.NewBool(true), "initialize", owner, "google", "user@gmail.com")

	ops := []struct {
		remove     bool
		methodType string
		identifier string
	}{
		{methodType: "phone", identifier: "+1555"},
		{methodType: "facebook", identifier: "fb"},
		{methodType: "phone", identifier: "+1666"},
		{remove: true, methodType: "google"},
		{remove: true, methodType: "google"},
		{methodType: "passkey", identifier: "pk"},
		{remove: true, methodType: "facebook"},
		{methodType: "google", identifier: "user@gmail.com"},
	}

	for _, op := range ops {
		if op.remove {
			_, ok := model[op.methodType]
			ownerInv.Invoke(t, stackitem.NewBool(ok), "removeAuthMethod", owner, op.methodType)
			delete(model, op.methodType)
		} else {
			ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner, op.methodType, op.identifier)
			model[op.methodType] = op.identifier
		}

		methods := getAuthMethods(t, e, owner)
		require.Len(t, methods, len(model))
		for i := range methods {
			require.Contains(t, model, methods[i])
		}
	}

	require.Equal(t, model, getAccount(t, e, owner).AuthMethods)
}

func TestSocialWallet_TransferOwnership(t *testing.T) {
	e := newSocialWalletInvoker(t)

	accA, accB := e.NewAccount(t), e.NewAccount(t)
	a, b := accA.ScriptHash(), accB.ScriptHash()
	invA, invB := e.WithSigners(accA), e.WithSigners(accB)

	t.Run("missing account", func(t *testing.T) {
		e.Invoke(t, stackitem.NewBool(true), "initialize", b, "facebook", "fb")
		before := getAccount(t, e, b)

		invA.Invoke(t, stackitem.NewBool(false), "transferOwnership", a, b)
		require.Equal(t, before, getAccount(t, e, b))
	})

	e.Invoke(t, stackitem.NewBool(true), "initialize", a, "google", "user@gmail.com")
	createdAt := getAccount(t, e, a).CreatedAt
	invA.Invoke(t, stackitem.NewBool(true), "addAuthMethod", a, "phone", "+1555")

	t.Run("without owner witness", func(t *testing.T) {
		e.InvokeFail(t, common.ErrOwnerWitnessFailed, "transferOwnership", a, b)
		invB.InvokeFail(t, common.ErrOwnerWitnessFailed, "transferOwnership", a, b)

		require.NotNil(t, getAccount(t, e, a))
		require.Equal(t, map[string]string{"facebook": "fb"}, getAccount(t, e, b).AuthMethods)
	})

	t.Run("invalid owner", func(t *testing.T) {
		invA.InvokeFail(t, common.ErrInvalidOwner, "transferOwnership", a, []byte{1, 2, 3})
	})

	t.Run("to self", func(t *testing.T) {
		before := getAccount(t, e, a)

		h := invA.Invoke(t, stackitem.NewBool(true), "transferOwnership", a, a)
		require.Empty(t, e.GetTxExecResult(t, h).Events)
		require.Equal(t, before, getAccount(t, e, a))
	})

	h := invA.Invoke(t, stackitem.NewBool(true), "transferOwnership", a, b)

	evs, err := socialwallet.OwnershipTransferredEventsFromApplicationLog(txLog(t, e, h))
	require.NoError(t, err)
	require.Equal(t, []*socialwallet.OwnershipTransferredEvent{{
		PreviousOwner: a,
		NewOwner:      b,
	}}, evs)

	require.Nil(t, getAccount(t, e, a))
	require.Empty(t, getAuthMethods(t, e, a))
	require.False(t, hasAuthMethod(t, e, a, "google"))

	res := getAccount(t, e, b)
	require.NotNil(t, res)
	require.Equal(t, b, res.Owner)
	require.True(t, res.IsInitialized)
	require.Equal(t, createdAt, res.CreatedAt)
	// previous account of b is replaced, not merged
	require.Equal(t, map[string]string{
		"google": "user@gmail.com",
		"phone":  "+1555",
	}, res.AuthMethods)
	require.False(t, hasAuthMethod(t, e, b, "facebook"))

	t.Run("after transfer", func(t *testing.T) {
		invA.Invoke(t, stackitem.NewBool(false), "addAuthMethod", a, "passkey", "pk")
		invA.InvokeFail(t, common.ErrOwnerWitnessFailed, "addAuthMethod", b, "passkey", "pk")
		invB.Invoke(t, stackitem.NewBool(true), "addAuthMethod", b, "passkey", "pk")

		// old owner key is free again
		e.Invoke(t, stackitem.NewBool(true), "initialize", a, "phone", "+1777")
		require.Equal(t, map[string]string{"phone": "+1777"}, getAccount(t, e, a).AuthMethods)
	})
}

func TestSocialWallet_Scenario(t *testing.T) {
	e := newSocialWalletInvoker(t)
	acc := e.NewAccount(t)
	owner1 := acc.ScriptHash()
	ownerInv := e.WithSigners(acc)

	e.Invoke(t, stackitem.NewBool(true), "initialize", owner1, "google", "user@gmail.com")
	require.Equal(t, map[string]string{"google": "user@gmail.com"}, getAccount(t, e, owner1).AuthMethods)

	e.Invoke(t, stackitem.NewBool(false), "initialize", owner1, "facebook", "x")
	require.Equal(t, map[string]string{"google": "user@gmail.com"}, getAccount(t, e, owner1).AuthMethods)

	ownerInv.Invoke(t, stackitem.NewBool(true), "addAuthMethod", owner1, "phone", "+1555")
	require.ElementsMatch(t, []string{"google", "phone"}, getAuthMethods(t, e, owner1))

	ownerInv.Invoke(t, stackitem.NewBool(true), "removeAuthMethod", owner1, "google")
	require.False(t, hasAuthMethod(t, e, owner1, "google"))
	require.True(t, hasAuthMethod(t, e, owner1, "phone"))
}

func TestSocialWallet_Update(t *testing.T) {
	e := newSocialWalletInvoker(t)

	e.Invoke(t, stackitem.Make(common.Version), "version")

	e.WithSigners(e.NewAccount(t)).InvokeFail(t, common.ErrUpdateAccessDenied,
		"update", []byte{1}, []byte{2}, nil)
}
