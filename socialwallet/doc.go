/*
Package socialwallet implements SocialWallet contract.

SocialWallet contract binds an account owner (N3 script hash) to a set of
external authentication methods: a method type ("google", "phone") mapped to
an opaque identifier ("user@gmail.com", "+1555..."). Identifiers are never
validated by the contract, they are recorded so that off-chain services can
recover an account by its alternative credentials.

An account is created once with Initialize and then changed only with the
owner witness: methods are added with AddAuthMethod, removed with
RemoveAuthMethod and the whole record is moved to another owner with
TransferOwnership.

# Contract notifications

AccountInitialized notification. This notification is produced when a new
account is created with its first authentication method.

	AccountInitialized
	  - name: owner
	    type: Hash160
	  - name: methodType
	    type: String
	  - name: identifier
	    type: String

AuthMethodAdded notification. This notification is produced when an
authentication method is added to the account or its identifier is replaced.

	AuthMethodAdded
	  - name: owner
	    type: Hash160
	  - name: methodType
	    type: String
	  - name: identifier
	    type: String

AuthMethodRemoved notification. This notification is produced when an
authentication method is removed from the account.

	AuthMethodRemoved
	  - name: owner
	    type: Hash160
	  - name: methodType
	    type: String

OwnershipTransferred notification. This notification is produced when the
account is moved to a new owner. Account previously stored for the new owner
(if any) is replaced.

	OwnershipTransferred
	  - name: previousOwner
	    type: Hash160
	  - name: newOwner
	    type: Hash160
*/
package socialwallet

/*
Contract storage model.

Current conventions:
 <owner>: 20-byte script hash of the account owner
 <type>: SHA-256 of the authentication method type

# Summary
Key-value storage format:
 - 'a<owner>' -> std.Serialize(accountHeader)
   account existence marker with the owner and the creation time
 - 'm<owner><type>' -> std.Serialize(AuthMethod)
   authentication method of the account

# Accounts
Set of 'm<owner>' items forms the method map of the account. Items are never
stored without the corresponding 'a<owner>' item.
*/
