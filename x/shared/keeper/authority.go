// Package keeper provides shared keeper interfaces and utilities for cross-module communication.
package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
	govtypes "github.com/cosmos/cosmos-sdk/x/gov/types"
)

// ValidateAuthority checks that the caller is the configured authority.
// Owner-only operations wrap the returned error in their own module error.
//
// Usage example:
//
//	if err := keeper.ValidateAuthority(k.authority, caller.String()); err != nil {
//	    return errorsmod.Wrap(types.ErrNotOwner, err.Error())
//	}
func ValidateAuthority(expected, actual string) error {
	if expected == "" || expected != actual {
		return govtypes.ErrInvalidSigner.Wrapf(
			"invalid authority; expected %s, got %s",
			expected,
			actual,
		)
	}
	return nil
}

// ValidateAuthorityAddress checks that a configured authority is a valid bech32 account address.
func ValidateAuthorityAddress(authority string) error {
	if _, err := sdk.AccAddressFromBech32(authority); err != nil {
		return govtypes.ErrInvalidSigner.Wrapf("invalid authority address %q: %s", authority, err)
	}
	return nil
}
