package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/quantfish/ammbot/internal/constants"
)

// GlobalConfigAddress derives the program's global config PDA.
func GlobalConfigAddress() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedGlobalConfig)},
		constants.PumpAmmProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive global config: %w", err)
	}
	return addr, nil
}

// EventAuthorityAddress derives the Anchor event authority PDA the program
// signs self-CPI log emissions with.
func EventAuthorityAddress() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedEventAuthority)},
		constants.PumpAmmProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive event authority: %w", err)
	}
	return addr, nil
}

// CreatorVaultAuthority derives the PDA that owns a coin creator's fee vault.
func CreatorVaultAuthority(coinCreator solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(constants.SeedCreatorVault), coinCreator.Bytes()},
		constants.PumpAmmProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive creator vault authority: %w", err)
	}
	return addr, nil
}

// PoolAddress derives a pool PDA from its creation parameters.
func PoolAddress(index uint16, creator, baseMint, quoteMint solana.PublicKey) (solana.PublicKey, error) {
	idx := make([]byte, 2)
	binary.LittleEndian.PutUint16(idx, index)

	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte(constants.SeedPool),
			idx,
			creator.Bytes(),
			baseMint.Bytes(),
			quoteMint.Bytes(),
		},
		constants.PumpAmmProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive pool address: %w", err)
	}
	return addr, nil
}
