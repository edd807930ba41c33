package amm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/quantfish/ammbot/internal/constants"
)

// Anchor instruction discriminators for the swap program.
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// SwapAccounts carries the caller-resolved accounts a swap instruction needs
// beyond what PoolKeys provides.
type SwapAccounts struct {
	User                             solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
}

// BuildBuyInstruction builds a buy: spend at most maxQuoteIn quote tokens for
// exactly baseOut base tokens. maxQuoteIn comes from a BuyQuote's MaxQuote.
func BuildBuyInstruction(keys *PoolKeys, accts SwapAccounts, baseOut, maxQuoteIn uint64) (solana.Instruction, error) {
	data := make([]byte, 8+8+8)
	copy(data, buyDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], baseOut)
	binary.LittleEndian.PutUint64(data[16:24], maxQuoteIn)
	return buildSwapInstruction(keys, accts, data)
}

// BuildSellInstruction builds a sell: pay exactly baseIn base tokens for at
// least minQuoteOut quote tokens. minQuoteOut comes from a SellQuote's
// MinQuote.
func BuildSellInstruction(keys *PoolKeys, accts SwapAccounts, baseIn, minQuoteOut uint64) (solana.Instruction, error) {
	data := make([]byte, 8+8+8)
	copy(data, sellDiscriminator)
	binary.LittleEndian.PutUint64(data[8:16], baseIn)
	binary.LittleEndian.PutUint64(data[16:24], minQuoteOut)
	return buildSwapInstruction(keys, accts, data)
}

func buildSwapInstruction(keys *PoolKeys, accts SwapAccounts, data []byte) (solana.Instruction, error) {
	if keys == nil {
		return nil, fmt.Errorf("pool keys are nil")
	}
	if accts.User.IsZero() {
		return nil, fmt.Errorf("user is zero")
	}

	globalConfig, err := GlobalConfigAddress()
	if err != nil {
		return nil, err
	}
	eventAuthority, err := EventAuthorityAddress()
	if err != nil {
		return nil, err
	}
	vaultAuthority, err := CreatorVaultAuthority(keys.CoinCreator)
	if err != nil {
		return nil, err
	}
	vaultATA, _, err := solana.FindAssociatedTokenAddress(vaultAuthority, keys.QuoteMint)
	if err != nil {
		return nil, fmt.Errorf("derive creator vault ata: %w", err)
	}

	accounts := []*solana.AccountMeta{
		{PublicKey: keys.Pool, IsWritable: true},
		{PublicKey: accts.User, IsSigner: true, IsWritable: true},
		{PublicKey: globalConfig},
		{PublicKey: keys.BaseMint},
		{PublicKey: keys.QuoteMint},
		{PublicKey: accts.UserBaseTokenAccount, IsWritable: true},
		{PublicKey: accts.UserQuoteTokenAccount, IsWritable: true},
		{PublicKey: keys.BaseVault, IsWritable: true},
		{PublicKey: keys.QuoteVault, IsWritable: true},
		{PublicKey: accts.ProtocolFeeRecipient},
		{PublicKey: accts.ProtocolFeeRecipientTokenAccount, IsWritable: true},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.TokenProgramID},
		{PublicKey: solana.SystemProgramID},
		{PublicKey: constants.AssociatedTokenProgramID},
		{PublicKey: eventAuthority},
		{PublicKey: constants.PumpAmmProgramID},
		{PublicKey: vaultATA, IsWritable: true},
		{PublicKey: vaultAuthority},
	}

	return solana.NewInstruction(constants.PumpAmmProgramID, accounts, data), nil
}
