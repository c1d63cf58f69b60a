package model

// NativeSymbol is the chain's native gas asset. Links that wrap it carry no
// token account, only lamports in the custody account.
const NativeSymbol = "SOL"

// NativeMint is the sentinel mint address used for the native asset.
const NativeMint = "So11111111111111111111111111111111111111112"

// LamportsPerNative is the smallest-unit multiplier of the native asset.
const LamportsPerNative = 1_000_000_000

// Token describes an asset the link service can wrap.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
	Mint     string `json:"mint"`
	Icon     string `json:"icon,omitempty"`
}

// SupportedTokens is the asset catalog. The privacy transfer service defines
// per-asset minimums and fee percentages on top of this list; those are
// queried live, not recorded here.
var SupportedTokens = []Token{
	{Symbol: "SOL", Name: "Solana", Decimals: 9, Mint: NativeMint, Icon: "https://cryptologos.cc/logos/solana-sol-logo.png"},
	{Symbol: "USDC", Name: "USD Coin", Decimals: 6, Mint: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Icon: "https://cryptologos.cc/logos/usd-coin-usdc-logo.png"},
	{Symbol: "USD1", Name: "World Liberty Financial USD", Decimals: 6, Mint: "USD1ttGY1N17NEEHLmELoaybftRBUSErhqYiQzvEmuB"},
	{Symbol: "ZEC", Name: "ZCash (Portal)", Decimals: 9, Mint: "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs", Icon: "https://cryptologos.cc/logos/zcash-zec-logo.png"},
	{Symbol: "BONK", Name: "Bonk", Decimals: 5, Mint: "dezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"},
}

// GetTokenBySymbol looks up a supported token by its symbol.
func GetTokenBySymbol(symbol string) (Token, bool) {
	for _, t := range SupportedTokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}

// GetTokenByMint looks up a supported token by its mint address.
func GetTokenByMint(mint string) (Token, bool) {
	for _, t := range SupportedTokens {
		if t.Mint == mint {
			return t, true
		}
	}
	return Token{}, false
}
