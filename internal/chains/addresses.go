package chains

import "strings"

// Curated address labels per chain. These seed whale discovery and exchange
// flow tracking; they are reference data, not configuration.

var knownWhales = map[string]map[string]string{
	"ethereum": {
		"0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae": "Ethereum Foundation",
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2": "WETH Contract",
		"0xbe0eb53f46cd790cd13851d5eff43d12404d33e8": "Binance 7",
		"0x28c6c06298d514db089934071355e5743bf21d60": "Binance 14",
		"0xdfd5293d8e347dfe59e90efd55b2956a1343963d": "Binance 8",
		"0x47ac0fb4f2d84898e4d9e7b4dab3c24507a6d503": "Binance: Binance-Peg Tokens",
	},
	"bsc": {
		"0xf977814e90da44bfa03b6295a0616a897441acec": "Binance Hot Wallet 20",
		"0x8894e0a0c962cb723c1976a4421c95949be2d4e3": "Binance Hot Wallet 6",
		"0xbb4cdb9cbd36b01bd1cbaebf2de08d9173bc095c": "WBNB Contract",
		"0x0000000000000000000000000000000000001004": "BSC Token Hub",
		"0x10ed43c718714eb63d5aa57b78b54704e256024e": "PancakeSwap Router v2",
		"0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82": "CAKE Token",
		"0x55d398326f99059ff775485246999027b3197955": "Binance-Peg USDT",
	},
}

var exchangeAddresses = map[string]map[string]string{
	"ethereum": {
		"0x28c6c06298d514db089934071355e5743bf21d60": "Binance",
		"0xa090e606e30bd747d4e6245a1517ebe430f0057e": "Gemini",
		"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b": "OKEx",
		"0x2b5634c42055806a59e9107ed44d43c426e58258": "KuCoin",
		"0x71660c4005ba85c37ccec55d0c4493e66fe775d3": "Coinbase",
		"0xfbb1b73c4f0bda4f67dca266ce6ef42f520fbb98": "Bittrex",
	},
	"bsc": {
		"0xf977814e90da44bfa03b6295a0616a897441acec": "Binance",
		"0x8894e0a0c962cb723c1976a4421c95949be2d4e3": "Binance 6",
		"0x28c6c06298d514db089934071355e5743bf21d60": "Binance 14",
		"0x7c0629bbbaf7d68ffaa393e3fedc9b633679fa5f": "OKX",
		"0xf89d7b9c864f589bbf53a82105107622b35eaa40": "Bybit",
		"0x53f78a071d04224b8e254e243fffc6d9f2f3fa23": "KuCoin",
		"0x0d0707963952f2fba59dd06f2b425ace40b492fe": "Gate.io",
		"0x72a53cdbbcc1b9efa39c834a540550e23463aacb": "Crypto.com",
		"0xefdca55e4bce6c1d535cb2d0687b5567eef2ae83": "Huobi",
	},
}

// KnownWhales returns the labeled whale addresses for a chain.
// Unknown chains return an empty map.
func KnownWhales(chainID string) map[string]string {
	return copyLabels(knownWhales[strings.ToLower(chainID)])
}

// ExchangeAddresses returns the labeled exchange addresses for a chain.
func ExchangeAddresses(chainID string) map[string]string {
	return copyLabels(exchangeAddresses[strings.ToLower(chainID)])
}

func copyLabels(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
