package entity

// Identity is the display identity the wallet/session provider knows for an account.
type Identity struct {
	Address   string `json:"address"`
	ENSName   string `json:"ensName,omitempty"`
	ENSAvatar string `json:"ensAvatar,omitempty"`
}

// Profile is the data behind the wallet panel.
type Profile struct {
	Address          string   `json:"address"`
	DisplayName      string   `json:"displayName"`
	AvatarURL        string   `json:"avatarUrl"`
	Symbol           string   `json:"symbol"`
	Decimals         uint8    `json:"decimals"`
	Balance          string   `json:"balance"`
	Allowance        string   `json:"allowance,omitempty"`
	AllowanceVisible bool     `json:"allowanceVisible"`
	CanApprove       bool     `json:"canApprove"`
	PriceUSD         *float64 `json:"priceUSD,omitempty"`
	ValueUSD         *float64 `json:"valueUSD,omitempty"`
}
