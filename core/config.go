package core

import (
	"github.com/fox-one/mixin-sdk-go"
	"github.com/fox-one/pkg/store/db"
)

// Config pawnshop config
type Config struct {
	App         App         `json:"app"`
	DB          db.Config   `json:"db"`
	MainWallet  MainWallet  `json:"main_wallet"`
	PriceOracle PriceOracle `json:"price_oracle"`
	Admins      []string    `json:"admins"`
}

// IsAdmin check if the user is admin
func (c *Config) IsAdmin(userID string) bool {
	for _, a := range c.Admins {
		if a == userID {
			return true
		}
	}

	return false
}

// App app config
type App struct {
	Genesis  int64  `json:"genesis"`
	Location string `json:"location"`
	// first_bid or trigger
	AuctionClock AuctionClock `json:"auction_clock"`
}

// Clock the configured auction clock, defaulting to first-bid anchoring
func (a App) Clock() AuctionClock {
	if a.AuctionClock == AuctionClockTrigger {
		return AuctionClockTrigger
	}

	return AuctionClockFirstBid
}

// MainWallet mixin dapp config
type MainWallet struct {
	mixin.Keystore
	ClientSecret string `json:"client_secret"`
	Pin          string `json:"pin"`
}

// PriceOracle price oracle config
type PriceOracle struct {
	EndPoint string `json:"end_point"`
	// base64 encoded bls public keys of the feed signers
	Signers   []string `json:"signers"`
	Threshold int      `json:"threshold"`
	// quotes older than this many seconds are rejected
	ExpireSeconds int64 `json:"expire_seconds"`
}
