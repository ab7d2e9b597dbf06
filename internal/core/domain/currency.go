package domain

import "strings"

// CurrencyKind distinguishes the two player balances.
type CurrencyKind string

const (
	CurrencySoft    CurrencyKind = "soft"    // earned in-game, never sold directly
	CurrencyPremium CurrencyKind = "premium" // obtainable via real-money purchase
)

// Valid reports whether the kind is one of the known currencies.
func (k CurrencyKind) Valid() bool {
	return k == CurrencySoft || k == CurrencyPremium
}

// TransactionCategory classifies a ledger entry. Categories are partitioned
// into earn and spend families by naming convention; purchase_currency
// counts as earn, while refund and admin_adjustment belong to neither.
type TransactionCategory string

const (
	CategoryEarnMission      TransactionCategory = "earn_mission"
	CategoryEarnQuiz         TransactionCategory = "earn_quiz"
	CategoryEarnBattle       TransactionCategory = "earn_battle"
	CategoryEarnCityBuilding TransactionCategory = "earn_city_building"
	CategoryEarnAchievement  TransactionCategory = "earn_achievement"
	CategoryEarnEvent        TransactionCategory = "earn_event"

	CategorySpendUpgrade      TransactionCategory = "spend_upgrade"
	CategorySpendUnlock       TransactionCategory = "spend_unlock"
	CategorySpendCosmetic     TransactionCategory = "spend_cosmetic"
	CategorySpendBeatPack     TransactionCategory = "spend_beat_pack"
	CategorySpendStoryChapter TransactionCategory = "spend_story_chapter"
	CategorySpendAvatar       TransactionCategory = "spend_avatar"
	CategorySpendEvent        TransactionCategory = "spend_event"

	CategoryPurchaseCurrency TransactionCategory = "purchase_currency"
	CategoryRefund           TransactionCategory = "refund"
	CategoryAdminAdjustment  TransactionCategory = "admin_adjustment"
)

// IsEarn reports whether the category belongs to the earn family.
func (c TransactionCategory) IsEarn() bool {
	return strings.HasPrefix(string(c), "earn_") || c == CategoryPurchaseCurrency
}

// IsSpend reports whether the category belongs to the spend family.
func (c TransactionCategory) IsSpend() bool {
	return strings.HasPrefix(string(c), "spend_")
}
