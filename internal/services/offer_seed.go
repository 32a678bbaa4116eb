package services

import (
	"fmt"
	"time"

	"github.com/BradenHooton/offeradmin/internal/models"
)

// SeedFunc produces the initial offer list when storage holds none
type SeedFunc func(now time.Time) []models.Offer

// NoSeed starts with an empty list
func NoSeed(time.Time) []models.Offer {
	return []models.Offer{}
}

// DemoSeed returns two example offers with deadlines a month or so out
func DemoSeed(now time.Time) []models.Offer {
	ms := now.UnixMilli()
	return []models.Offer{
		{
			ID:          GenerateOfferID(now),
			Name:        "Моментальные деньги",
			Description: "Займы до 100 000 ₽ на карту",
			Status:      models.OfferStatusActive,
			Landing1:    true,
			Income:      50000,
			Deadline:    now.Add(30 * 24 * time.Hour).UTC().Format(time.RFC3339),
			Features:    []string{"Без проверки КИ", "За 5 минут", "На любую карту"},
			CreatedAt:   ms,
			UpdatedAt:   ms,
		},
		{
			ID:          GenerateOfferID(now),
			Name:        "Кредитная карта",
			Description: "Кредитный лимит до 500 000 ₽",
			Status:      models.OfferStatusActive,
			Landing1:    true,
			Landing2:    true,
			Income:      75000,
			Deadline:    now.Add(45 * 24 * time.Hour).UTC().Format(time.RFC3339),
			Features:    []string{"Кэшбэк 5%", "Бесплатное обслуживание", "Льготный период"},
			CreatedAt:   ms,
			UpdatedAt:   ms,
		},
	}
}

// SeedByName resolves the OFFERS_SEED setting
func SeedByName(name string) (SeedFunc, error) {
	switch name {
	case "demo":
		return DemoSeed, nil
	case "none", "":
		return NoSeed, nil
	}
	return nil, fmt.Errorf("unknown seed %q", name)
}
