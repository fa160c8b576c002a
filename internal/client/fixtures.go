package client

import (
	"encoding/json"
	"time"

	"github.com/paylink-cm/paylink/internal/domain"
)

// demoFixtures returns the static pages that keep demo links alive in
// development and staging when the API is unreachable.
func demoFixtures() map[string]*domain.Page {
	created := time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	published := created.Add(24 * time.Hour)

	coiffure := &domain.Page{
		ID:           "fixture-coiffure-ondo",
		UserID:       "fixture-merchant-1",
		Slug:         "coiffure-chez-ondo",
		Title:        "Coiffure Chez Ondo",
		Description:  "Salon de coiffure à Douala, Akwa. Tresses, tissages et soins.",
		TemplateType: domain.TemplateServiceProvider,
		Status:       domain.PagePublished,
		PricingMode:  domain.PricingGross,
		TemplateData: json.RawMessage(`{"city":"Douala","quartier":"Akwa"}`),
		Services: []domain.Service{
			{
				ID:           "fixture-svc-tresses",
				PageID:       "fixture-coiffure-ondo",
				Name:         "Tresses simples",
				Price:        5000,
				DisplayPrice: 5000,
				Position:     0,
			},
			{
				ID:           "fixture-svc-tissage",
				PageID:       "fixture-coiffure-ondo",
				Name:         "Tissage complet",
				Price:        15000,
				DisplayPrice: 15000,
				Position:     1,
			},
		},
		PublishedAt: &published,
		CreatedAt:   created,
		UpdatedAt:   published,
	}

	aideEcoles := &domain.Page{
		ID:           "fixture-aide-ecoles",
		UserID:       "fixture-merchant-2",
		Slug:         "aide-ecoles",
		Title:        "Aide aux écoles de Bafoussam",
		Description:  "Collecte pour les fournitures scolaires de la rentrée.",
		TemplateType: domain.TemplateDonation,
		Status:       domain.PagePublished,
		PricingMode:  domain.PricingGross,
		TemplateData: json.RawMessage(`{"goal":500000}`),
		PublishedAt:  &published,
		CreatedAt:    created,
		UpdatedAt:    published,
	}

	formation := &domain.Page{
		ID:           "fixture-formation-couture",
		UserID:       "fixture-merchant-3",
		Slug:         "formation-couture",
		Title:        "Formation couture débutant",
		Description:  "Session de juin, places limitées.",
		TemplateType: domain.TemplateTraining,
		Status:       domain.PageDraft,
		PricingMode:  domain.PricingNet,
		TemplateData: json.RawMessage(`{"seats":12}`),
		CreatedAt:    created,
		UpdatedAt:    created,
	}

	return map[string]*domain.Page{
		coiffure.Slug:   coiffure,
		aideEcoles.Slug: aideEcoles,
		formation.Slug:  formation,
	}
}
