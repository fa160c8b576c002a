package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// TemplateType identifies which page template a merchant builds on.
type TemplateType string

const (
	TemplateServiceProvider TemplateType = "SERVICE_PROVIDER"
	TemplateSimpleSale      TemplateType = "SIMPLE_SALE"
	TemplateDonation        TemplateType = "DONATION"
	TemplateTraining        TemplateType = "TRAINING"
	TemplateEvent           TemplateType = "EVENT"
	TemplateAssociation     TemplateType = "ASSOCIATION"
)

// TemplateTypes lists every valid template, in display order.
var TemplateTypes = []TemplateType{
	TemplateServiceProvider,
	TemplateSimpleSale,
	TemplateDonation,
	TemplateTraining,
	TemplateEvent,
	TemplateAssociation,
}

// Valid reports whether t is a known template type.
func (t TemplateType) Valid() bool {
	for _, known := range TemplateTypes {
		if t == known {
			return true
		}
	}
	return false
}

// PageStatus is the lifecycle state of a payment page.
type PageStatus string

const (
	PageDraft     PageStatus = "DRAFT"
	PagePublished PageStatus = "PUBLISHED"
	PageArchived  PageStatus = "ARCHIVED"
)

// PricingMode controls who absorbs the transaction fee.
type PricingMode string

const (
	// PricingGross: the listed price is what the payer pays; the fee comes
	// out of the merchant's payout.
	PricingGross PricingMode = "GROSS_AMOUNT"
	// PricingNet: the merchant receives the listed price; the fee is added
	// on top of the displayed price.
	PricingNet PricingMode = "NET_AMOUNT"
)

// DefaultPrimaryColor is the accent color pages start with.
const DefaultPrimaryColor = "#2563EB"

// Page is a merchant's payment collection page.
type Page struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Slug         string          `json:"slug"`
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	TemplateType TemplateType    `json:"template_type"`
	Status       PageStatus      `json:"status"`
	PricingMode  PricingMode     `json:"pricing_mode"`
	LogoURL      string          `json:"logo_url,omitempty"`
	PrimaryColor string          `json:"primary_color"`
	TemplateData json.RawMessage `json:"template_data,omitempty"`
	Services     []Service       `json:"services,omitempty"`
	ViewCount    int64           `json:"view_count"`
	PublishedAt  *time.Time      `json:"published_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Service is a single payable item on a page. Prices are in XAF, which has
// no minor unit.
type Service struct {
	ID          string    `json:"id"`
	PageID      string    `json:"page_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	// Price is what the merchant set. Under PricingNet this is the net
	// amount the merchant receives.
	Price int64 `json:"price"`
	// DisplayPrice is what the payer is charged.
	DisplayPrice int64 `json:"display_price"`
	// NetPrice is what the merchant receives after the transaction fee.
	NetPrice int64 `json:"net_price"`
	// IsActive controls whether the item is offered on the public page.
	IsActive  bool      `json:"is_active"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayPrice computes the payer-facing price for a merchant-set price
// under the given pricing mode. Under PricingNet the fee is grossed up so
// the merchant nets the listed amount, rounded up to the next whole franc.
func DisplayPrice(price int64, mode PricingMode, feePercent float64) int64 {
	if mode != PricingNet || feePercent <= 0 {
		return price
	}
	gross := float64(price) / (1 - feePercent/100)
	return int64(math.Ceil(gross))
}

// NetPrice computes what the merchant receives for a merchant-set price
// under the given pricing mode. Under PricingNet the listed price already is
// the net amount; under PricingGross the fee comes out of it, rounded down.
func NetPrice(price int64, mode PricingMode, feePercent float64) int64 {
	if mode == PricingNet || feePercent <= 0 {
		return price
	}
	net := float64(price) * (1 - feePercent/100)
	return int64(math.Floor(net))
}

// ValidateTitle checks page title length bounds.
func ValidateTitle(title string) error {
	if n := len([]rune(title)); n < 2 || n > 100 {
		return fmt.Errorf("title must be between 2 and 100 characters")
	}
	return nil
}
