// Package catalog holds the plan tiers, per-feature pricing and payment
// methods that drive the ledger. Defaults can be overridden from YAML.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/digkill/AIMultiverse/internal/models"
)

var (
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrUnknownFeature     = errors.New("unknown feature")
	ErrUnknownVoiceModel  = errors.New("unknown voice clone model")
	ErrVoiceCloneDuration = errors.New("voice sample duration out of range")
)

type Plan struct {
	Type                models.PlanType     `yaml:"-" json:"type"`
	Label               string              `yaml:"label" json:"label"`
	Credits             int64               `yaml:"credits" json:"credits"`
	Unlimited           bool                `yaml:"unlimited" json:"unlimited"`
	PremiumLimit        int                 `yaml:"premium_limit" json:"premiumLimit"`
	Blocked             []models.ActionKind `yaml:"blocked" json:"blocked"`
	VoiceCloneWordLimit int                 `yaml:"voice_clone_word_limit" json:"voiceCloneWordLimit"`
	PriceUSD            int                 `yaml:"price_usd" json:"priceUsd"`
	DurationMonths      int                 `yaml:"duration_months" json:"durationMonths"`
	Features            []string            `yaml:"features" json:"features"`
}

// Purchasable reports whether the plan can be bought.
func (p Plan) Purchasable() bool {
	return p.Type != models.PlanFree && p.DurationMonths > 0
}

func (p Plan) Blocks(kind models.ActionKind) bool {
	for _, b := range p.Blocked {
		if b == kind {
			return true
		}
	}
	return false
}

// Feature is the cost and permission policy for one action kind.
// BatchSize > 1 charges Cost once every BatchSize calls.
type Feature struct {
	Cost      int64 `yaml:"cost" json:"cost"`
	Premium   bool  `yaml:"premium" json:"premium"`
	BatchSize int   `yaml:"batch_size" json:"batchSize,omitempty"`
}

type VoiceModel struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Multiplier  float64 `yaml:"multiplier" json:"multiplier"`
	Description string  `yaml:"description" json:"description"`
}

type PaymentMethod struct {
	Method        models.PaymentMethod `yaml:"-" json:"method"`
	Enabled       bool                 `yaml:"enabled" json:"enabled"`
	Provider      string               `yaml:"provider" json:"provider"`
	AccountTitle  string               `yaml:"account_title" json:"accountTitle"`
	AccountNumber string               `yaml:"account_number" json:"accountNumber"`
}

type Catalog struct {
	Plans              map[models.PlanType]Plan               `yaml:"plans"`
	Features           map[models.ActionKind]Feature          `yaml:"features"`
	VoiceCloneCostPerS int64                                  `yaml:"voice_clone_cost_per_second"`
	VoiceCloneMinSecs  float64                                `yaml:"voice_clone_min_seconds"`
	VoiceCloneMaxSecs  float64                                `yaml:"voice_clone_max_seconds"`
	VoiceModels        []VoiceModel                           `yaml:"voice_models"`
	PaymentMethods     map[models.PaymentMethod]PaymentMethod `yaml:"payment_methods"`
	FreeResetDays      int                                    `yaml:"free_reset_days"`
	GuestCredits       int64                                  `yaml:"guest_credits"`
	GuestResetDays     int                                    `yaml:"guest_reset_days"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c := &Catalog{
		Plans: map[models.PlanType]Plan{
			models.PlanFree: {
				Label:               "Free Plan",
				Credits:             1000,
				PremiumLimit:        1,
				VoiceCloneWordLimit: 500,
				Features:            []string{"AI Chatbot (Flash)", "Document AI", "Translator", "Fast Responses", "1 Trial Use of Premium Features"},
			},
			models.PlanPremium3Month: {
				Label:               "3-Month Plan",
				Credits:             5000,
				PremiumLimit:        1,
				Blocked:             []models.ActionKind{models.ActionLiveInteraction},
				VoiceCloneWordLimit: 500,
				PriceUSD:            39,
				DurationMonths:      3,
				Features:            []string{"All Free Features", "Voice Cloning (1 Use)", "Text-to-Speech (1 Use)", "Image-to-Video (1 Use)"},
			},
			models.PlanPremium6Month: {
				Label:               "6-Month Plan",
				Credits:             10000,
				PremiumLimit:        2,
				VoiceCloneWordLimit: 600,
				PriceUSD:            79,
				DurationMonths:      6,
				Features:            []string{"All 3-Month Features", "Premium Features (2 Uses)", "Thinking Mode", "Video Analysis"},
			},
			models.PlanPremiumYear: {
				Label:               "1-Year Plan",
				Credits:             35000,
				PremiumLimit:        100,
				VoiceCloneWordLimit: 1000,
				PriceUSD:            149,
				DurationMonths:      12,
				Features:            []string{"All Features", "Image-to-Video", "High Priority", "Live API", "4K Image Gen", "High Limits"},
			},
			models.PlanPremium2Year: {
				Label:               "2-Year Plan",
				Unlimited:           true,
				PremiumLimit:        999999,
				VoiceCloneWordLimit: 2000,
				PriceUSD:            249,
				DurationMonths:      24,
				Features:            []string{"All Features", "Unlimited Credits", "Priority Queue", "Bonus Support", "Unlimited Usage"},
			},
		},
		Features: map[models.ActionKind]Feature{
			models.ActionTTS:             {Cost: 100, Premium: true},
			models.ActionTranslate:       {Cost: 1},
			models.ActionVoiceClone:      {Cost: 100, Premium: true},
			models.ActionImageToVideo:    {Cost: 150, Premium: true},
			models.ActionTextToImage:     {Cost: 50, Premium: true},
			models.ActionChatbot:         {Cost: 1, BatchSize: 5},
			models.ActionDocAI:           {Cost: 20},
			models.ActionVideoAnalysis:   {Cost: 30, Premium: true},
			models.ActionLiveInteraction: {Cost: 5, Premium: true},
		},
		VoiceCloneCostPerS: 5,
		VoiceCloneMinSecs:  5,
		VoiceCloneMaxSecs:  60,
		VoiceModels: []VoiceModel{
			{ID: "v1_standard", Name: "Standard Clone", Multiplier: 1, Description: "Balanced speed and quality."},
			{ID: "v2_hd", Name: "High Fidelity", Multiplier: 2.5, Description: "Studio quality capturing subtle nuances."},
			{ID: "v2_expressive", Name: "Expressive AI", Multiplier: 1.5, Description: "Enhanced emotional range."},
		},
		PaymentMethods: map[models.PaymentMethod]PaymentMethod{
			models.PaymentBank: {
				Enabled:       true,
				Provider:      "HBL (Habib Bank Limited)",
				AccountTitle:  "AI Multiverse Admin",
				AccountNumber: "0000-0000-0000-0000",
			},
			models.PaymentJazzCash: {
				Enabled:       true,
				Provider:      "JazzCash",
				AccountTitle:  "AI Multiverse Admin",
				AccountNumber: "0300-0000000",
			},
			models.PaymentEasyPaisa: {
				Enabled:       false,
				Provider:      "EasyPaisa",
				AccountTitle:  "AI Multiverse Admin",
				AccountNumber: "0312-0000000",
			},
		},
		FreeResetDays:  30,
		GuestCredits:   500,
		GuestResetDays: 7,
	}
	c.fill()
	return c
}

// Load returns the default catalog overlaid with the YAML file at path.
// An empty path yields the defaults.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if path == "" {
		return cat, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var overlay Catalog
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for k, p := range overlay.Plans {
		cat.Plans[k] = p
	}
	for k, f := range overlay.Features {
		cat.Features[k] = f
	}
	for k, m := range overlay.PaymentMethods {
		cat.PaymentMethods[k] = m
	}
	if len(overlay.VoiceModels) > 0 {
		cat.VoiceModels = overlay.VoiceModels
	}
	if overlay.VoiceCloneCostPerS > 0 {
		cat.VoiceCloneCostPerS = overlay.VoiceCloneCostPerS
	}
	if overlay.VoiceCloneMinSecs > 0 {
		cat.VoiceCloneMinSecs = overlay.VoiceCloneMinSecs
	}
	if overlay.VoiceCloneMaxSecs > 0 {
		cat.VoiceCloneMaxSecs = overlay.VoiceCloneMaxSecs
	}
	if overlay.FreeResetDays > 0 {
		cat.FreeResetDays = overlay.FreeResetDays
	}
	if overlay.GuestCredits > 0 {
		cat.GuestCredits = overlay.GuestCredits
	}
	if overlay.GuestResetDays > 0 {
		cat.GuestResetDays = overlay.GuestResetDays
	}

	cat.fill()
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// fill copies map keys into the embedded type fields.
func (c *Catalog) fill() {
	for k, p := range c.Plans {
		p.Type = k
		c.Plans[k] = p
	}
	for k, m := range c.PaymentMethods {
		m.Method = k
		c.PaymentMethods[k] = m
	}
}

// Validate rejects unknown plan, feature and payment keys and incomplete tables.
func (c *Catalog) Validate() error {
	for k, p := range c.Plans {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownPlan, k)
		}
		if p.Credits < 0 {
			return fmt.Errorf("plan %s: credits must not be negative", k)
		}
		for _, b := range p.Blocked {
			if !b.Valid() {
				return fmt.Errorf("plan %s: %w: %q", k, ErrUnknownFeature, b)
			}
		}
	}
	if c.VoiceCloneMinSecs <= 0 || c.VoiceCloneMaxSecs < c.VoiceCloneMinSecs {
		return fmt.Errorf("voice clone duration range %v-%v is invalid", c.VoiceCloneMinSecs, c.VoiceCloneMaxSecs)
	}
	for _, pt := range models.PlanTypes {
		if _, ok := c.Plans[pt]; !ok {
			return fmt.Errorf("plan %s missing from catalog", pt)
		}
	}
	for k, f := range c.Features {
		if !k.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownFeature, k)
		}
		if f.Cost < 0 {
			return fmt.Errorf("feature %s: cost must not be negative", k)
		}
	}
	for _, ak := range models.ActionKinds {
		if _, ok := c.Features[ak]; !ok {
			return fmt.Errorf("feature %s missing from catalog", ak)
		}
	}
	for k := range c.PaymentMethods {
		switch k {
		case models.PaymentBank, models.PaymentJazzCash, models.PaymentEasyPaisa:
		default:
			return fmt.Errorf("unknown payment method %q", k)
		}
	}
	for _, m := range c.VoiceModels {
		if m.Multiplier <= 0 {
			return fmt.Errorf("voice model %s: multiplier must be positive", m.ID)
		}
	}
	return nil
}

func (c *Catalog) Plan(t models.PlanType) (Plan, error) {
	p, ok := c.Plans[t]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, t)
	}
	return p, nil
}

func (c *Catalog) Feature(k models.ActionKind) (Feature, error) {
	f, ok := c.Features[k]
	if !ok {
		return Feature{}, fmt.Errorf("%w: %q", ErrUnknownFeature, k)
	}
	return f, nil
}

// FreePlan is the tier every account falls back to.
func (c *Catalog) FreePlan() Plan {
	return c.Plans[models.PlanFree]
}

// OrderedPlans lists plans in tier order for display.
func (c *Catalog) OrderedPlans() []Plan {
	out := make([]Plan, 0, len(c.Plans))
	for _, t := range models.PlanTypes {
		if p, ok := c.Plans[t]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Methods lists payment methods sorted by key.
func (c *Catalog) Methods() []PaymentMethod {
	out := make([]PaymentMethod, 0, len(c.PaymentMethods))
	for _, m := range c.PaymentMethods {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Method < out[j].Method })
	return out
}

func (c *Catalog) VoiceModel(id string) (VoiceModel, error) {
	for _, m := range c.VoiceModels {
		if m.ID == id {
			return m, nil
		}
	}
	return VoiceModel{}, fmt.Errorf("%w: %q", ErrUnknownVoiceModel, id)
}

// VoiceCloneCost is ceil(seconds * per-second cost * model multiplier).
// seconds must lie within the catalog's clone duration range.
func (c *Catalog) VoiceCloneCost(modelID string, seconds float64) (int64, error) {
	m, err := c.VoiceModel(modelID)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(seconds) || seconds < c.VoiceCloneMinSecs || seconds > c.VoiceCloneMaxSecs {
		return 0, fmt.Errorf("%w: %v, want %v-%v", ErrVoiceCloneDuration, seconds, c.VoiceCloneMinSecs, c.VoiceCloneMaxSecs)
	}
	return int64(math.Ceil(seconds * float64(c.VoiceCloneCostPerS) * m.Multiplier)), nil
}
