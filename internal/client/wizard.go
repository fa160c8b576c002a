package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/paylink-cm/paylink/internal/domain"
	"github.com/paylink-cm/paylink/internal/service"
	apperrors "github.com/paylink-cm/paylink/pkg/errors"
	"github.com/paylink-cm/paylink/pkg/slug"
)

// slugCheckDebounce is how long the wizard waits after the last slug edit
// before asking the server about availability.
const slugCheckDebounce = 500 * time.Millisecond

// WizardStep is one of the three page-creation steps.
type WizardStep int

const (
	StepTemplate WizardStep = iota + 1
	StepDetails
	StepStyle
)

// SlugCheckStatus is the advisory availability state shown while typing.
type SlugCheckStatus string

const (
	SlugCheckIdle      SlugCheckStatus = "idle"
	SlugCheckPending   SlugCheckStatus = "checking"
	SlugCheckAvailable SlugCheckStatus = "available"
	SlugCheckTaken     SlugCheckStatus = "taken"
	SlugCheckInvalid   SlugCheckStatus = "invalid"
)

// SubmitOutcome discriminates how a page submission ended.
type SubmitOutcome int

const (
	SubmitSuccess SubmitOutcome = iota
	// SubmitUpgradeRequired means the merchant hit their plan's page limit.
	SubmitUpgradeRequired
	// SubmitSlugTaken means another page claimed the slug first.
	SubmitSlugTaken
	// SubmitLoginRequired means the session is no longer valid.
	SubmitLoginRequired
	// SubmitFailed covers every other failure.
	SubmitFailed
)

// Wizard is the three-step page-creation state machine. Steps move strictly
// forward and backward; submission is only reachable from the last step.
//
// The slug availability check is debounced and advisory: it never blocks the
// merchant on a network error, and the server re-checks uniqueness at
// creation time. Each scheduled check carries a generation number so a slow,
// stale response can never overwrite the result for a newer slug.
type Wizard struct {
	api      *APIClient
	session  *Session
	logger   *slog.Logger
	debounce time.Duration

	mu           sync.Mutex
	step         WizardStep
	template     domain.TemplateType
	title        string
	slug         string
	slugEdited   bool
	slugStatus   SlugCheckStatus
	description  string
	pricingMode  domain.PricingMode
	logoURL      string
	primaryColor string
	templateData json.RawMessage
	services     []ServiceInput

	checkGen    int
	checkTimer  *time.Timer
	checkCancel context.CancelFunc
}

// NewWizard creates a wizard at step one.
func NewWizard(api *APIClient, session *Session, logger *slog.Logger) *Wizard {
	return &Wizard{
		api:        api,
		session:    session,
		logger:     logger,
		debounce:   slugCheckDebounce,
		step:       StepTemplate,
		slugStatus: SlugCheckIdle,
	}
}

// Step returns the current step.
func (w *Wizard) Step() WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Slug returns the current slug value.
func (w *Wizard) Slug() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slug
}

// SlugStatus returns the current advisory availability state.
func (w *Wizard) SlugStatus() SlugCheckStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slugStatus
}

// SelectTemplate picks one of the six page templates.
func (w *Wizard) SelectTemplate(t domain.TemplateType) error {
	if !t.Valid() {
		return apperrors.InvalidInput("unknown template type")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.template = t
	return nil
}

// SetTitle updates the title. Until the merchant edits the slug by hand,
// the slug tracks the title through the deterministic slugifier.
func (w *Wizard) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	if !w.slugEdited {
		w.slug = slug.Generate(title)
	}
	w.mu.Unlock()
	w.scheduleSlugCheck()
}

// SetSlug sets the slug manually, detaching it from the title.
func (w *Wizard) SetSlug(s string) {
	w.mu.Lock()
	w.slug = s
	w.slugEdited = true
	w.mu.Unlock()
	w.scheduleSlugCheck()
}

// SetDescription sets the optional page description.
func (w *Wizard) SetDescription(d string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.description = d
}

// SetPricingMode selects how service prices absorb the transaction fee.
func (w *Wizard) SetPricingMode(mode domain.PricingMode) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pricingMode = mode
}

// SetLogoURL sets the page logo shown in the header. Styling belongs to the
// last step but may be set at any point.
func (w *Wizard) SetLogoURL(u string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.logoURL = u
}

// SetPrimaryColor sets the page accent color (#RRGGBB).
func (w *Wizard) SetPrimaryColor(c string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.primaryColor = c
}

// SetTemplateData sets the template-specific payload.
func (w *Wizard) SetTemplateData(data json.RawMessage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.templateData = data
}

// AddService appends a payable item.
func (w *Wizard) AddService(svc ServiceInput) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.services = append(w.services, svc)
}

// Next advances one step if the current step's gate passes.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.step {
	case StepTemplate:
		if w.template == "" {
			return apperrors.InvalidInput("select a template first")
		}
		w.step = StepDetails
	case StepDetails:
		if err := w.detailsGate(); err != nil {
			return err
		}
		w.step = StepStyle
	case StepStyle:
		return apperrors.InvalidInput("already at the last step")
	}
	return nil
}

// Back moves one step backward. Backing out of step one does nothing.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepTemplate {
		w.step--
	}
}

// detailsGate enforces the step 2 → 3 requirements. Callers hold w.mu.
func (w *Wizard) detailsGate() error {
	if utf8.RuneCountInString(w.title) < 2 {
		return apperrors.InvalidInput("title must be at least 2 characters")
	}
	if !slug.Valid(w.slug) {
		return apperrors.InvalidInput("slug must be 3-50 lowercase letters, digits or hyphens")
	}
	if w.slugStatus == SlugCheckTaken {
		return apperrors.InvalidInput("this slug is already taken")
	}
	return nil
}

// scheduleSlugCheck restarts the debounce timer. Any pending timer is
// stopped and any in-flight check is cancelled; its late result would be
// discarded anyway by the generation guard.
func (w *Wizard) scheduleSlugCheck() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.checkGen++
	gen := w.checkGen

	if w.checkTimer != nil {
		w.checkTimer.Stop()
	}
	if w.checkCancel != nil {
		w.checkCancel()
		w.checkCancel = nil
	}

	if !slug.Valid(w.slug) {
		w.slugStatus = SlugCheckInvalid
		return
	}

	w.slugStatus = SlugCheckPending
	candidate := w.slug
	w.checkTimer = time.AfterFunc(w.debounce, func() {
		w.runSlugCheck(gen, candidate)
	})
}

// runSlugCheck asks the server about one slug and applies the answer only
// if no newer check has been scheduled since.
func (w *Wizard) runSlugCheck(gen int, candidate string) {
	w.mu.Lock()
	if gen != w.checkGen {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	w.checkCancel = cancel
	w.mu.Unlock()

	status, err := w.api.CheckSlug(ctx, w.session.AccessToken(), candidate)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.checkGen {
		return
	}
	if err != nil {
		// Advisory only: a network error must not block the merchant.
		w.logger.Warn("slug availability check failed",
			slog.String("slug", candidate),
			slog.String("error", err.Error()),
		)
		w.slugStatus = SlugCheckIdle
		return
	}

	switch status {
	case service.SlugAvailable:
		w.slugStatus = SlugCheckAvailable
	case service.SlugTaken:
		w.slugStatus = SlugCheckTaken
	default:
		w.slugStatus = SlugCheckInvalid
	}
}

// Submit creates the page. It is only valid from the last step. Failures
// are discriminated so the caller can react: plan limit prompts an upgrade,
// a taken slug sends the merchant back to the details, a dead session goes
// to login. No automatic retry.
func (w *Wizard) Submit(ctx context.Context) (*domain.Page, SubmitOutcome, error) {
	w.mu.Lock()
	if w.step != StepStyle {
		w.mu.Unlock()
		return nil, SubmitFailed, apperrors.InvalidInput("submission is only reachable from the last step")
	}
	input := CreatePageInput{
		Title:        w.title,
		Slug:         w.slug,
		Description:  w.description,
		TemplateType: string(w.template),
		PricingMode:  string(w.pricingMode),
		LogoURL:      w.logoURL,
		PrimaryColor: w.primaryColor,
		TemplateData: w.templateData,
		Services:     w.services,
	}
	w.mu.Unlock()

	page, err := w.api.CreatePage(ctx, w.session.AccessToken(), input)
	if err == nil {
		return page, SubmitSuccess, nil
	}

	switch {
	case errors.Is(err, apperrors.ErrForbidden):
		return nil, SubmitUpgradeRequired, err
	case errors.Is(err, apperrors.ErrAlreadyExists):
		w.mu.Lock()
		w.slugStatus = SlugCheckTaken
		w.mu.Unlock()
		return nil, SubmitSlugTaken, err
	case errors.Is(err, apperrors.ErrUnauthorized):
		return nil, SubmitLoginRequired, err
	default:
		return nil, SubmitFailed, err
	}
}
