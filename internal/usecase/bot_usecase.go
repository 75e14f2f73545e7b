package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/fadilmartias/ats-resume-bot/internal/extract"
	"github.com/fadilmartias/ats-resume-bot/internal/match"
	"github.com/fadilmartias/ats-resume-bot/internal/model"
	"github.com/fadilmartias/ats-resume-bot/internal/payment"
	"github.com/fadilmartias/ats-resume-bot/internal/session"
	"github.com/google/uuid"
)

const (
	previewChunkSize = 3500
	shortPreviewSize = 500
)

type BotOptions struct {
	MinResumeChars         int
	MinJobDescriptionChars int
	MaxFileSize            int64
	Brand                  string
}

func (o *BotOptions) withDefaults() {
	if o.MinResumeChars <= 0 {
		o.MinResumeChars = 100
	}
	if o.MinJobDescriptionChars <= 0 {
		o.MinJobDescriptionChars = 100
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = 10 * 1024 * 1024
	}
	if o.Brand == "" {
		o.Brand = "ATS Resume Bot"
	}
}

type BotDependencies struct {
	Store     session.Store
	Locker    *session.Locker
	Extractor TextExtractor
	Rewriter  ContentRewriter
	Renderer  DocumentRenderer
	Payments  PaymentVerifier
	Records   RecordKeeper
	Observer  Observer
}

// BotUsecase drives one user at a time through upload, job description,
// rewrite, payment and delivery.
type BotUsecase struct {
	store     session.Store
	locker    *session.Locker
	extractor TextExtractor
	rewriter  ContentRewriter
	renderer  DocumentRenderer
	payments  PaymentVerifier
	records   RecordKeeper
	observer  Observer
	opts      BotOptions
	now       func() time.Time
}

func NewBotUsecase(deps BotDependencies, opts BotOptions) *BotUsecase {
	opts.withDefaults()
	uc := &BotUsecase{
		store:     deps.Store,
		locker:    deps.Locker,
		extractor: deps.Extractor,
		rewriter:  deps.Rewriter,
		renderer:  deps.Renderer,
		payments:  deps.Payments,
		records:   deps.Records,
		observer:  deps.Observer,
		opts:      opts,
		now:       time.Now,
	}
	if uc.locker == nil {
		uc.locker = session.NewLocker()
	}
	if uc.observer == nil {
		uc.observer = nopObserver{}
	}
	return uc
}

type ResumeAccepted struct {
	Session *session.Session
	Chars   int
	Format  string
}

type Optimization struct {
	OriginalScore   float64  `json:"original_score"`
	OptimizedScore  float64  `json:"optimized_score"`
	MatchedKeywords []string `json:"matched_keywords"`
	UsedFallback    bool     `json:"used_fallback"`
	Chars           int      `json:"chars"`
	Preview         string   `json:"preview"`
}

type Delivery struct {
	Filename string
	PDF      []byte
	UTR      string
}

// TextOutcome is the result of a text message. Exactly one of Optimization,
// Delivery or NotConfirmed describes what happened.
type TextOutcome struct {
	Session      *session.Session
	Optimization *Optimization
	Delivery     *Delivery
	NotConfirmed bool
}

type HelpInfo struct {
	Brand            string   `json:"brand"`
	Amount           int      `json:"amount"`
	Currency         string   `json:"currency"`
	UPIID            string   `json:"upi_id"`
	MaxFileSizeMB    int64    `json:"max_file_size_mb"`
	SupportedFormats []string `json:"supported_formats"`
	Steps            []string `json:"steps"`
}

func (uc *BotUsecase) Help() HelpInfo {
	return HelpInfo{
		Brand:            uc.opts.Brand,
		Amount:           uc.payments.Amount(),
		Currency:         uc.payments.Currency(),
		UPIID:            uc.payments.UPIID(),
		MaxFileSizeMB:    uc.opts.MaxFileSize / (1024 * 1024),
		SupportedFormats: extract.SupportedExtensions(),
		Steps: []string{
			"Start a session",
			"Upload your resume (PDF, DOCX or TXT)",
			"Send the job description you are targeting",
			"Review the match score and preview",
			"Request payment and pay via UPI",
			"Send the 12-digit UTR from your payment app",
			"Receive your ATS-optimized PDF",
		},
	}
}

// Start creates a fresh session, replacing any previous one.
func (uc *BotUsecase) Start(ctx context.Context, userID, displayName string) (*session.Session, error) {
	if !uc.locker.TryAcquire(userID) {
		return nil, ErrSessionBusy
	}
	defer uc.locker.Release(userID)

	now := uc.now()
	if strings.TrimSpace(displayName) == "" {
		displayName = "User"
	}
	s := session.New(userID, displayName, now)
	s.AuditID = uuid.NewString()
	if err := uc.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if err := uc.records.TouchUser(ctx, userID, displayName, now); err != nil {
		slog.Warn("record user failed", "user_id", userID, "error", err)
	}
	uc.audit(ctx, s)
	slog.Info("session started", "user_id", userID)
	return s.Clone(), nil
}

func (uc *BotUsecase) Status(ctx context.Context, userID string) (*session.Session, error) {
	return uc.store.Get(ctx, userID)
}

func (uc *BotUsecase) SubmitResume(ctx context.Context, userID, filename string, data []byte) (*ResumeAccepted, error) {
	var accepted ResumeAccepted
	s, err := uc.withSession(ctx, userID, func(s *session.Session) error {
		if s.State != session.AwaitingResume {
			return unexpected(s, "a resume file")
		}
		if int64(len(data)) > uc.opts.MaxFileSize {
			return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, len(data), uc.opts.MaxFileSize)
		}

		text, err := uc.extractor.Extract(ctx, data, filename)
		if err != nil {
			return err
		}
		n := utf8.RuneCountInString(strings.TrimSpace(text))
		if n < uc.opts.MinResumeChars {
			return fmt.Errorf("%w: %w: extracted %d characters, need at least %d",
				extract.ErrExtractionFailed, ErrValidationFailed, n, uc.opts.MinResumeChars)
		}

		s.ResumeText = text
		s.ResumeFormat = strings.ToUpper(strings.TrimPrefix(filepath.Ext(filename), "."))
		s.State = session.AwaitingJobDescription
		accepted.Chars = n
		accepted.Format = s.ResumeFormat
		return nil
	})
	if err != nil {
		return nil, err
	}
	accepted.Session = s
	return &accepted, nil
}

// SubmitText routes a text message by the session's state: a job
// description while awaiting one, a transaction reference while awaiting
// payment. A reference sent too early, or free text sent where a reference
// is expected, is rejected without touching the rewriter or the gateway.
func (uc *BotUsecase) SubmitText(ctx context.Context, userID, text string) (*TextOutcome, error) {
	var out TextOutcome
	s, err := uc.withSession(ctx, userID, func(s *session.Session) error {
		switch s.State {
		case session.AwaitingResume:
			return unexpected(s, "a text message")
		case session.AwaitingJobDescription:
			if payment.LooksLikeReference(text) {
				return unexpected(s, "a transaction reference before payment was requested")
			}
			opt, err := uc.acceptJobDescription(ctx, s, text)
			out.Optimization = opt
			return err
		case session.AwaitingPayment:
			if !s.AwaitingReference() {
				return unexpected(s, "a transaction reference before payment was requested")
			}
			if !payment.LooksLikeReference(text) {
				return unexpected(s, "free text")
			}
			delivery, err := uc.verifyAndDeliver(ctx, s, text)
			out.Delivery = delivery
			out.NotConfirmed = err == nil && delivery == nil
			return err
		case session.Completed:
			return unexpected(s, "a text message")
		}
		return fmt.Errorf("unhandled session state %s", s.State)
	})
	if err != nil {
		return nil, err
	}
	out.Session = s
	return &out, nil
}

func (uc *BotUsecase) acceptJobDescription(ctx context.Context, s *session.Session, text string) (*Optimization, error) {
	jd := strings.TrimSpace(text)
	if n := utf8.RuneCountInString(jd); n < uc.opts.MinJobDescriptionChars {
		return nil, fmt.Errorf("%w: job description has %d characters, need at least %d",
			ErrValidationFailed, n, uc.opts.MinJobDescriptionChars)
	}

	original := match.Score(s.ResumeText, jd)
	res := uc.rewriter.Rewrite(ctx, s.ResumeText, jd)
	optimized := match.Score(res.Text, jd)
	uc.observer.Rewrite(res.UsedFallback)

	s.JobDescription = jd
	s.OptimizedResume = res.Text
	s.UsedFallback = res.UsedFallback
	s.OriginalScore = original
	s.OptimizedScore = optimized
	s.State = session.AwaitingPayment

	slog.Info("resume optimized", "user_id", s.UserID, "fallback", res.UsedFallback,
		"original_score", original, "optimized_score", optimized)
	return &Optimization{
		OriginalScore:   original,
		OptimizedScore:  optimized,
		MatchedKeywords: match.Matched(res.Text, jd),
		UsedFallback:    res.UsedFallback,
		Chars:           utf8.RuneCountInString(res.Text),
		Preview:         ShortPreview(res.Text),
	}, nil
}

// verifyAndDeliver returns a nil Delivery and nil error when the gateway
// says the reference is not (yet) paid.
func (uc *BotUsecase) verifyAndDeliver(ctx context.Context, s *session.Session, reference string) (*Delivery, error) {
	ok, err := uc.payments.VerifyReference(ctx, reference, s.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentVerificationFailed) {
			uc.observer.PaymentVerification("error")
		}
		return nil, err
	}

	ref := strings.TrimSpace(reference)
	now := uc.now()
	if !ok {
		uc.observer.PaymentVerification("not_confirmed")
		if err := uc.records.RecordPaymentResult(ctx, s.PaymentID, ref, false, now); err != nil {
			slog.Warn("record payment result failed", "payment_id", s.PaymentID, "error", err)
		}
		return nil, nil
	}

	uc.observer.PaymentVerification("confirmed")
	if err := uc.records.RecordPaymentResult(ctx, s.PaymentID, ref, true, now); err != nil {
		slog.Warn("record payment result failed", "payment_id", s.PaymentID, "error", err)
	}

	pdf, err := uc.renderer.Render(s.OptimizedResume, s.DisplayName)
	if err != nil {
		slog.Error("render after verified payment failed", "user_id", s.UserID, "payment_id", s.PaymentID, "error", err)
		return nil, err
	}

	s.UTR = ref
	s.State = session.Completed
	s.CompletedAt = &now
	uc.observer.Delivered()
	if err := uc.records.RecordDelivery(ctx, s.UserID, now); err != nil {
		slog.Warn("record delivery failed", "user_id", s.UserID, "error", err)
	}

	return &Delivery{
		Filename: DeliveryFilename(s.DisplayName, now),
		PDF:      pdf,
		UTR:      ref,
	}, nil
}

// InitiatePayment creates the order once per session. Later calls return the
// same payment id without contacting the gateway.
func (uc *BotUsecase) InitiatePayment(ctx context.Context, userID string) (*payment.Instructions, error) {
	var inst *payment.Instructions
	_, err := uc.withSession(ctx, userID, func(s *session.Session) error {
		if !s.ReadyForPayment() {
			return unexpected(s, "a payment request")
		}
		if s.PaymentID != "" {
			initiatedAt := s.CreatedAt
			if s.PaymentInitiatedAt != nil {
				initiatedAt = *s.PaymentInitiatedAt
			}
			inst = uc.payments.Reissue(s.PaymentID, s.PaymentURL, s.ManualPayment, initiatedAt)
			return nil
		}

		now := uc.now()
		paymentID := payment.NewPaymentID(userID, now)
		created, err := uc.payments.InitiateOrder(ctx, userID, paymentID)
		if err != nil {
			return err
		}
		if err := s.AssignPaymentID(paymentID, now); err != nil {
			return err
		}
		s.PaymentURL = created.PaymentURL
		s.ManualPayment = created.Manual

		if err := uc.records.RecordPaymentInitiated(ctx, &model.Payment{
			PaymentID:  paymentID,
			UserID:     userID,
			Amount:     created.Amount,
			Currency:   created.Currency,
			Manual:     created.Manual,
			PaymentURL: created.PaymentURL,
		}); err != nil {
			slog.Warn("record payment failed", "payment_id", paymentID, "error", err)
		}
		slog.Info("payment initiated", "user_id", userID, "payment_id", paymentID, "manual", created.Manual)
		inst = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// RetryWithNewJobDescription lets the user target another job. Before
// payment the payment id is kept; after completion a new session lifetime
// starts with the same resume.
func (uc *BotUsecase) RetryWithNewJobDescription(ctx context.Context, userID string) (*session.Session, error) {
	return uc.withSession(ctx, userID, func(s *session.Session) error {
		switch s.State {
		case session.AwaitingResume, session.AwaitingJobDescription:
			return unexpected(s, "a retry request")
		case session.AwaitingPayment:
			s.JobDescription = ""
			s.OptimizedResume = ""
			s.UsedFallback = false
			s.OriginalScore = 0
			s.OptimizedScore = 0
			s.State = session.AwaitingJobDescription
			return nil
		case session.Completed:
			fresh := session.New(s.UserID, s.DisplayName, uc.now())
			fresh.AuditID = uuid.NewString()
			fresh.ResumeText = s.ResumeText
			fresh.ResumeFormat = s.ResumeFormat
			fresh.State = session.AwaitingJobDescription
			*s = *fresh
			return nil
		}
		return fmt.Errorf("unhandled session state %s", s.State)
	})
}

// Preview returns the optimized text split into message-sized chunks.
func (uc *BotUsecase) Preview(ctx context.Context, userID string) ([]string, error) {
	s, err := uc.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.OptimizedResume == "" {
		return nil, unexpected(s, "a preview request")
	}
	return ChunkText(s.OptimizedResume, previewChunkSize), nil
}

// withSession serializes work per user. The session is saved only when fn
// succeeds, so a failed transition leaves the stored session untouched.
func (uc *BotUsecase) withSession(ctx context.Context, userID string, fn func(s *session.Session) error) (*session.Session, error) {
	if !uc.locker.TryAcquire(userID) {
		uc.observer.Rejected("busy")
		return nil, ErrSessionBusy
	}
	defer uc.locker.Release(userID)

	s, err := uc.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	from := s.State

	if err := fn(s); err != nil {
		uc.observer.Rejected(rejectReason(err))
		slog.Info("input rejected", "user_id", userID, "state", from.String(), "error", err)
		return nil, err
	}
	if err := uc.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	if from != s.State {
		uc.observer.Transition(from, s.State)
		slog.Info("session transition", "user_id", userID, "from", from.String(), "to", s.State.String())
		uc.audit(ctx, s)
	}
	return s.Clone(), nil
}

func (uc *BotUsecase) audit(ctx context.Context, s *session.Session) {
	if err := uc.records.RecordSession(ctx, s); err != nil {
		slog.Warn("record session failed", "user_id", s.UserID, "error", err)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUnexpectedInputForState):
		return "unexpected_input"
	case errors.Is(err, ErrValidationFailed):
		return "validation"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, extract.ErrExtractionFailed):
		return "extraction"
	case errors.Is(err, ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, payment.ErrInvalidReferenceFormat):
		return "invalid_reference"
	case errors.Is(err, payment.ErrPaymentInitiationFailed):
		return "payment_initiation"
	case errors.Is(err, payment.ErrPaymentVerificationFailed):
		return "payment_verification"
	default:
		return "other"
	}
}

func ShortPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= shortPreviewSize {
		return text
	}
	return string(runes[:shortPreviewSize]) + "..."
}

// ChunkText splits text into pieces of at most size runes.
func ChunkText(text string, size int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// DeliveryFilename is ATS_Resume_{name}_{YYYYMMDD_HHMM}.pdf with the name
// reduced to letters, digits and underscores.
func DeliveryFilename(displayName string, at time.Time) string {
	name := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return r
		}
		return '_'
	}, strings.TrimSpace(displayName))
	name = strings.Trim(name, "_")
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("ATS_Resume_%s_%s.pdf", name, at.Format("20060102_1504"))
}
