package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

const (
	defaultMinPasswordLength = 6
	defaultMaxFailures       = 5
	defaultFailureWindow     = 15 * time.Minute
)

// Config tunes the password provider.
type Config struct {
	MinPasswordLength int
	// MaxFailures failed sign-ins per email within FailureWindow trigger
	// TooManyRequests until the window refills.
	MaxFailures   int
	FailureWindow time.Duration
	Google        *GoogleConfig
}

func (c Config) withDefaults() Config {
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = defaultMinPasswordLength
	}
	if c.MaxFailures <= 0 {
		c.MaxFailures = defaultMaxFailures
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = defaultFailureWindow
	}
	return c
}

// Provider is the built-in identity provider: bcrypt password accounts,
// optional Google sign-in, HS256 session tokens and ordered change
// notifications.
type Provider struct {
	accounts ports.AccountRepository
	tokens   *TokenIssuer
	google   *googleVerifier
	cfg      Config
	validate *validator.Validate
	hub      *hub
	now      func() time.Time
	log      zerolog.Logger

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewProvider(accounts ports.AccountRepository, tokens *TokenIssuer, cfg Config, log zerolog.Logger) (*Provider, error) {
	cfg = cfg.withDefaults()
	p := &Provider{
		accounts: accounts,
		tokens:   tokens,
		cfg:      cfg,
		validate: validator.New(),
		hub:      newHub(),
		now:      time.Now,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
	}
	if cfg.Google != nil {
		g, err := newGoogleVerifier(*cfg.Google)
		if err != nil {
			return nil, err
		}
		p.google = g
	}
	return p, nil
}

// GoogleEnabled reports whether SignInWithIDToken is configured.
func (p *Provider) GoogleEnabled() bool {
	return p.google != nil
}

func (p *Provider) Subscribe(onChange func(domain.IdentityChange)) func() {
	return p.hub.subscribe(onChange)
}

func (p *Provider) SignUpWithPassword(ctx context.Context, email, password string) (*ports.Credential, error) {
	email, err := p.checkEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < p.cfg.MinPasswordLength {
		return nil, domain.Rejected(domain.ReasonWeakPassword, nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Rejected(domain.ReasonUnknown, err)
	}

	now := p.now().UTC()
	account, err := p.accounts.Create(ctx, &domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Provider:     domain.ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	p.log.Info().Str("user_id", account.ID).Msg("account created")
	return p.signedIn(account.Raw())
}

func (p *Provider) SignInWithPassword(ctx context.Context, email, password string) (*ports.Credential, error) {
	email, err := p.checkEmail(email)
	if err != nil {
		return nil, err
	}

	lim := p.limiter(email)
	if lim.TokensAt(p.now()) < 1 {
		return nil, domain.Rejected(domain.ReasonTooManyRequests, nil)
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		if domain.ReasonOf(err) == domain.ReasonUserNotFound {
			lim.AllowN(p.now(), 1)
		}
		return nil, err
	}
	if account.Disabled {
		return nil, domain.Rejected(domain.ReasonUserDisabled, nil)
	}
	if account.PasswordHash == "" {
		// Accounts created through Google have no password.
		lim.AllowN(p.now(), 1)
		return nil, domain.Rejected(domain.ReasonWrongCredential, nil)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		lim.AllowN(p.now(), 1)
		p.log.Debug().Str("user_id", account.ID).Msg("wrong password")
		return nil, domain.Rejected(domain.ReasonWrongCredential, nil)
	}

	p.forget(email)
	return p.signedIn(account.Raw())
}

// SignInWithIDToken verifies a Google ID token and signs in the matching
// account, creating it on first use.
func (p *Provider) SignInWithIDToken(ctx context.Context, idToken string) (*ports.Credential, error) {
	if p.google == nil {
		return nil, domain.Rejected(domain.ReasonUnknown, errGoogleDisabled)
	}

	claims, err := p.google.verify(idToken, p.now())
	if err != nil {
		return nil, domain.Rejected(domain.ReasonWrongCredential, err)
	}
	email, err := p.checkEmail(claims.Email)
	if err != nil {
		return nil, err
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if account.Disabled {
			return nil, domain.Rejected(domain.ReasonUserDisabled, nil)
		}
	case domain.ReasonOf(err) == domain.ReasonUserNotFound:
		now := p.now().UTC()
		account, err = p.accounts.Create(ctx, &domain.Account{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: claims.Name,
			PhotoURL:    claims.Picture,
			Provider:    domain.ProviderGoogle,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	raw := account.Raw()
	raw.Provider = domain.ProviderGoogle
	if claims.Name != "" {
		raw.DisplayName = claims.Name
	}
	if claims.Picture != "" {
		raw.PhotoURL = claims.Picture
	}
	return p.signedIn(raw)
}

// SignOut notifies subscribers that userID signed out.
func (p *Provider) SignOut(_ context.Context, userID string) error {
	p.hub.emit(domain.IdentityChange{UserID: userID})
	return nil
}

func (p *Provider) signedIn(raw domain.RawIdentity) (*ports.Credential, error) {
	token, exp, err := p.tokens.Issue(raw)
	if err != nil {
		return nil, domain.Rejected(domain.ReasonUnknown, err)
	}
	changed := raw
	p.hub.emit(domain.IdentityChange{UserID: raw.ID, Identity: &changed})
	return &ports.Credential{Identity: raw, Token: token, ExpiresAt: exp}, nil
}

func (p *Provider) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := p.validate.Var(email, "required,email"); err != nil {
		return "", domain.Rejected(domain.ReasonInvalidEmail, err)
	}
	return email, nil
}

func (p *Provider) limiter(email string) *rate.Limiter {
	p.limMu.Lock()
	defer p.limMu.Unlock()

	lim, ok := p.limiters[email]
	if !ok {
		every := rate.Every(p.cfg.FailureWindow / time.Duration(p.cfg.MaxFailures))
		lim = rate.NewLimiter(every, p.cfg.MaxFailures)
		p.limiters[email] = lim
	}
	return lim
}

func (p *Provider) forget(email string) {
	p.limMu.Lock()
	delete(p.limiters, email)
	p.limMu.Unlock()
}

// PruneLimiters drops sign-in limiters whose bucket has refilled; they carry
// no failure history. It returns how many were dropped.
func (p *Provider) PruneLimiters() int {
	now := p.now()
	burst := float64(p.cfg.MaxFailures)

	p.limMu.Lock()
	defer p.limMu.Unlock()
	pruned := 0
	for email, lim := range p.limiters {
		if lim.TokensAt(now) >= burst {
			delete(p.limiters, email)
			pruned++
		}
	}
	return pruned
}

// RunLimiterCleanup calls PruneLimiters every interval until ctx is done.
func (p *Provider) RunLimiterCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.PruneLimiters(); n > 0 {
				p.log.Debug().Int("pruned", n).Msg("sign-in limiters pruned")
			}
		}
	}
}
