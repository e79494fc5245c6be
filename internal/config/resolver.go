package config

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Primary support mailbox identity. The password comes from the
// environment (SUPPORT_MAILBOX_PASSWORD) or, as a last resort, from
// FallbackMailboxPassword set at build time.
const (
	PrimarySupportUserID  = "support"
	PrimaryMailboxAddress = "support@craftdesk.io"
	PrimaryMailboxHost    = "imap.gmail.com"

	supportPasswordEnv = "SUPPORT_MAILBOX_PASSWORD"

	defaultIMAPPort = 993
)

// FallbackMailboxPassword is the last-resort secret for the primary
// support mailbox. Empty by default; override with
// -ldflags "-X .../internal/config.FallbackMailboxPassword=...".
var FallbackMailboxPassword = ""

// MailboxConfig is a resolved remote-mailbox connection descriptor.
// It is computed once per operation and never persisted.
type MailboxConfig struct {
	User        string
	Password    string
	Host        string
	Port        int
	UseTLS      bool
	TLSInsecure bool
	AuthTimeout time.Duration
	// UseSimulated short-circuits the remote client entirely; all
	// operations are served from the fallback cache store.
	UseSimulated bool
}

// UserRecord is the slice of a user row the resolver cares about:
// the per-account outbound mail credentials.
type UserRecord struct {
	ID           string
	Email        string
	SMTPHost     string
	SMTPUser     string
	SMTPPassword string
	SMTPEnabled  bool
}

// UserLookup resolves a user record by id. A missing user is (nil, nil).
type UserLookup interface {
	GetUserByID(id string) (*UserRecord, error)
}

// providerInboundHosts maps known outbound hosts to their inbound
// counterparts. Anything else falls back to prefix substitution.
var providerInboundHosts = map[string]string{
	"smtp.gmail.com":      "imap.gmail.com",
	"smtp.office365.com":  "outlook.office365.com",
	"smtp.mail.yahoo.com": "imap.mail.yahoo.com",
	"smtp.zoho.com":       "imap.zoho.com",
}

// DeriveIMAPHost derives the inbound protocol endpoint from an outbound
// host: known providers map directly, otherwise the "smtp." prefix is
// replaced with "imap.".
func DeriveIMAPHost(smtpHost string) string {
	host := strings.TrimSpace(smtpHost)
	if mapped, ok := providerInboundHosts[strings.ToLower(host)]; ok {
		return mapped
	}
	if strings.HasPrefix(strings.ToLower(host), "smtp.") {
		return "imap." + host[len("smtp."):]
	}
	return host
}

// Resolver derives per-user mailbox connection parameters from a layered
// precedence chain: support-mailbox override, the user's own stored
// credentials, the global mail-service configuration, then environment
// and built-in fallbacks for the primary mailbox.
type Resolver struct {
	users  UserLookup
	global *GlobalMailConfig
	logger *logrus.Logger
}

// NewResolver creates a resolver. global may be nil when no mail-service
// configuration file is present.
func NewResolver(users UserLookup, global *GlobalMailConfig, logger *logrus.Logger) *Resolver {
	return &Resolver{
		users:  users,
		global: global,
		logger: logger,
	}
}

// Resolve computes the mailbox configuration for a user. When no branch
// of the precedence chain yields usable credentials it returns a
// simulated-mode configuration; it never returns an error for missing
// credentials.
func (r *Resolver) Resolve(userID string) *MailboxConfig {
	authTimeout := time.Duration(getEnvInt("MAILBOX_AUTH_TIMEOUT_MS", 15000)) * time.Millisecond

	// 1. Support mailbox override, when its secret is available.
	if userID == PrimarySupportUserID {
		if pass := getEnv(supportPasswordEnv, ""); pass != "" {
			return &MailboxConfig{
				User:        PrimaryMailboxAddress,
				Password:    pass,
				Host:        PrimaryMailboxHost,
				Port:        defaultIMAPPort,
				UseTLS:      true,
				AuthTimeout: authTimeout,
			}
		}
	}

	// 2. The user's own stored mail credentials.
	if r.users != nil {
		user, err := r.users.GetUserByID(userID)
		if err != nil {
			r.logger.WithError(err).WithField("user_id", userID).Warn("User lookup failed, continuing credential chain")
		} else if user != nil && user.SMTPEnabled && user.SMTPHost != "" && user.SMTPUser != "" && user.SMTPPassword != "" {
			return &MailboxConfig{
				User:        user.SMTPUser,
				Password:    user.SMTPPassword,
				Host:        DeriveIMAPHost(user.SMTPHost),
				Port:        defaultIMAPPort,
				UseTLS:      true,
				AuthTimeout: authTimeout,
			}
		}
	}

	// 3. Global mail-service configuration.
	if g := r.global; g != nil && g.Enabled && g.Host != "" && g.Auth.User != "" && g.Auth.Pass != "" {
		return &MailboxConfig{
			User:        g.Auth.User,
			Password:    g.Auth.Pass,
			Host:        DeriveIMAPHost(g.Host),
			Port:        defaultIMAPPort,
			UseTLS:      true,
			AuthTimeout: authTimeout,
		}
	}

	// 4. Environment-supplied secret for the primary mailbox.
	if pass := getEnv(supportPasswordEnv, ""); pass != "" {
		return &MailboxConfig{
			User:        PrimaryMailboxAddress,
			Password:    pass,
			Host:        PrimaryMailboxHost,
			Port:        defaultIMAPPort,
			UseTLS:      true,
			AuthTimeout: authTimeout,
		}
	}

	// 5. Build-time fallback secret.
	if FallbackMailboxPassword != "" {
		return &MailboxConfig{
			User:        PrimaryMailboxAddress,
			Password:    FallbackMailboxPassword,
			Host:        PrimaryMailboxHost,
			Port:        defaultIMAPPort,
			UseTLS:      true,
			AuthTimeout: authTimeout,
		}
	}

	r.logger.WithField("user_id", userID).Debug("No mailbox configuration available, using simulated mode")
	return &MailboxConfig{UseSimulated: true}
}
