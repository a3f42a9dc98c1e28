package gymauth

import (
	"errors"
	"time"

	"github.com/jivrajjp2751-code/gym-wala-db1963db/flagstore"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/provider"
	"github.com/jivrajjp2751-code/gym-wala-db1963db/rolestore"
)

// Builder assembles an Engine. Construction is allocation-only; no provider
// or store I/O happens until [Engine.Initialize].
type Builder struct {
	config Config

	provider  provider.Client
	roles     rolestore.Store
	flags     flagstore.Store
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity-provider client. Required.
func (b *Builder) WithProvider(p provider.Client) *Builder {
	b.provider = p
	return b
}

// WithRoleStore sets the role-record store. Required.
func (b *Builder) WithRoleStore(s rolestore.Store) *Builder {
	b.roles = s
	return b
}

// WithFlagStore sets the remember-flag store. Defaults to an in-process
// store when omitted.
func (b *Builder) WithFlagStore(s flagstore.Store) *Builder {
	b.flags = s
	return b
}

// WithAuditSink sets the audit destination. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source. Tests use it to control expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithSuperAdminEmail sets the allowlisted super-admin identity.
func (b *Builder) WithSuperAdminEmail(email string) *Builder {
	b.config.SuperAdmin.Email = email
	return b
}

// Build validates the configuration, wires the dispatchers, and returns an
// Engine in the loading state. A builder can build at most once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.provider == nil {
		return nil, errors.New("identity provider client required")
	}
	if b.roles == nil {
		return nil, errors.New("role store required")
	}

	flags := b.flags
	if flags == nil {
		flags = flagstore.NewMemory()
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		cfg:      cfg,
		provider: b.provider,
		roles:    b.roles,
		flags:    flags,
		audit:    newAuditDispatcher(cfg.Audit, b.auditSink),
		tasks:    newTaskDispatcher(cfg.Dispatch),
		metrics:  NewMetrics(cfg.Metrics),
		now:      clock,
		loading:  true,
		watchers: make(map[int]chan SessionState),
	}

	b.built = true
	return e, nil
}
