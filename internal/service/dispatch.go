package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/helpdesk"
	"github.com/deskbridge/backend/internal/models"
)

// Mode is the per-credential routing decision.
type Mode int

const (
	// ModeProxy forwards the raw request to Zendesk untouched.
	ModeProxy Mode = iota
	// ModeHalo serves the request from Halo alone; Halo errors propagate.
	ModeHalo
	// ModeDual serves from Zendesk and shadows the call to Halo. A Halo
	// failure is reported, never surfaced: Zendesk stays the system of
	// record while Halo is validated in parallel.
	ModeDual
)

// Reporter receives shadow-call failures during dual-running.
type Reporter interface {
	ReportShadowFailure(cred models.Credential, op string, err error)
}

type LogReporter struct {
	Logger zerolog.Logger
}

func (r LogReporter) ReportShadowFailure(cred models.Credential, op string, err error) {
	r.Logger.Error().
		Err(err).
		Str("email", cred.Email).
		Str("op", op).
		Str("backend", string(models.BackendHalo)).
		Msg("dual-run shadow call failed")
}

// ManagerFactory builds a backend manager for one credential.
type ManagerFactory func(cred models.Credential) helpdesk.Manager

// cachedManager remembers the credential a manager was built from, so a
// rotated token or secret invalidates it instead of serving stale auth.
type cachedManager struct {
	cred models.Credential
	m    helpdesk.Manager
}

// Dispatcher routes capability calls per credential. Managers are kept
// process-wide per tenant so the Halo token cache outlives a request; a
// manager is rebuilt when the fields its client was constructed from
// change.
type Dispatcher struct {
	newZendesk ManagerFactory
	newHalo    ManagerFactory
	reporter   Reporter
	logger     zerolog.Logger

	mu       sync.Mutex
	zendesks map[string]cachedManager
	halos    map[string]cachedManager
}

func NewDispatcher(newZendesk, newHalo ManagerFactory, reporter Reporter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		newZendesk: newZendesk,
		newHalo:    newHalo,
		reporter:   reporter,
		logger:     logger,
		zendesks:   map[string]cachedManager{},
		halos:      map[string]cachedManager{},
	}
}

func (d *Dispatcher) Mode(cred models.Credential) Mode {
	switch {
	case cred.DualRunning():
		return ModeDual
	case cred.HaloActive:
		return ModeHalo
	default:
		return ModeProxy
	}
}

func (d *Dispatcher) zendeskFor(cred models.Credential) helpdesk.Manager {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.zendesks[cred.Email]
	if !ok || entry.cred.Token != cred.Token || entry.cred.Subdomain != cred.Subdomain {
		entry = cachedManager{cred: cred, m: d.newZendesk(cred)}
		d.zendesks[cred.Email] = entry
	}
	return entry.m
}

func (d *Dispatcher) haloFor(cred models.Credential) helpdesk.Manager {
	d.mu.Lock()
	defer d.mu.Unlock()
	entry, ok := d.halos[cred.Email]
	if !ok || entry.cred.HaloClientID != cred.HaloClientID || entry.cred.HaloClientSecret != cred.HaloClientSecret {
		entry = cachedManager{cred: cred, m: d.newHalo(cred)}
		d.halos[cred.Email] = entry
	}
	return entry.m
}

// run executes one ticket operation under the credential's routing mode.
// Both backend calls are sequential within the request; dual-running
// requires the Zendesk result and treats the Halo result as optional.
func (d *Dispatcher) run(cred models.Credential, op string, call func(helpdesk.Manager) (models.Ticket, error)) (models.Ticket, error) {
	switch d.Mode(cred) {
	case ModeHalo:
		return call(d.haloFor(cred))
	case ModeDual:
		result, err := call(d.zendeskFor(cred))
		if err != nil {
			return models.Ticket{}, err
		}
		if _, shadowErr := call(d.haloFor(cred)); shadowErr != nil {
			d.reporter.ReportShadowFailure(cred, op, shadowErr)
		}
		return result, nil
	default:
		return call(d.zendeskFor(cred))
	}
}

func (d *Dispatcher) CreateTicket(ctx context.Context, cred models.Credential, t models.Ticket) (models.Ticket, error) {
	return d.run(cred, "create_ticket", func(m helpdesk.Manager) (models.Ticket, error) {
		return m.CreateTicket(ctx, t)
	})
}

func (d *Dispatcher) GetTicket(ctx context.Context, cred models.Credential, id int64) (models.Ticket, error) {
	return d.run(cred, "get_ticket", func(m helpdesk.Manager) (models.Ticket, error) {
		return m.GetTicket(ctx, id)
	})
}

func (d *Dispatcher) UpdateTicket(ctx context.Context, cred models.Credential, t models.Ticket) (models.Ticket, error) {
	return d.run(cred, "update_ticket", func(m helpdesk.Manager) (models.Ticket, error) {
		return m.UpdateTicket(ctx, t)
	})
}

func (d *Dispatcher) AddComment(ctx context.Context, cred models.Credential, ticketID int64, comment models.Comment) (models.Ticket, error) {
	return d.run(cred, "add_comment", func(m helpdesk.Manager) (models.Ticket, error) {
		return m.AddComment(ctx, ticketID, comment)
	})
}

func (d *Dispatcher) CloseTicket(ctx context.Context, cred models.Credential, id int64) (models.Ticket, error) {
	return d.run(cred, "close_ticket", func(m helpdesk.Manager) (models.Ticket, error) {
		return helpdesk.CloseTicket(ctx, m, id, d.logger)
	})
}

// ListComments reads from the primary backend only; there is nothing to
// validate on Halo for a read of historical comments.
func (d *Dispatcher) ListComments(ctx context.Context, cred models.Credential, ticketID int64) ([]models.Comment, error) {
	if d.Mode(cred) == ModeHalo {
		return d.haloFor(cred).ListComments(ctx, ticketID)
	}
	return d.zendeskFor(cred).ListComments(ctx, ticketID)
}

func (d *Dispatcher) GetOrCreateUser(ctx context.Context, cred models.Credential, user models.User) (models.User, error) {
	switch d.Mode(cred) {
	case ModeHalo:
		return d.haloFor(cred).GetOrCreateUser(ctx, user)
	case ModeDual:
		result, err := d.zendeskFor(cred).GetOrCreateUser(ctx, user)
		if err != nil {
			return models.User{}, err
		}
		if _, shadowErr := d.haloFor(cred).GetOrCreateUser(ctx, user); shadowErr != nil {
			d.reporter.ReportShadowFailure(cred, "get_or_create_user", shadowErr)
		}
		return result, nil
	default:
		return d.zendeskFor(cred).GetOrCreateUser(ctx, user)
	}
}
