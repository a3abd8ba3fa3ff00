package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"rently/internal/core"
	"rently/internal/ledger"
	applog "rently/internal/log"
	"rently/internal/notify"
	"rently/internal/session"
)

type tenantJSON struct {
	ledger.TenantSummary
	TotalPaidFormatted string `json:"totalPaidFormatted"`
}

type tenantsJSON struct {
	Degraded bool         `json:"degraded"`
	Tenants  []tenantJSON `json:"tenants"`
}

// handleTenants builds the directory from a one-shot read, with contacts
// fetched alongside. Missing contacts only cost the phone numbers.
func (s *Server) handleTenants(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	owner, _ := sess.Identity()
	logger := applog.FromContext(r.Context())

	var (
		records  []core.Transaction
		contacts []core.TenantContact
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		records, err = sess.QueryOnce(ctx)
		return err
	})
	g.Go(func() error {
		if s.deps.Contacts == nil {
			return nil
		}
		var err error
		if contacts, err = s.deps.Contacts.ListContacts(ctx, owner.UID); err != nil {
			logger.WarnContext(ctx, "Contact lookup failed, phones omitted", applog.FieldError, err)
			contacts = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.ErrorContext(r.Context(), "Tenant query failed", applog.FieldError, err)
		NewJSONResponse().Status(http.StatusServiceUnavailable).
			Data(tenantsJSON{Degraded: true, Tenants: []tenantJSON{}}).Write(w)
		return
	}

	dir := ledger.AttachContacts(ledger.BuildTenantDirectory(records), contacts)
	out := make([]tenantJSON, 0, len(dir))
	for _, t := range dir {
		out = append(out, tenantJSON{TenantSummary: t, TotalPaidFormatted: s.format.Amount(t.TotalPaid)})
	}
	NewJSONResponse().Data(tenantsJSON{Tenants: out}).Write(w)
}

type contactRequest struct {
	Phone string `json:"phone"`
}

type contactJSON struct {
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleUpsertContact(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if s.deps.Contacts == nil {
		ErrorResponse(http.StatusNotImplemented, "contacts are not available").Write(w)
		return
	}
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "upsert_contact", err)
		return
	}

	owner, _ := sess.Identity()
	c := core.TenantContact{
		OwnerID:   owner.UID,
		Name:      sanitizeInput(mux.Vars(r)["name"]),
		Phone:     req.Phone,
		UpdatedAt: time.Now().UTC(),
	}
	if err := c.Validate(); err != nil {
		writeError(w, r, "upsert_contact", err)
		return
	}
	c.Phone = core.NormalizePhone(c.Phone)
	if err := s.deps.Contacts.UpsertContact(r.Context(), c); err != nil {
		writeError(w, r, "upsert_contact", err)
		return
	}
	NewJSONResponse().Data(contactJSON{Name: c.Name, Phone: c.Phone, UpdatedAt: c.UpdatedAt}).Write(w)
}

type reminderJSON struct {
	Tenant  string `json:"tenant"`
	Subject string `json:"subject"`
	Mail    string `json:"mail"`
	Chat    string `json:"chat,omitempty"`
}

// handleReminder returns prefilled reminder links. The chat link only appears
// when a usable phone number is on file.
func (s *Server) handleReminder(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" {
		writeError(w, r, "reminder", &core.ValidationError{Field: "name", Err: core.ErrMissingTenant})
		return
	}
	out := reminderJSON{
		Tenant:  name,
		Subject: notify.ReminderSubject(name),
		Mail:    notify.ReminderMail(name),
	}

	if s.deps.Contacts != nil {
		owner, _ := sess.Identity()
		contacts, err := s.deps.Contacts.ListContacts(r.Context(), owner.UID)
		if err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Contact lookup failed", applog.FieldError, err)
		}
		key := core.ContactKey(owner.UID, name)
		for _, c := range contacts {
			if c.Key() != key {
				continue
			}
			if link, err := notify.ChatMessage(c.Phone, notify.ReminderBody(name)); err == nil {
				out.Chat = link
			}
			break
		}
	}
	NewJSONResponse().Data(out).Write(w)
}
