// Package tickets issues service tickets. The caller gets a ticket number
// immediately; the backend submission runs in the background so a slow API
// never delays the phone response.
package tickets

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hotsheetiq/frontdesk/directory"
)

const submitTimeout = 30 * time.Second

// emergencyKeywords force High priority.
var emergencyKeywords = []string{
	"emergency", "urgent", "electrical", "gas", "water", "power", "heat", "flooding",
}

// Backend is the slice of the directory API the issuer needs.
type Backend interface {
	LookupTenantByPhone(ctx context.Context, phone string) (*directory.Tenant, error)
	CreateServiceIssue(ctx context.Context, issue directory.ServiceIssue) (string, error)
	CreateWorkerTask(ctx context.Context, task directory.WorkerTask) (string, error)
}

// Ticket is an issued service ticket.
type Ticket struct {
	Number    string    `json:"number"`
	IssueType string    `json:"issue_type"`
	Address   string    `json:"address"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Issuer creates tickets. dir may be nil; tickets are then issued locally
// with no backend record.
type Issuer struct {
	dir Backend
}

// NewIssuer creates a ticket issuer.
func NewIssuer(dir Backend) *Issuer {
	return &Issuer{dir: dir}
}

// Open issues a ticket number immediately and submits the issue to the
// backend in the background.
func (i *Issuer) Open(issueType, address, callerPhone string) Ticket {
	t := Ticket{
		Number:    fmt.Sprintf("SV-%d", 10000+rand.Intn(90000)),
		IssueType: issueType,
		Address:   address,
		Priority:  Priority(issueType),
		CreatedAt: time.Now(),
	}

	log.Info().Str("ticket", t.Number).Str("issue", issueType).Str("address", address).Msg("service ticket issued")

	if i.dir != nil {
		go i.submit(t, callerPhone)
	}

	return t
}

func (i *Issuer) submit(t Ticket, callerPhone string) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	tenant, err := i.dir.LookupTenantByPhone(ctx, callerPhone)
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		log.Warn().Err(err).Str("ticket", t.Number).Msg("tenant lookup failed")
	}

	// Complaints about other residents go to office staff, not maintenance.
	if !maintenanceIssue(t.IssueType) {
		task := directory.WorkerTask{
			Description: fmt.Sprintf("%s from caller at %s, ticket %s", capitalize(t.IssueType), t.Address, t.Number),
			Category:    "general",
			Priority:    "normal",
			CallerPhone: callerPhone,
		}
		if tenant != nil {
			task.Description += fmt.Sprintf(" (tenant %s, unit %s)", tenant.Name, tenant.Unit)
		}
		if _, err := i.dir.CreateWorkerTask(ctx, task); err != nil {
			log.Error().Err(err).Str("ticket", t.Number).Msg("background worker task submission failed")
		}
		return
	}

	issue := directory.ServiceIssue{
		Description: fmt.Sprintf("%s issue reported by caller", capitalize(t.IssueType)),
		Category:    Category(t.IssueType),
		Priority:    t.Priority,
		Unit:        t.Address,
		Notes:       fmt.Sprintf("Ticket %s reported via phone assistant by %s", t.Number, callerPhone),
	}
	if tenant != nil {
		issue.TenantID = tenant.ID
		issue.Notes = fmt.Sprintf("Ticket %s reported by %s via phone assistant (%s)", t.Number, tenant.Name, callerPhone)
	}

	if _, err := i.dir.CreateServiceIssue(ctx, issue); err != nil {
		log.Error().Err(err).Str("ticket", t.Number).Msg("background service issue submission failed")
	}
}

// maintenanceIssue reports whether an issue type is dispatched to maintenance
// rather than to office staff for follow-up.
func maintenanceIssue(issueType string) bool {
	return !strings.Contains(strings.ToLower(issueType), "noise")
}

// Confirmation is the sentence read back to the caller.
func (t Ticket) Confirmation() string {
	return fmt.Sprintf("Perfect! I've created service ticket #%s for your %s issue at %s. Dimitry will contact you within 2 to 4 hours.", t.Number, t.IssueType, t.Address)
}

// Priority maps an issue type to a backend priority.
func Priority(issueType string) string {
	lowered := strings.ToLower(issueType)
	for _, kw := range emergencyKeywords {
		if strings.Contains(lowered, kw) {
			return "High"
		}
	}
	return "Normal"
}

// Category maps an issue type to a backend category.
func Category(issueType string) string {
	lowered := strings.ToLower(issueType)
	switch {
	case containsAny(lowered, "electrical", "power", "electricity", "lights"):
		return "Electrical"
	case containsAny(lowered, "plumbing", "water", "leak", "flooding", "drain"):
		return "Plumbing"
	case containsAny(lowered, "heating", "heat", "hvac", "air", "temperature"):
		return "HVAC"
	case containsAny(lowered, "gas", "appliance"):
		return "Appliance"
	case containsAny(lowered, "door", "window", "lock", "key"):
		return "Security"
	default:
		return "General Maintenance"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
