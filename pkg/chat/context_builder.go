package chat

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/junctionhq/auditline/pkg/core"
)

// ContextItem is one inventory item as rendered into the audit context.
type ContextItem struct {
	ID               int64
	RequireImage     bool
	Identifier       *string
	IdentifierType   *string
	ItemType         *string
	CollectionAmount *int64
	Metadata         *string
}

// AuditedItem pairs an item with the day it was audited to the location.
type AuditedItem struct {
	Item      ContextItem
	AuditedAt time.Time
}

// ContextData is everything the audit context narrative needs.
type ContextData struct {
	AuditorID        int64
	AuditorName      string
	OrganizationName string
	LocationName     string
	LocationLat      *float64
	LocationLng      *float64
	AuditedItems     []AuditedItem
	UnauditedItems   []ContextItem
}

// ContextSource loads context data for an audit session.
type ContextSource interface {
	AuditContext(ctx context.Context, sessionRef string) (*ContextData, error)
}

// ContextBuilder renders the hidden priming turn for a session.
type ContextBuilder struct {
	source ContextSource
	now    func() time.Time
}

// NewContextBuilder creates a ContextBuilder over the given source.
func NewContextBuilder(source ContextSource) *ContextBuilder {
	return &ContextBuilder{source: source, now: time.Now}
}

// BuildAuditContext loads and renders the context block for sessionRef.
// Callers store the result as a hidden user turn so it primes the model
// without appearing in transcripts.
func (b *ContextBuilder) BuildAuditContext(ctx context.Context, sessionRef string) (string, error) {
	data, err := b.source.AuditContext(ctx, sessionRef)
	if err != nil {
		return "", core.NewPersistenceError("load audit context", err)
	}
	if data == nil {
		return "", core.NewSessionNotFoundError(sessionRef)
	}
	return RenderAuditContext(data, b.now()), nil
}

// RenderAuditContext renders the context narrative: general facts, the
// organization and location, items grouped by the day they were audited, and
// items never audited to the location.
func RenderAuditContext(data *ContextData, now time.Time) string {
	var sb strings.Builder

	auditorName := data.AuditorName
	if auditorName == "" {
		auditorName = "Unknown Auditor"
	}
	auditorID := "Unknown Auditor ID"
	if data.AuditorID > 0 {
		auditorID = strconv.FormatInt(data.AuditorID, 10)
	}
	orgName := data.OrganizationName
	if orgName == "" {
		orgName = "Unknown Organization"
	}
	locName := data.LocationName
	if locName == "" {
		locName = "Unknown Location"
	}

	fmt.Fprintf(&sb, `<context>
# general
- today's date: %s
- auditer: %s
- auditer id: %s

# organization
- name: %s

# location
- name: %s
- coordinates: %s, %s`,
		now.Format("2006-01-02"),
		auditorName,
		auditorID,
		orgName,
		locName,
		coordOrNA(data.LocationLat),
		coordOrNA(data.LocationLng))

	byDate := make(map[string][]ContextItem)
	for _, audited := range data.AuditedItems {
		date := audited.AuditedAt.Format("2006-01-02")
		if audited.AuditedAt.IsZero() {
			date = now.Format("2006-01-02")
		}
		byDate[date] = append(byDate[date], audited.Item)
	}
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		fmt.Fprintf(&sb, "\n# items audited to this location on %s\n%s",
			date, renderItems(byDate[date]))
	}

	if len(data.UnauditedItems) > 0 {
		fmt.Fprintf(&sb, "\n# items never audited to this location\n%s",
			renderItems(data.UnauditedItems))
	}

	sb.WriteString("\n</context>")
	return sb.String()
}

func renderItems(items []ContextItem) string {
	rendered := make([]string, len(items))
	for i, item := range items {
		collectionAmount := int64(1)
		if item.CollectionAmount != nil {
			collectionAmount = *item.CollectionAmount
		}
		rendered[i] = fmt.Sprintf(`{
  id: %d,
  require_image: %t,
  identifier: %s,
  identifier_type: %s,
  item_type: %s,
  collection_amount: %d,
  metadata: %s
}`,
			item.ID,
			item.RequireImage,
			strOrNull(item.Identifier),
			strOrNull(item.IdentifierType),
			strOrNull(item.ItemType),
			collectionAmount,
			strOrNull(item.Metadata))
	}
	return strings.Join(rendered, ",\n")
}

func strOrNull(s *string) string {
	if s == nil || *s == "" {
		return "null"
	}
	return *s
}

func coordOrNA(f *float64) string {
	if f == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
