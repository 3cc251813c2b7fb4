package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dropline/vendor-console/internal/bulk"
	"github.com/dropline/vendor-console/internal/enum"
	"github.com/dropline/vendor-console/internal/journal"
	"github.com/dropline/vendor-console/internal/metrics"
	"github.com/dropline/vendor-console/internal/vendorapi"
	"github.com/dropline/vendor-console/internal/ws"
)

const submitTimeout = 60 * time.Second

var ErrSubmitFailed = errors.New("bulk submission failed")

// BulkUpstream is the slice of the platform API used by bulk ingestion.
// Satisfied by *vendorapi.Client.
type BulkUpstream interface {
	ListStores(ctx context.Context) ([]vendorapi.Store, error)
	CreateOrdersBulk(ctx context.Context, batch bulk.BulkCreateRequest) (*vendorapi.BulkCreateResult, error)
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToVendor(vendorID string, event ws.Event)
}

// Caller identifies the logged-in operator a call is made for.
type Caller struct {
	VendorID  string
	SessionID string
	Token     string
}

type BulkConfig struct {
	Schema         bulk.Schema
	Duplicates     bulk.DuplicatePolicy
	DefaultVehicle string
}

type SubmitResult struct {
	BatchID uuid.UUID     `json:"batch_id"`
	Orders  int           `json:"orders"`
	Created int           `json:"created"`
	Stale   bool          `json:"stale"`
	Session bulk.Snapshot `json:"session"`
}

// BulkService runs the parse → review → submit flow, one session per login.
type BulkService struct {
	cfg      BulkConfig
	sessions *bulk.Registry
	upstream func(token string) BulkUpstream
	journal  journal.Journal
	hub      Broadcaster
	metrics  *metrics.Registry
}

func NewBulkService(cfg BulkConfig, sessions *bulk.Registry, upstream func(token string) BulkUpstream, j journal.Journal, hub Broadcaster, m *metrics.Registry) *BulkService {
	if j == nil {
		j = journal.Nop{}
	}
	return &BulkService{
		cfg:      cfg,
		sessions: sessions,
		upstream: upstream,
		journal:  j,
		hub:      hub,
		metrics:  m,
	}
}

// Schema resolves a per-request schema name, falling back to the configured one.
func (s *BulkService) Schema(name string) (bulk.Schema, error) {
	if name == "" {
		return s.cfg.Schema, nil
	}
	return bulk.SchemaByName(name)
}

// ParseText classifies pasted text against the vendor's current stores.
func (s *BulkService) ParseText(ctx context.Context, c Caller, text, schemaName string) (bulk.Snapshot, error) {
	schema, err := s.Schema(schemaName)
	if err != nil {
		return bulk.Snapshot{}, err
	}
	p, err := s.parser(ctx, c, schema, enum.SourceBulk)
	if err != nil {
		return bulk.Snapshot{}, err
	}
	return s.store(c, p.Parse(text)), nil
}

// ParseXLSX classifies the first sheet of an uploaded workbook.
func (s *BulkService) ParseXLSX(ctx context.Context, c Caller, r io.Reader, schemaName string) (bulk.Snapshot, error) {
	schema, err := s.Schema(schemaName)
	if err != nil {
		return bulk.Snapshot{}, err
	}
	rows, err := bulk.ReadXLSX(r)
	if err != nil {
		return bulk.Snapshot{}, err
	}
	p, err := s.parser(ctx, c, schema, enum.SourceBulkXLSX)
	if err != nil {
		return bulk.Snapshot{}, err
	}
	return s.store(c, p.ParseRows(rows)), nil
}

func (s *BulkService) Snapshot(c Caller) bulk.Snapshot {
	return s.session(c).Snapshot()
}

// Submit sends the parsed batch once. The upstream call runs detached from
// the request context so a dropped browser connection cannot leave the
// batch in an unknown state.
func (s *BulkService) Submit(ctx context.Context, c Caller) (*SubmitResult, error) {
	sess := s.session(c)
	ticket, err := sess.BeginSubmit()
	if err != nil {
		return nil, err
	}

	entryID, jerr := s.journal.Start(ctx, journal.Entry{
		VendorID:  c.VendorID,
		SessionID: c.SessionID,
		BatchID:   ticket.ID,
		Source:    batchSource(ticket.Batch),
		Orders:    len(ticket.Batch.Orders),
	})
	if jerr != nil {
		log.Printf("ERROR: journal start for batch %s: %v", ticket.ID, jerr)
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()
	res, err := s.upstream(c.Token).CreateOrdersBulk(submitCtx, ticket.Batch)

	current := sess.Finish(ticket, err)

	created := 0
	if err == nil && res != nil {
		created = res.Created
	}
	if jerr == nil {
		outcome := journal.Outcome{Created: created, Err: err, Stale: !current}
		if ferr := s.journal.Finish(context.WithoutCancel(ctx), entryID, outcome); ferr != nil {
			log.Printf("ERROR: journal finish for batch %s: %v", ticket.ID, ferr)
		}
	}

	result := &SubmitResult{
		BatchID: ticket.ID,
		Orders:  len(ticket.Batch.Orders),
		Created: created,
		Stale:   !current,
		Session: sess.Snapshot(),
	}

	switch {
	case !current:
		s.countSubmission("stale")
		log.Printf("WARN: batch %s finished after re-parse; outcome ignored (err=%v)", ticket.ID, err)
		return result, nil
	case err != nil:
		s.countSubmission("failed")
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	s.countSubmission("succeeded")
	if s.hub != nil {
		payload, _ := json.Marshal(map[string]any{"batch_id": ticket.ID, "orders": result.Orders, "created": created})
		s.hub.BroadcastToVendor(c.VendorID, ws.Event{Type: enum.EventBulkSubmitted, Payload: payload})
	}
	return result, nil
}

func (s *BulkService) History(ctx context.Context, c Caller, limit int) ([]journal.Entry, error) {
	return s.journal.Recent(ctx, c.VendorID, limit)
}

func (s *BulkService) parser(ctx context.Context, c Caller, schema bulk.Schema, source string) (*bulk.Parser, error) {
	stores, err := s.upstream(c.Token).ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch stores: %w", err)
	}
	records := make([]bulk.StoreRecord, 0, len(stores))
	for _, st := range stores {
		records = append(records, bulk.StoreRecord{StoreID: st.StoreID, Name: st.Name, Lat: st.Lat, Lng: st.Lng})
	}
	return bulk.NewParser(schema, records, s.cfg.Duplicates, bulk.AssembleOptions{
		DefaultVehicle: s.cfg.DefaultVehicle,
		Source:         source,
	}), nil
}

func (s *BulkService) store(c Caller, res *bulk.Result) bulk.Snapshot {
	if s.metrics != nil {
		s.metrics.ObserveParse(res.Accepted(), res.Rejected())
	}
	return s.session(c).SetResult(res)
}

func (s *BulkService) session(c Caller) *bulk.Session {
	sess := s.sessions.Get(c.SessionID)
	if s.metrics != nil {
		s.metrics.BulkSessions.Set(float64(s.sessions.Len()))
	}
	return sess
}

func (s *BulkService) countSubmission(result string) {
	if s.metrics != nil {
		s.metrics.BulkSubmissions.WithLabelValues(result).Inc()
	}
}

func batchSource(b bulk.BulkCreateRequest) string {
	if len(b.Orders) == 0 {
		return enum.SourceBulk
	}
	return b.Orders[0].Source
}
