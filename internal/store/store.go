package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dshills/riskloggr/internal/schema"
	"github.com/dshills/riskloggr/internal/schema/validate"
)

const (
	incidentPrefix = "incident/"
	downloadPrefix = "download/"
	anonymous      = "anonymous"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("record not found")

// Config configures the underlying BadgerDB.
type Config struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string
	// InMemory keeps everything in memory. Used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
	// Logger receives BadgerDB's own log output and store events.
	// nil silences BadgerDB and logs store events to slog.Default().
	Logger *slog.Logger
}

// Record is one stored classification.
type Record struct {
	ID             string
	Timestamp      time.Time
	Classification *schema.Classification
}

// Download is one entry of the export audit log.
type Download struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"user_identity"`
	Type      string    `json:"download_type"`
}

// row is the persisted shape of a Record. List fields are flattened into
// strings so a row is a flat set of scalar columns.
type row struct {
	ID                     string    `json:"id"`
	Timestamp              time.Time `json:"timestamp"`
	BaselCategory          string    `json:"basel_ii_category"`
	SeverityScore          int       `json:"severity_score"`
	RootCause              string    `json:"root_cause"`
	ControlRecommendations string    `json:"control_recommendations"` // newline-joined
	IncidentDescription    string    `json:"incident_description"`
	FrameworkTags          string    `json:"framework_tags"` // JSON array
	InherentRisk           string    `json:"inherent_risk"`
	ResidualRisk           string    `json:"residual_risk"`
	Likelihood             string    `json:"likelihood"`
	ImpactType             string    `json:"impact_type"` // JSON array
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store persists classifications and the download log in BadgerDB.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database described by cfg.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.Default()
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores c under a new ID with incident as its description and
// returns the ID.
func (s *Store) Save(ctx context.Context, incident string, c *schema.Classification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c == nil {
		return "", errors.New("nil classification")
	}
	stored := c.Clone()
	stored.IncidentDescription = incident
	if err := validate.Classification(stored); err != nil {
		return "", err
	}

	r, err := toRow(uuid.NewString(), s.now().UTC(), stored)
	if err != nil {
		return "", err
	}
	if err := s.put(incidentPrefix+r.ID, r); err != nil {
		return "", fmt.Errorf("save classification: %w", err)
	}
	s.logger.Info("classification saved", "id", r.ID)
	return r.ID, nil
}

// Update replaces every field of record id with c, keeping the original
// timestamp. It returns ErrNotFound when id does not exist.
func (s *Store) Update(ctx context.Context, id string, c *schema.Classification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c == nil {
		return errors.New("nil classification")
	}
	if err := validate.Classification(c); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing row
		if err := getJSON(txn, incidentPrefix+id, &existing); err != nil {
			return err
		}
		r, err := toRow(id, existing.Timestamp, c)
		if err != nil {
			return err
		}
		return setJSON(txn, incidentPrefix+id, r)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	s.logger.Info("classification updated", "id", id)
	return nil
}

// Get returns record id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var r row
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, incidentPrefix+id, &r)
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return r.record()
}

// All returns every record, oldest first.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	var rows []row
	if err := s.scan(ctx, incidentPrefix, func(data []byte) error {
		var r row
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		rows = append(rows, r)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].ID < rows[j].ID
	})

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// LogDownload appends an export event to the audit log. An empty actor is
// recorded as "anonymous".
func (s *Store) LogDownload(ctx context.Context, eventType, actor string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(actor) == "" {
		actor = anonymous
	}
	ts := s.now().UTC()
	d := Download{ID: uuid.NewString(), Timestamp: ts, Actor: actor, Type: eventType}
	// Zero-padded nanoseconds keep keys in time order.
	key := fmt.Sprintf("%s%020d/%s", downloadPrefix, ts.UnixNano(), d.ID)
	if err := s.put(key, d); err != nil {
		return fmt.Errorf("log download: %w", err)
	}
	s.logger.Info("download logged", "type", eventType, "user", actor)
	return nil
}

// Downloads returns the audit log, oldest first.
func (s *Store) Downloads(ctx context.Context) ([]Download, error) {
	var out []Download
	err := s.scan(ctx, downloadPrefix, func(data []byte) error {
		var d Download
		if err := json.Unmarshal(data, &d); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	return out, nil
}

func (s *Store) put(key string, v any) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, v)
	})
}

func (s *Store) scan(ctx context.Context, prefix string, fn func([]byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func getJSON(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(data []byte) error {
		return json.Unmarshal(data, v)
	})
}

func setJSON(txn *badger.Txn, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), data)
}

func toRow(id string, ts time.Time, c *schema.Classification) (row, error) {
	tags := c.FrameworkTags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return row{}, err
	}
	impactJSON, err := json.Marshal(schema.DedupImpactTypes(c.ImpactType))
	if err != nil {
		return row{}, err
	}
	return row{
		ID:                     id,
		Timestamp:              ts,
		BaselCategory:          c.BaselCategory,
		SeverityScore:          c.SeverityScore,
		RootCause:              c.RootCause,
		ControlRecommendations: strings.Join(c.ControlRecommendations, "\n"),
		IncidentDescription:    c.IncidentDescription,
		FrameworkTags:          string(tagsJSON),
		InherentRisk:           string(c.InherentRisk),
		ResidualRisk:           string(c.ResidualRisk),
		Likelihood:             string(c.Likelihood),
		ImpactType:             string(impactJSON),
	}, nil
}

func (r row) record() (*Record, error) {
	c := &schema.Classification{
		IncidentDescription:    r.IncidentDescription,
		BaselCategory:          r.BaselCategory,
		SeverityScore:          r.SeverityScore,
		RootCause:              r.RootCause,
		ControlRecommendations: schema.NewRecommendations(strings.Split(r.ControlRecommendations, "\n")...),
		FrameworkTags:          []string{},
		InherentRisk:           schema.RiskLevel(r.InherentRisk),
		ResidualRisk:           schema.RiskLevel(r.ResidualRisk),
		Likelihood:             schema.Likelihood(r.Likelihood),
		ImpactType:             []schema.ImpactType{},
	}
	if r.FrameworkTags != "" {
		if err := json.Unmarshal([]byte(r.FrameworkTags), &c.FrameworkTags); err != nil {
			return nil, fmt.Errorf("record %s: decoding framework_tags: %w", r.ID, err)
		}
	}
	if r.ImpactType != "" {
		if err := json.Unmarshal([]byte(r.ImpactType), &c.ImpactType); err != nil {
			return nil, fmt.Errorf("record %s: decoding impact_type: %w", r.ID, err)
		}
	}
	return &Record{ID: r.ID, Timestamp: r.Timestamp, Classification: c}, nil
}
