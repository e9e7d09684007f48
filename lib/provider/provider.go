package provider

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/batchkv/batchkv/lib/kv"
)

// Database is a named, provider-owned backend instance (§3). ModeMask is
// computed once at creation time by probing the backend's SupportsMode one
// bit at a time, and never changes afterward.
type Database struct {
	ID        uuid.UUID
	Name      string
	Type      string
	Config    json.RawMessage
	ModeMask  kv.Mode
	CreatedAt time.Time

	backend kv.Backend
	closed  bool
	sizes   *sizeHistogram
}

// ValueSizeStats summarizes the distribution of value sizes this database
// has been given via Put, for operators inspecting workload shape without
// a full scan.
func (d *Database) ValueSizeStats() SizeStats {
	return d.sizes.stats()
}

// newDatabase constructs a Database, honoring a caller-supplied id (a
// "__id__" recovered from the config file) when one is given and minting a
// fresh uuid.New() when id is uuid.Nil - the provider filling in __id__ on
// a database's first registration (§6.1).
func newDatabase(name, typ string, rawConfig json.RawMessage, id uuid.UUID) (*Database, kv.Status) {
	backend, status := kv.NewBackend(typ, rawConfig)
	if !status.IsOK() {
		return nil, status
	}
	var mask kv.Mode
	for _, bit := range kv.AllModeBits() {
		if backend.SupportsMode(bit) {
			mask |= bit
		}
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Database{
		ID:        id,
		Name:      name,
		Type:      typ,
		Config:    rawConfig,
		ModeMask:  mask,
		CreatedAt: time.Now(),
		backend:   backend,
		sizes:     newSizeHistogram(),
	}, kv.StatusOK
}

// Provider is the process-wide registry of databases keyed by UUID, with a
// secondary by-name index (§3). It owns every Database's backend exclusively
// and serializes registry mutation (create/destroy) with a single lock;
// lookups of a registered Database take only the read side of that lock,
// and operations on the backend itself rely on the backend's own locking.
type Provider struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Database
	byName map[string]*Database
}

// New constructs a Provider and registers every database named in cfg,
// failing closed (tearing down anything already opened) if any entry is
// invalid.
func New(cfg Config) (*Provider, kv.Status) {
	p := &Provider{
		byID:   make(map[uuid.UUID]*Database),
		byName: make(map[string]*Database),
	}
	for _, dbCfg := range cfg.Databases {
		db, status := newDatabase(dbCfg.Name, dbCfg.Type, dbCfg.Config, dbCfg.ID)
		if !status.IsOK() {
			p.closeAll()
			return nil, status
		}
		p.byID[db.ID] = db
		p.byName[db.Name] = db
	}
	return p, kv.StatusOK
}

func (p *Provider) closeAll() {
	for _, db := range p.byID {
		db.backend.Close()
	}
}

// CreateDatabase registers a new database at runtime (the admin lifecycle
// call named, but not detailed, by §3/§4 - "created by an admin call").
func (p *Provider) CreateDatabase(name, typ string, rawConfig json.RawMessage) (uuid.UUID, kv.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byName[name]; exists {
		return uuid.UUID{}, kv.StatusInvalidArgs
	}
	db, status := newDatabase(name, typ, rawConfig, uuid.Nil)
	if !status.IsOK() {
		return uuid.UUID{}, status
	}
	p.byID[db.ID] = db
	p.byName[db.Name] = db
	return db.ID, kv.StatusOK
}

// DestroyDatabase tears down and unregisters a database by ID.
func (p *Provider) DestroyDatabase(id uuid.UUID) kv.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	db, ok := p.byID[id]
	if !ok {
		return kv.StatusInvalidDatabase
	}
	status := db.backend.Destroy()
	db.backend.Close()
	db.closed = true
	delete(p.byID, id)
	delete(p.byName, db.Name)
	return status
}

// Lookup resolves a Database by ID, returning StatusInvalidDatabase if it
// doesn't exist or has been destroyed.
func (p *Provider) Lookup(id uuid.UUID) (*Database, kv.Status) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	db, ok := p.byID[id]
	if !ok || db.closed {
		return nil, kv.StatusInvalidDatabase
	}
	return db, kv.StatusOK
}

// LookupByName resolves a Database by its registered name.
func (p *Provider) LookupByName(name string) (*Database, kv.Status) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	db, ok := p.byName[name]
	if !ok || db.closed {
		return nil, kv.StatusInvalidDatabase
	}
	return db, kv.StatusOK
}

// List returns a snapshot of every currently registered database.
func (p *Provider) List() []*Database {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Database, 0, len(p.byID))
	for _, db := range p.byID {
		out = append(out, db)
	}
	return out
}

// Close tears down every registered database's backend, used during
// process shutdown.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeAll()
	p.byID = make(map[uuid.UUID]*Database)
	p.byName = make(map[string]*Database)
}
