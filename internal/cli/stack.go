package cli

import (
	"fmt"
	"os"

	"github.com/mnemo-ai/mnemod/internal/config"
	"github.com/mnemo-ai/mnemod/internal/engine"
	"github.com/mnemo-ai/mnemod/internal/memstore"
	"github.com/mnemo-ai/mnemod/internal/resilient"
	"github.com/mnemo-ai/mnemod/internal/store"
)

// stack is the wired-up set of components shared by every command.
type stack struct {
	cfg     config.Config
	db      *store.DB
	mem     *resilient.Store
	engines map[string]*engine.Engine
}

func (s *stack) close() {
	for _, eng := range s.engines {
		eng.Stop()
	}
	s.db.Close()
}

// engineFor resolves a namespace flag value, defaulting to the user namespace.
func (s *stack) engineFor(namespace string) (*engine.Engine, error) {
	if namespace == "" {
		namespace = s.cfg.Namespaces.User
	}
	eng, ok := s.engines[namespace]
	if !ok {
		return nil, fmt.Errorf("unknown namespace %q", namespace)
	}
	return eng, nil
}

// buildStack loads config and wires the database, semantic store (embedded
// or remote, behind the resilient wrapper), and one engine per namespace.
func buildStack() (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dbPath := cfg.Database.Path
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	base, err := buildMemstore(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	mem := resilient.New(base, resilient.NewQueue())

	engines := make(map[string]*engine.Engine, 2)
	for _, ns := range cfg.NamespaceList() {
		eng := engine.New(mem, db, ns)
		eng.Weights = engine.ProfileWeights(cfg.Scoring.Profile)
		engines[ns] = eng
	}

	return &stack{cfg: cfg, db: db, mem: mem, engines: engines}, nil
}

func buildMemstore(cfg config.Config) (memstore.Store, error) {
	if cfg.Memstore.Mode == "remote" {
		if cfg.Memstore.Endpoint == "" {
			return nil, fmt.Errorf("memstore.endpoint required in remote mode")
		}
		return memstore.NewRemoteStore(cfg.Memstore.Endpoint), nil
	}

	var embedder memstore.Embedder
	if memstore.ProbeOllama(cfg.Embedder.OllamaURL, cfg.Embedder.Model) {
		embedder = memstore.NewOllamaEmbedder(cfg.Embedder.OllamaURL, cfg.Embedder.Model, cfg.Embedder.Dimensions)
		fmt.Fprintf(os.Stderr, "  embedder: ollama (%s)\n", cfg.Embedder.Model)
	} else {
		embedder = memstore.NewHashEmbedder(cfg.Embedder.Dimensions)
		fmt.Fprintf(os.Stderr, "  embedder: hash (fallback, no semantic signal)\n")
	}
	return memstore.NewChromemStore(embedder)
}
