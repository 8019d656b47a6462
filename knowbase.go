// Copyright 2026 Civintel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowbase

import (
	"log/slog"
	"path/filepath"

	"github.com/civintel/knowbase/agent"
	"github.com/civintel/knowbase/ai"
	"github.com/civintel/knowbase/ai/openai"
	"github.com/civintel/knowbase/index"
	badgerindex "github.com/civintel/knowbase/index/badger"
	"github.com/civintel/knowbase/kb"
	"github.com/civintel/knowbase/storage"
	"github.com/civintel/knowbase/storage/sqlite"
)

// KnowledgeBase wires the metadata store, the vector index, and the AI
// provider into a ready-to-use retrieval service. An empty data directory
// opens everything in memory, which tests rely on.
type KnowledgeBase struct {
	store    *sqlite.Store
	idx      index.VectorIndex
	provider ai.Provider
	service  *kb.Service
	logger   *slog.Logger
}

// Option configures a KnowledgeBase.
type Option func(*options)

type options struct {
	aiConfig *ai.Config
	provider ai.Provider
	kbConfig *kb.Config
}

// WithAIConfig sets the AI provider configuration used when no explicit
// provider is supplied.
func WithAIConfig(config *ai.Config) Option {
	return func(o *options) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithProvider supplies a pre-built AI provider instead of constructing the
// OpenAI-compatible one. Tests pass mocks through here.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithServiceConfig sets the retrieval orchestrator configuration.
func WithServiceConfig(config *kb.Config) Option {
	return func(o *options) {
		o.kbConfig = config
	}
}

// Open creates a knowledge base rooted at dataDir. The metadata store and
// the vector index live in subpaths of that directory; an empty dataDir
// keeps both in memory.
func Open(dataDir string, opts ...Option) (*KnowledgeBase, error) {
	o := &options{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, err
	}

	indexPath := ""
	if dataDir != "" {
		indexPath = filepath.Join(dataDir, "vectors")
	}
	// The vector index is an unreliable collaborator even at startup: when
	// it cannot open, the knowledge base still comes up and search degrades
	// to lexical-only until the index is repaired.
	var idx index.VectorIndex
	idx, err = badgerindex.Open(indexPath, dataDir == "")
	if err != nil {
		slog.Default().Error("vector index failed to open, continuing lexical-only",
			"path", indexPath, "err", err)
		idx = badgerindex.Degraded()
	}

	provider := o.provider
	if provider == nil {
		provider, err = openai.NewProvider(o.aiConfig)
		if err != nil {
			idx.Close()
			store.Close()
			return nil, err
		}
	}

	serviceOpts := []kb.Option{}
	if o.kbConfig != nil {
		serviceOpts = append(serviceOpts, kb.WithConfig(o.kbConfig))
	}
	service, err := kb.New(store, idx, provider, serviceOpts...)
	if err != nil {
		provider.Close()
		idx.Close()
		store.Close()
		return nil, err
	}

	return &KnowledgeBase{
		store:    store,
		idx:      idx,
		provider: provider,
		service:  service,
		logger:   slog.Default(),
	}, nil
}

// Close releases the service, the provider, and both stores.
func (k *KnowledgeBase) Close() error {
	k.service.Release()

	if err := k.provider.Close(); err != nil {
		k.logger.Error("error closing AI provider", "err", err)
	}
	if err := k.idx.Close(); err != nil {
		k.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := k.store.Close(); err != nil {
		k.logger.Error("error closing metadata store", "err", err)
		return err
	}
	return nil
}

// Service returns the retrieval orchestrator.
func (k *KnowledgeBase) Service() *kb.Service {
	return k.service
}

// Store returns the metadata store.
func (k *KnowledgeBase) Store() storage.MetadataStore {
	return k.store
}

// Index returns the vector index.
func (k *KnowledgeBase) Index() index.VectorIndex {
	return k.idx
}

// NewAgent creates a read-only agent access layer rooted at root.
func (k *KnowledgeBase) NewAgent(root string, opts ...agent.Option) (*agent.Service, error) {
	return agent.New(k.store, k.service, root, opts...)
}
