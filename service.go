// Copyright 2025 Calyptra Labs
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


package shipmark

import (
	"log/slog"

	"github.com/calyptra/shipmark/jira"
	"github.com/calyptra/shipmark/objectstore"
	"github.com/calyptra/shipmark/storage"
	"github.com/calyptra/shipmark/storage/badger"
	"github.com/calyptra/shipmark/upload"
)

// Service wires the full pipeline: badger-backed response cache, async cache
// writer, Jira search client, object-store sink and the upload dispatcher.
// Construction opens everything in dependency order, Close unwinds it in
// reverse.
type Service struct {
	backend    *badger.Backend
	cache      storage.CacheRepository
	writer     *storage.AsyncCacheWriter
	searcher   *jira.Client
	sink       *objectstore.Client
	dispatcher *upload.Dispatcher
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	jiraConfig     jira.Config
	writerBuffer   int
	dispatcherOpts []upload.Option
	logger         *slog.Logger
}

// WithJiraConfig overrides the upstream search client configuration.
func WithJiraConfig(cfg jira.Config) ServiceOption {
	return func(o *serviceOptions) {
		o.jiraConfig = cfg
	}
}

// WithCacheWriterBuffer sets the async cache writer buffer size.
func WithCacheWriterBuffer(n int) ServiceOption {
	return func(o *serviceOptions) {
		o.writerBuffer = n
	}
}

// WithDispatcherOptions passes tuning options through to the upload
// dispatcher.
func WithDispatcherOptions(opts ...upload.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.dispatcherOpts = append(o.dispatcherOpts, opts...)
	}
}

// WithServiceLogger sets the logger shared by all components.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService opens the cache database at dbPath and assembles the pipeline
// against the given object store. The dispatcher is started and ready to
// accept submissions when NewService returns.
func NewService(dbPath string, storeConfig objectstore.Config, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{
		writerBuffer: 256,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.jiraConfig.Logger == nil {
		options.jiraConfig.Logger = options.logger
	}
	if storeConfig.Logger == nil {
		storeConfig.Logger = options.logger
	}

	backend, err := badger.OpenBackend(dbPath, false)
	if err != nil {
		return nil, err
	}

	cache, err := badger.NewCacheRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	writer := storage.NewAsyncCacheWriter(cache, options.writerBuffer, options.logger)

	sink, err := objectstore.NewClient(storeConfig)
	if err != nil {
		writer.Close()
		cache.Close()
		backend.Close()
		return nil, err
	}

	dispatcherOpts := append([]upload.Option{upload.WithLogger(options.logger)}, options.dispatcherOpts...)
	dispatcher, err := upload.New(sink, dispatcherOpts...)
	if err != nil {
		writer.Close()
		cache.Close()
		backend.Close()
		return nil, err
	}
	if err := dispatcher.Start(); err != nil {
		writer.Close()
		cache.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:    backend,
		cache:      cache,
		writer:     writer,
		searcher:   jira.NewClient(options.jiraConfig),
		sink:       sink,
		dispatcher: dispatcher,
		logger:     options.logger,
	}, nil
}

// Close drains the upload pipeline and the cache writer, then closes the
// cache database.
func (s *Service) Close() error {
	s.dispatcher.Stop()

	if err := s.writer.Close(); err != nil {
		s.logger.Error("error closing cache writer", "err", err)
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("error closing cache repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing cache backend", "err", err)
		return err
	}
	return nil
}

func (s *Service) CacheRepository() storage.CacheRepository {
	return s.cache
}

func (s *Service) CacheWriter() *storage.AsyncCacheWriter {
	return s.writer
}

func (s *Service) Searcher() *jira.Client {
	return s.searcher
}

func (s *Service) Dispatcher() *upload.Dispatcher {
	return s.dispatcher
}
